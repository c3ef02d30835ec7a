// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package lockermap

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMapDoSerializesEqualKeys(t *testing.T) {
	require := require.New(t)
	var m Map

	var mu sync.Mutex
	active := 0
	maxActive := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Do("k", func() {
				mu.Lock()
				active++
				if active > maxActive {
					maxActive = active
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	require.Equal(1, maxActive)
	require.False(m.Held("k"))
}

func TestMapDoRunsDifferentKeysConcurrently(t *testing.T) {
	var m Map

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		m.Do("a", func() {
			close(started)
			<-release
		})
		close(done)
	}()
	<-started
	require.True(t, m.Held("a"))

	// Would deadlock if "b" shared a lock with "a".
	m.Do("b", func() {})

	close(release)
	<-done
}

func TestMapDoReleasesOnPanic(t *testing.T) {
	var m Map

	require.Panics(t, func() {
		m.Do("k", func() { panic("boom") })
	})
	require.False(t, m.Held("k"))

	ran := false
	m.Do("k", func() { ran = true })
	require.True(t, ran)
}
