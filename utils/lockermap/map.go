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

	"golang.org/x/sync/syncmap"
)

// Map is a map of locks keyed by arbitrary values. Entries only exist while
// some caller holds or waits for them.
//
// The zero Map is valid and empty.
type Map struct {
	m syncmap.Map
}

// Do executes f while holding the lock of key k. Calls for equal keys are
// serialized, calls for different keys run concurrently.
func (m *Map) Do(k interface{}, f func()) {
	for {
		v, _ := m.m.LoadOrStore(k, new(sync.Mutex))
		l := v.(*sync.Mutex)
		l.Lock()

		// The previous holder may have removed l while we waited for it.
		if cur, ok := m.m.Load(k); !ok || cur != v {
			l.Unlock()
			continue
		}

		func() {
			defer func() {
				m.m.Delete(k)
				l.Unlock()
			}()
			f()
		}()
		return
	}
}

// Held returns true if some caller holds or waits for the lock of k.
func (m *Map) Held(k interface{}) bool {
	_, ok := m.m.Load(k)
	return ok
}
