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
package metainfogen

import (
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
)

// Fixture returns a Generator with a mock clock set to a fixed time.
func Fixture() (*Generator, *clock.Mock) {
	clk := clock.NewMock()
	clk.Set(time.Unix(1500000000, 0))
	g, err := New(Config{}, tally.NoopScope, WithClock(clk))
	if err != nil {
		panic(err)
	}
	return g, clk
}
