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
package metrics

import (
	"errors"
	"io"
	"time"

	"github.com/uber-go/tally"
	"github.com/uber-go/tally/m3"
)

func newM3Scope(config Config, env string) (tally.Scope, io.Closer, error) {
	if env == "" {
		return nil, nil, errors.New("env required for m3")
	}
	m3config := config.M3.applyDefaults()

	// tally/m3 accepts an empty host port and drops everything.
	if m3config.HostPort == "" {
		return nil, nil, errors.New("host_port required for m3")
	}
	r, err := m3.Configuration{
		HostPort: m3config.HostPort,
		Service:  m3config.Service,
		Env:      env,
	}.NewReporter()
	if err != nil {
		return nil, nil, err
	}
	s, c := tally.NewRootScope(tally.ScopeOptions{CachedReporter: r}, time.Second)
	return s, c, nil
}
