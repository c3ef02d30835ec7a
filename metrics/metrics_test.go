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
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		desc   string
		config Config
	}{
		{"empty backend is disabled", Config{}},
		{"disabled", Config{Backend: "disabled"}},
		{"log", Config{Backend: "log", Log: LogConfig{Prefix: "torrentprep"}}},
		{"statsd", Config{Backend: "statsd", Statsd: StatsdConfig{HostPort: "127.0.0.1:8125", Prefix: "torrentprep"}}},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			require := require.New(t)

			s, closer, err := New(test.config, "test")
			require.NoError(err)
			s.Counter("prepared").Inc(1)
			require.NoError(closer.Close())
		})
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		desc   string
		config Config
		env    string
	}{
		{"unknown backend", Config{Backend: "graphite"}, "test"},
		{"statsd without host", Config{Backend: "statsd"}, "test"},
		{"m3 without env", Config{Backend: "m3", M3: M3Config{HostPort: "localhost:9052"}}, ""},
		{"m3 without host", Config{Backend: "m3"}, "test"},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			_, _, err := New(test.config, test.env)
			require.Error(t, err)
		})
	}
}

func TestLogReporterCounter(t *testing.T) {
	require := require.New(t)

	core, logs := observer.New(zap.InfoLevel)
	r := logReporter{zap.New(core).Sugar()}
	r.ReportCounter("prepared", map[string]string{"env": "test"}, 3)

	entries := logs.All()
	require.Len(entries, 1)
	require.Equal("counter", entries[0].Message)
	require.Equal("prepared", entries[0].ContextMap()["name"])
	require.EqualValues(3, entries[0].ContextMap()["value"])
}

func TestEmitVersion(t *testing.T) {
	require := require.New(t)

	prev, had := os.LookupEnv("GIT_DESCRIBE")
	defer func() {
		if had {
			os.Setenv("GIT_DESCRIBE", prev)
		} else {
			os.Unsetenv("GIT_DESCRIBE")
		}
	}()
	require.NoError(os.Setenv("GIT_DESCRIBE", "v1.2.3"))

	stats := tally.NewTestScope("", nil)
	EmitVersion(stats)

	var found bool
	for _, c := range stats.Snapshot().Counters() {
		if c.Name() == "version" {
			require.Equal("v1.2.3", c.Tags()["version"])
			require.Equal(int64(1), c.Value())
			found = true
		}
	}
	require.True(found)
}

func TestEmitVersionWithoutVersion(t *testing.T) {
	prevVersion, had := os.LookupEnv("GIT_DESCRIBE")
	defer func() {
		if had {
			os.Setenv("GIT_DESCRIBE", prevVersion)
		}
	}()
	os.Unsetenv("GIT_DESCRIBE")

	stats := tally.NewTestScope("", nil)
	EmitVersion(stats)
	require.Empty(t, stats.Snapshot().Counters())
}
