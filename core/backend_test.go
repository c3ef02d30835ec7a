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
package core

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		input    string
		expected Backend
	}{
		{"qbittorrent", QBittorrent},
		{"rTorrent", RTorrent},
		{" deluge ", Deluge},
		{"watch", Watch},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			b, err := ParseBackend(test.input)
			require.NoError(t, err)
			require.Equal(t, test.expected, b)
		})
	}
}

func TestParseBackendUnknown(t *testing.T) {
	_, err := ParseBackend("transmission")
	require.Error(t, err)
}

func TestBackendYAML(t *testing.T) {
	require := require.New(t)

	var config struct {
		Backend Backend `yaml:"backend"`
	}
	require.NoError(yaml.Unmarshal([]byte("backend: rtorrent"), &config))
	require.Equal(RTorrent, config.Backend)

	require.Error(yaml.Unmarshal([]byte("backend: utorrent"), &config))
}

func TestBackendNormalizeHash(t *testing.T) {
	require := require.New(t)

	require.Equal("ABCDEF", RTorrent.NormalizeHash("abcDEF"))
	require.Equal("abcdef", QBittorrent.NormalizeHash("abcDEF"))
	require.True(RTorrent.AcceptsResume())
	require.False(QBittorrent.AcceptsResume())
	require.False(Deluge.AcceptsResume())
}
