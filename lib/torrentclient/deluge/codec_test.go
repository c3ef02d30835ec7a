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
package deluge

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeValues(t *testing.T) {
	tests := []struct {
		desc  string
		input interface{}
	}{
		{"none", nil},
		{"true", true},
		{"small int", int64(5)},
		{"negative int", int64(-1)},
		{"int16", int64(1000)},
		{"int64", int64(1) << 40},
		{"float", -3.5},
		{"string", "abc"},
		{"long string", strings.Repeat("x", 100)},
		{"list", []interface{}{int64(1), "a"}},
		{"dict", map[string]interface{}{"b": int64(1), "a": "x"}},
		{"nested", []interface{}{
			"core.add_torrent_file",
			[]interface{}{"Movie.torrent", map[string]interface{}{"seed_mode": true}},
			map[string]interface{}{},
		}},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			require := require.New(t)

			var buf bytes.Buffer
			require.NoError(encode(&buf, test.input))
			output, err := decode(&buf)
			require.NoError(err)
			require.Equal(test.input, output)
		})
	}
}

func TestEncodeNormalizesInt(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	require.NoError(encode(&buf, []interface{}{7}))
	output, err := decode(&buf)
	require.NoError(err)
	require.Equal([]interface{}{int64(7)}, output)
}

func TestEncodeLargeContainers(t *testing.T) {
	require := require.New(t)

	list := make([]interface{}, 70)
	for i := range list {
		list[i] = int64(i - 35)
	}
	dict := make(map[string]interface{})
	for i := 0; i < 30; i++ {
		dict[strings.Repeat("k", i+1)] = int64(1) << uint(i*2)
	}
	input := []interface{}{list, dict}

	var buf bytes.Buffer
	require.NoError(encode(&buf, input))
	output, err := decode(&buf)
	require.NoError(err)
	require.Equal(input, output)
}

func TestMessageFraming(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	msg := []interface{}{int64(1), int64(7), "ok"}
	require.NoError(writeMessage(&buf, msg))
	require.Equal(byte(protocolVersion), buf.Bytes()[0])

	out, err := readMessage(&buf)
	require.NoError(err)
	require.Equal(msg, out)
}

func TestReadMessageRejectsUnknownVersion(t *testing.T) {
	_, err := readMessage(bytes.NewReader([]byte{9, 0, 0, 0, 0}))
	require.Error(t, err)
}

func TestReadMessageRejectsOversizedFrame(t *testing.T) {
	_, err := readMessage(bytes.NewReader([]byte{protocolVersion, 0xff, 0xff, 0xff, 0xff}))
	require.Error(t, err)
}
