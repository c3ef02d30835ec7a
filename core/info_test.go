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
)

func TestInfoValidateErrors(t *testing.T) {
	valid := InfoFixture("a.mkv", 100000, MinPieceLength)

	tests := []struct {
		desc   string
		mutate func(*Info)
	}{
		{"empty name", func(i *Info) { i.Name = "" }},
		{"piece length not power of two", func(i *Info) { i.PieceLength = MinPieceLength + 1 }},
		{"piece length too small", func(i *Info) { i.PieceLength = MinPieceLength / 2 }},
		{"piece length too large", func(i *Info) { i.PieceLength = MaxPieceLength * 2 }},
		{"truncated pieces", func(i *Info) { i.Pieces = i.Pieces[:len(i.Pieces)-1] }},
		{"missing piece", func(i *Info) { i.Pieces = i.Pieces[:len(i.Pieces)-PieceHashSize] }},
		{"extra piece", func(i *Info) { i.Pieces = append(i.Pieces, make([]byte, PieceHashSize)...) }},
		{"length and files", func(i *Info) { i.Files = []FileInfo{{Length: 1, Path: []string{"x"}}} }},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			info := valid
			info.Pieces = append([]byte(nil), valid.Pieces...)
			test.mutate(&info)
			require.Error(t, info.Validate())
		})
	}
}

func TestInfoPieces(t *testing.T) {
	require := require.New(t)

	info := InfoFixture("a.mkv", 3*MinPieceLength+5, MinPieceLength)
	require.NoError(info.Validate())
	require.Equal(4, info.NumPieces())
	require.Equal(MinPieceLength, info.GetPieceLength(0))
	require.Equal(int64(5), info.GetPieceLength(3))
	require.Equal(int64(0), info.GetPieceLength(4))
}

func TestMultiFileInfo(t *testing.T) {
	require := require.New(t)

	info := MultiFileInfoFixture("release", MinPieceLength, map[string]int64{
		"b.mkv":       MinPieceLength,
		"sub/a.mkv":   10,
		"sub/c.nfo":   20,
		"sub/d/e.srt": 30,
	})
	require.NoError(info.Validate())
	require.True(info.IsDir())
	require.Equal(MinPieceLength+60, info.TotalLength())
	require.Equal(2, info.NumPieces())
	require.Equal("sub/d/e.srt", info.Files[3].DisplayPath())
	require.Len(info.UpvertedFiles(), 4)
}

func TestInfoBencodeIsDeterministic(t *testing.T) {
	require := require.New(t)

	info := MultiFileInfoFixture("release", MinPieceLength, map[string]int64{
		"a.mkv": 100,
		"b.mkv": 200,
	})
	b1, err := info.Bencode()
	require.NoError(err)
	b2, err := info.Bencode()
	require.NoError(err)
	require.Equal(b1, b2)

	h1, err := info.ComputeInfoHash()
	require.NoError(err)
	require.Equal(NewInfoHashFromBytes(b1), h1)
}

func TestInfoBencodeKeyOrder(t *testing.T) {
	require := require.New(t)

	info := Info{
		Name:        "x",
		PieceLength: MinPieceLength,
		Pieces:      make([]byte, PieceHashSize),
		Length:      1,
		Private:     true,
	}
	b, err := info.Bencode()
	require.NoError(err)
	require.Equal(
		"d6:lengthi1e4:name1:x12:piece lengthi16384e6:pieces20:"+string(make([]byte, PieceHashSize))+"7:privatei1ee",
		string(b))
}

func TestIsValidPieceLength(t *testing.T) {
	require := require.New(t)

	require.True(IsValidPieceLength(MinPieceLength))
	require.True(IsValidPieceLength(4 << 20))
	require.True(IsValidPieceLength(MaxPieceLength))
	require.False(IsValidPieceLength(3 << 20))
	require.False(IsValidPieceLength(0))
}

func TestNumPiecesFor(t *testing.T) {
	require := require.New(t)

	require.Equal(0, NumPiecesFor(0, MinPieceLength))
	require.Equal(1, NumPiecesFor(1, MinPieceLength))
	require.Equal(1, NumPiecesFor(MinPieceLength, MinPieceLength))
	require.Equal(2, NumPiecesFor(MinPieceLength+1, MinPieceLength))
}

func TestInfoLocalPaths(t *testing.T) {
	require := require.New(t)

	single := InfoFixture("a.mkv", 10, MinPieceLength)
	require.Equal([]string{"/data/a.mkv"}, single.LocalPaths("/data/a.mkv", false))
	require.Equal([]string{"/data/a.mkv"}, single.LocalPaths("/data", true))

	multi := MultiFileInfoFixture("rel", MinPieceLength, map[string]int64{
		"x/b.mkv": 1,
		"a.mkv":   2,
	})
	require.Equal([]string{"/data/rel/a.mkv", "/data/rel/x/b.mkv"}, multi.LocalPaths("/data/rel", true))
}
