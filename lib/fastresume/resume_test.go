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
package fastresume

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anacrolix/torrent/bencode"
	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/require"

	"github.com/upload-assistant/torrentprep/core"
)

func TestSpannedPieces(t *testing.T) {
	mib := int64(datasize.MB)
	tests := []struct {
		desc     string
		offset   int64
		length   int64
		expected int64
	}{
		{"partial trailing piece", 0, 5 * mib / 2, 3},
		{"straddles both ends", 5 * mib / 2, 3 * mib / 2, 2},
		{"aligned", mib, 2 * mib, 2},
		{"within one piece", mib / 4, mib / 4, 1},
		{"empty file", mib, 0, 0},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			require.Equal(t, test.expected, SpannedPieces(test.offset, test.length, mib))
		})
	}
}

func TestSynthesizeTwoFiles(t *testing.T) {
	require := require.New(t)

	mib := int64(datasize.MB)
	files := map[string]int64{
		"a.mkv": 5 * mib / 2,
		"b.mkv": 3 * mib / 2,
	}
	c, cleanup := core.ContentFixture("release", files, core.ContentOptions{})
	defer cleanup()

	mi, err := core.NewMetaInfo(core.MultiFileInfoFixture("release", mib, files))
	require.NoError(err)

	mtime := time.Unix(1500000000, 0)
	for _, f := range c.Files {
		require.NoError(os.Chtimes(f, mtime, mtime))
	}

	desc, err := Synthesize(mi, c.Path)
	require.NoError(err)
	require.Len(desc.Files, 2)
	for i, completed := range []int64{3, 2} {
		require.Equal(1, desc.Files[i].Priority)
		require.Equal(mtime.Unix(), desc.Files[i].MTime.Unix())
		require.Equal(completed, desc.Files[i].Completed)
	}
	require.Equal([]byte{0xf0}, desc.Bitfield)
}

func TestSynthesizeSingleFile(t *testing.T) {
	require := require.New(t)

	c, cleanup := core.FileContentFixture("a.mkv", 20*core.MinPieceLength+1)
	defer cleanup()

	mi, err := core.NewMetaInfo(core.InfoFixture("a.mkv", 20*core.MinPieceLength+1, core.MinPieceLength))
	require.NoError(err)

	for _, dataPath := range []string{c.Path, filepath.Dir(c.Path)} {
		desc, err := Synthesize(mi, dataPath)
		require.NoError(err)
		require.Len(desc.Files, 1)
		require.Equal(int64(21), desc.Files[0].Completed)
		require.Equal([]byte{0xff, 0xff, 0xf8}, desc.Bitfield)
	}
}

func TestSynthesizeFileSizeMismatch(t *testing.T) {
	require := require.New(t)

	files := map[string]int64{"a.mkv": 1000, "b.mkv": 2000}
	c, cleanup := core.ContentFixture("release", files, core.ContentOptions{})
	defer cleanup()

	mi, err := core.NewMetaInfo(core.MultiFileInfoFixture("release", core.MinPieceLength, map[string]int64{
		"a.mkv": 1000,
		"b.mkv": 2001,
	}))
	require.NoError(err)

	desc, err := Synthesize(mi, c.Path)
	require.Nil(desc)
	require.True(IsFileSizeMismatch(err))
	require.Equal(int64(2000), err.(FileSizeMismatchError).Actual)
}

func TestSynthesizeMissingFile(t *testing.T) {
	mi, err := core.NewMetaInfo(core.InfoFixture("a.mkv", 100, core.MinPieceLength))
	require.NoError(t, err)

	_, err = Synthesize(mi, "/nonexistent/a.mkv")
	require.Error(t, err)
	require.False(t, IsFileSizeMismatch(err))
}

func TestAugmentPreservesInfoHash(t *testing.T) {
	require := require.New(t)

	mi := core.MetaInfoFixture()
	mi.Announce = "https://tracker.example/announce"
	b, err := mi.Serialize()
	require.NoError(err)

	desc := &core.ResumeDescriptor{
		Files:    []core.ResumeFile{{Priority: 1, MTime: time.Unix(1500000000, 0), Completed: 64}},
		Bitfield: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
	}
	out, err := Augment(b, desc)
	require.NoError(err)

	parsed, err := core.ParseMetaInfo(out)
	require.NoError(err)
	require.Equal(mi.InfoHash(), parsed.InfoHash())
	require.Equal(mi.Announce, parsed.Announce)

	var dict struct {
		Resume resume `bencode:"libtorrent_resume"`
	}
	require.NoError(bencode.Unmarshal(out, &dict))
	require.Equal(desc.Bitfield, dict.Resume.Bitfield)
	require.Equal([]resumeFile{{Completed: 64, MTime: 1500000000, Priority: 1}}, dict.Resume.Files)
}

func TestAugmentRejectsGarbage(t *testing.T) {
	_, err := Augment([]byte("garbage"), &core.ResumeDescriptor{})
	require.Error(t, err)
}

func TestResumePath(t *testing.T) {
	require.Equal(t, "/tmp/x/[EX]a.mkv-resume.torrent", ResumePath("/tmp/x/[EX]a.mkv.torrent"))
}
