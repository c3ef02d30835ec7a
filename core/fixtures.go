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
	"crypto/sha1"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/upload-assistant/torrentprep/utils/randutil"
)

// InfoFixture returns a valid single-file Info with random piece hashes.
func InfoFixture(name string, length, pieceLength int64) Info {
	n := NumPiecesFor(length, pieceLength)
	pieces := make([]byte, 0, n*PieceHashSize)
	for i := 0; i < n; i++ {
		h := sha1.Sum(randutil.Text(16))
		pieces = append(pieces, h[:]...)
	}
	return Info{
		Name:        name,
		PieceLength: pieceLength,
		Pieces:      pieces,
		Length:      length,
		Private:     true,
	}
}

// MultiFileInfoFixture returns a valid multi-file Info with random piece
// hashes. Each path is "/" separated.
func MultiFileInfoFixture(name string, pieceLength int64, files map[string]int64) Info {
	info := Info{Name: name, PieceLength: pieceLength, Private: true}
	for _, p := range sortedKeys(files) {
		info.Files = append(info.Files, FileInfo{Length: files[p], Path: strings.Split(p, "/")})
	}
	n := NumPiecesFor(info.TotalLength(), pieceLength)
	for i := 0; i < n; i++ {
		h := sha1.Sum(randutil.Text(16))
		info.Pieces = append(info.Pieces, h[:]...)
	}
	return info
}

// MetaInfoFixture returns a single-file MetaInfo.
func MetaInfoFixture() *MetaInfo {
	mi, err := NewMetaInfo(InfoFixture("release.mkv", 1<<20, MinPieceLength))
	if err != nil {
		panic(err)
	}
	return mi
}

// ContentFixture writes files of the given sizes under a new temporary
// directory named name and returns a descriptor for it along with a cleanup
// function. Paths are "/" separated and relative to the content root.
func ContentFixture(name string, files map[string]int64, opts ContentOptions) (*ContentDescriptor, func()) {
	tmp, err := ioutil.TempDir("", "content")
	if err != nil {
		panic(err)
	}
	cleanup := func() { os.RemoveAll(tmp) }
	root := filepath.Join(tmp, name)
	for _, p := range sortedKeys(files) {
		full := filepath.Join(root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			panic(err)
		}
		if err := ioutil.WriteFile(full, randutil.Text(int(files[p])), 0644); err != nil {
			panic(err)
		}
	}
	c, err := ScanContent(root, name, opts)
	if err != nil {
		cleanup()
		panic(err)
	}
	return c, cleanup
}

// FileContentFixture writes a single file named name of the given size and
// returns a descriptor for it.
func FileContentFixture(name string, size int64) (*ContentDescriptor, func()) {
	tmp, err := ioutil.TempDir("", "content")
	if err != nil {
		panic(err)
	}
	cleanup := func() { os.RemoveAll(tmp) }
	p := filepath.Join(tmp, name)
	if err := ioutil.WriteFile(p, randutil.Text(int(size)), 0644); err != nil {
		panic(err)
	}
	c, err := ScanContent(p, "", ContentOptions{})
	if err != nil {
		cleanup()
		panic(err)
	}
	return c, cleanup
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
