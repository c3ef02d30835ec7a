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
	"bytes"
	"crypto/sha1"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	bencode "github.com/jackpal/bencode-go"

	"github.com/upload-assistant/torrentprep/utils/memsize"
)

// Piece length bounds accepted in any info dictionary.
const (
	MinPieceLength int64 = 16 * int64(memsize.KB)
	MaxPieceLength int64 = 256 * int64(memsize.MB)
)

// PieceHashSize is the size of a single SHA1 piece hash.
const PieceHashSize = sha1.Size

// FileInfo is one file entry of a multi-file info dictionary.
type FileInfo struct {
	Length int64
	Path   []string
}

// DisplayPath joins the path components of fi with "/".
func (fi FileInfo) DisplayPath() string {
	return strings.Join(fi.Path, "/")
}

// Info is a torrent info dictionary. Only the fields in here contribute to the
// infohash.
type Info struct {
	Name        string
	PieceLength int64
	Pieces      []byte
	Length      int64
	Files       []FileInfo
	Private     bool

	// Source is only set for torrents which carry their source tag inside
	// the info dictionary. Newly built torrents keep it in MetaInfo.
	Source string
}

// IsDir returns true if info describes a multi-file torrent.
func (info *Info) IsDir() bool {
	return len(info.Files) != 0
}

// TotalLength returns the sum of all file lengths.
func (info *Info) TotalLength() (ret int64) {
	if !info.IsDir() {
		return info.Length
	}
	for _, f := range info.Files {
		ret += f.Length
	}
	return ret
}

// NumPieces returns the number of piece hashes in info.
func (info *Info) NumPieces() int {
	return len(info.Pieces) / PieceHashSize
}

// GetPieceLength returns the length of piece i.
func (info *Info) GetPieceLength(i int) int64 {
	n := info.NumPieces()
	if i < 0 || i >= n {
		return 0
	}
	if i == n-1 {
		return info.TotalLength() - info.PieceLength*int64(i)
	}
	return info.PieceLength
}

// UpvertedFiles returns the files of info, treating a single-file torrent as
// one file named after the torrent.
func (info *Info) UpvertedFiles() []FileInfo {
	if info.IsDir() {
		return info.Files
	}
	return []FileInfo{{Length: info.Length, Path: []string{info.Name}}}
}

// LocalPaths returns the on-disk location of every file of info whose content
// lives at root. A single-file torrent is root itself unless root is a
// directory holding it.
func (info *Info) LocalPaths(root string, rootIsDir bool) []string {
	if !info.IsDir() {
		if rootIsDir {
			return []string{filepath.Join(root, info.Name)}
		}
		return []string{root}
	}
	paths := make([]string, len(info.Files))
	for i, f := range info.Files {
		paths[i] = filepath.Join(append([]string{root}, f.Path...)...)
	}
	return paths
}

// Validate checks the structural invariants of info.
func (info *Info) Validate() error {
	if info.Name == "" {
		return errors.New("empty name")
	}
	if !IsValidPieceLength(info.PieceLength) {
		return fmt.Errorf("invalid piece length %d", info.PieceLength)
	}
	if len(info.Pieces)%PieceHashSize != 0 {
		return fmt.Errorf("pieces length %d is not a multiple of %d", len(info.Pieces), PieceHashSize)
	}
	if info.IsDir() && info.Length != 0 {
		return errors.New("both length and files set")
	}
	for _, f := range info.Files {
		if len(f.Path) == 0 {
			return errors.New("file with empty path")
		}
		if f.Length < 0 {
			return fmt.Errorf("negative length for %s", f.DisplayPath())
		}
	}
	expected := NumPiecesFor(info.TotalLength(), info.PieceLength)
	if info.NumPieces() != expected {
		return fmt.Errorf("expected %d pieces, got %d", expected, info.NumPieces())
	}
	return nil
}

// Bencode returns the canonical bencoding of info. Keys are emitted in sorted
// order so identical infos always produce identical bytes.
func (info *Info) Bencode() ([]byte, error) {
	var b bytes.Buffer
	if err := bencode.Marshal(&b, info.dict()); err != nil {
		return nil, fmt.Errorf("bencode: %s", err)
	}
	return b.Bytes(), nil
}

// ComputeInfoHash returns the SHA1 of the bencoded info.
func (info *Info) ComputeInfoHash() (InfoHash, error) {
	b, err := info.Bencode()
	if err != nil {
		return InfoHash{}, err
	}
	return NewInfoHashFromBytes(b), nil
}

func (info *Info) dict() map[string]interface{} {
	d := map[string]interface{}{
		"name":         info.Name,
		"piece length": info.PieceLength,
		"pieces":       string(info.Pieces),
	}
	if info.IsDir() {
		files := make([]interface{}, len(info.Files))
		for i, f := range info.Files {
			path := make([]interface{}, len(f.Path))
			for j, p := range f.Path {
				path[j] = p
			}
			files[i] = map[string]interface{}{
				"length": f.Length,
				"path":   path,
			}
		}
		d["files"] = files
	} else {
		d["length"] = info.Length
	}
	if info.Private {
		d["private"] = int64(1)
	}
	if info.Source != "" {
		d["source"] = info.Source
	}
	return d
}

// IsValidPieceLength returns true if n is a power of two within the global
// piece length bounds.
func IsValidPieceLength(n int64) bool {
	return n >= MinPieceLength && n <= MaxPieceLength && n&(n-1) == 0
}

// NumPiecesFor returns ceil(total / pieceLength).
func NumPiecesFor(total, pieceLength int64) int {
	if pieceLength <= 0 {
		return 0
	}
	return int((total + pieceLength - 1) / pieceLength)
}
