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
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/upload-assistant/torrentprep/core"
)

// FileSpec is one file of a torrent in piece order.
type FileSpec struct {
	Path   string
	Length int64
}

// PieceHasher computes the concatenated piece hashes of files laid out back
// to back.
type PieceHasher interface {
	HashPieces(ctx context.Context, files []FileSpec, pieceLength int64) ([]byte, error)
}

type sha1Hasher struct {
	workers int
}

// NewSHA1Hasher returns a PieceHasher which hashes up to workers pieces
// concurrently.
func NewSHA1Hasher(workers int) PieceHasher {
	if workers <= 0 {
		workers = 1
	}
	return &sha1Hasher{workers}
}

func (h *sha1Hasher) HashPieces(
	ctx context.Context, files []FileSpec, pieceLength int64) ([]byte, error) {

	if pieceLength <= 0 {
		return nil, fmt.Errorf("invalid piece length %d", pieceLength)
	}
	var total int64
	for _, f := range files {
		total += f.Length
	}
	n := core.NumPiecesFor(total, pieceLength)
	pieces := make([]byte, n*core.PieceHashSize)

	indices := make(chan int)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(indices)
		for i := 0; i < n; i++ {
			select {
			case indices <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < h.workers; w++ {
		g.Go(func() error {
			buf := make([]byte, pieceLength)
			for i := range indices {
				if err := ctx.Err(); err != nil {
					return err
				}
				start := int64(i) * pieceLength
				end := start + pieceLength
				if end > total {
					end = total
				}
				if err := readWindow(files, start, buf[:end-start]); err != nil {
					return fmt.Errorf("piece %d: %s", i, err)
				}
				sum := sha1.Sum(buf[:end-start])
				copy(pieces[i*core.PieceHashSize:], sum[:])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pieces, nil
}

// readWindow fills buf with the bytes at offset of the concatenation of files.
func readWindow(files []FileSpec, offset int64, buf []byte) error {
	var pos int64
	for _, f := range files {
		if len(buf) == 0 {
			return nil
		}
		if offset >= pos+f.Length {
			pos += f.Length
			continue
		}
		within := offset - pos
		n := f.Length - within
		if n > int64(len(buf)) {
			n = int64(len(buf))
		}
		if err := readAt(f.Path, within, buf[:n]); err != nil {
			return err
		}
		buf = buf[n:]
		offset += n
		pos += f.Length
	}
	if len(buf) != 0 {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func readAt(path string, off int64, buf []byte) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.ReadAt(buf, off); err != nil {
		return fmt.Errorf("read %s: %s", path, err)
	}
	return nil
}
