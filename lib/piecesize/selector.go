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

// Package piecesize picks a piece length for a new torrent which keeps both
// the number of pieces and the size of the resulting .torrent file within
// bounds trackers accept.
package piecesize

import (
	"fmt"
	"math"

	"github.com/upload-assistant/torrentprep/core"
	"github.com/upload-assistant/torrentprep/utils/memsize"
)

// Fixed per-torrent and per-piece overhead of the artifact estimate.
const (
	baseOverhead     = 20
	perPieceOverhead = core.PieceHashSize
)

// SizingWarning is returned alongside a usable piece length when the search
// hit a piece length bound before reaching the target band.
type SizingWarning struct {
	Reason       string
	PieceLength  int64
	NumPieces    int
	ArtifactSize int64
}

func (w *SizingWarning) Error() string {
	return fmt.Sprintf(
		"piece length %s: %s (pieces: %d, estimated torrent size: %s)",
		memsize.Format(uint64(w.PieceLength)), w.Reason, w.NumPieces,
		memsize.Format(uint64(w.ArtifactSize)))
}

// Result is the outcome of a piece length search.
type Result struct {
	PieceLength  int64
	NumPieces    int
	ArtifactSize int64
	Iterations   int

	// Warning is non-nil if the target band could not be reached. PieceLength
	// is still valid.
	Warning *SizingWarning
}

// Selector selects piece lengths.
type Selector struct {
	config Config
}

// New creates a new Selector.
func New(config Config) *Selector {
	return &Selector{config.applyDefaults()}
}

// Select returns the piece length to use for content of total bytes whose
// torrent-relative file paths are paths. A positive maxOverride lowers the
// configured maximum piece length, it never raises it.
func (s *Selector) Select(total int64, paths []string, maxOverride int64) Result {
	min, max := s.bounds(maxOverride)
	pathBytes := s.pathnameBytes(paths)

	piece := clamp(int64(s.config.InitialPieceLength), min, max)
	r := s.evaluate(total, piece, pathBytes)
	for !s.satisfied(r) {
		if r.Iterations >= s.config.MaxIterations {
			r.Warning = s.warning("iteration limit reached", r)
			break
		}
		if r.NumPieces > s.config.MaxPieces || r.ArtifactSize > int64(s.config.MaxArtifactSize) {
			if piece >= max {
				r.Warning = s.warning("maximum piece length reached", r)
				break
			}
			piece *= 2
		} else {
			if piece <= min {
				r.Warning = s.warning("minimum piece length reached", r)
				break
			}
			piece /= 2
		}
		iterations := r.Iterations + 1
		r = s.evaluate(total, piece, pathBytes)
		r.Iterations = iterations
	}
	return r
}

// EstimateArtifactSize returns the estimated .torrent size for numPieces
// pieces and paths.
func (s *Selector) EstimateArtifactSize(numPieces int, paths []string) int64 {
	return baseOverhead + perPieceOverhead*int64(numPieces) + s.pathnameBytes(paths)
}

func (s *Selector) evaluate(total, piece, pathBytes int64) Result {
	n := core.NumPiecesFor(total, piece)
	return Result{
		PieceLength:  piece,
		NumPieces:    n,
		ArtifactSize: baseOverhead + perPieceOverhead*int64(n) + pathBytes,
	}
}

func (s *Selector) satisfied(r Result) bool {
	if r.ArtifactSize > int64(s.config.MaxArtifactSize) {
		return false
	}
	if r.NumPieces >= s.config.MinPieces && r.NumPieces <= s.config.MaxPieces {
		return true
	}
	return r.NumPieces < s.config.MinPieces && r.ArtifactSize >= int64(s.config.MinArtifactSize)
}

func (s *Selector) warning(reason string, r Result) *SizingWarning {
	return &SizingWarning{
		Reason:       reason,
		PieceLength:  r.PieceLength,
		NumPieces:    r.NumPieces,
		ArtifactSize: r.ArtifactSize,
	}
}

// bounds returns the power of two piece length bounds for one search.
func (s *Selector) bounds(maxOverride int64) (min, max int64) {
	min = floorPow2(int64(s.config.MinPieceLength))
	if min < core.MinPieceLength {
		min = core.MinPieceLength
	}
	max = int64(s.config.MaxPieceLength)
	if max > core.MaxPieceLength {
		max = core.MaxPieceLength
	}
	if maxOverride > 0 && maxOverride < max {
		max = maxOverride
	}
	max = floorPow2(max)
	if max < min {
		max = min
	}
	return min, max
}

func (s *Selector) pathnameBytes(paths []string) int64 {
	var n int64
	for _, p := range paths {
		n += int64(len(p))
	}
	for _, d := range s.config.PathDiscounts {
		if len(paths) > d.MinFiles {
			return int64(math.Round(float64(n) * d.Factor))
		}
	}
	return n
}

func clamp(n, min, max int64) int64 {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return floorPow2(n)
}

func floorPow2(n int64) int64 {
	if n <= 0 {
		return 0
	}
	p := int64(1)
	for p*2 <= n {
		p *= 2
	}
	return p
}
