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
	"errors"
	"sort"

	"github.com/c2h5oh/datasize"

	"github.com/upload-assistant/torrentprep/lib/piecesize"
)

// Config defines Generator configuration.
type Config struct {
	PieceSize piecesize.Config `yaml:"piece_size"`

	// PieceLengths optionally pins piece lengths by minimum content size,
	// bypassing the piece size search entirely.
	PieceLengths map[datasize.ByteSize]datasize.ByteSize `yaml:"piece_lengths"`

	CreatedBy string `yaml:"created_by"`

	// HashWorkers bounds the number of pieces hashed concurrently.
	HashWorkers int `yaml:"hash_workers"`
}

func (c Config) applyDefaults() Config {
	if c.CreatedBy == "" {
		c.CreatedBy = "torrentprep"
	}
	if c.HashWorkers == 0 {
		c.HashWorkers = 4
	}
	return c
}

// pieceLengthConfig maps a content size to the piece length pinned for the
// largest configured size not above it.
type pieceLengthConfig struct {
	bounds []int64
	pieces []int64
}

func newPieceLengthConfig(
	byContentSize map[datasize.ByteSize]datasize.ByteSize) (*pieceLengthConfig, error) {

	if len(byContentSize) == 0 {
		return nil, errors.New("no piece lengths configured")
	}
	c := &pieceLengthConfig{}
	for size := range byContentSize {
		c.bounds = append(c.bounds, int64(size))
	}
	sort.Slice(c.bounds, func(i, j int) bool { return c.bounds[i] < c.bounds[j] })
	for _, b := range c.bounds {
		c.pieces = append(c.pieces, int64(byContentSize[datasize.ByteSize(b)]))
	}
	return c, nil
}

func (c *pieceLengthConfig) get(total int64) int64 {
	i := sort.Search(len(c.bounds), func(i int) bool { return c.bounds[i] > total })
	if i == 0 {
		return c.pieces[0]
	}
	return c.pieces[i-1]
}
