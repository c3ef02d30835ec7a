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
package torrentmatch

import "github.com/c2h5oh/datasize"

// RehashThreshold rejects candidates with at least MinPieces pieces smaller
// than PieceLength.
type RehashThreshold struct {
	MinPieces   int               `yaml:"min_pieces"`
	PieceLength datasize.ByteSize `yaml:"piece_length"`
}

// Config defines Matcher configuration.
type Config struct {
	RehashThresholds []RehashThreshold `yaml:"rehash_thresholds"`

	// MinPieceLength rejects candidates with smaller pieces regardless of
	// their count.
	MinPieceLength datasize.ByteSize `yaml:"min_piece_length"`
}

func (c Config) applyDefaults() Config {
	if c.RehashThresholds == nil {
		c.RehashThresholds = []RehashThreshold{
			{MinPieces: 7000, PieceLength: 8 * datasize.MB},
			{MinPieces: 4000, PieceLength: 4 * datasize.MB},
		}
	}
	if c.MinPieceLength == 0 {
		c.MinPieceLength = 32 * datasize.KB
	}
	return c
}
