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
package piecesize

import (
	"github.com/c2h5oh/datasize"
)

// PathDiscount scales the raw pathname bytes of a torrent with more than
// MinFiles files. Long file lists share directory prefixes, so the raw sum
// overestimates their encoded size.
type PathDiscount struct {
	MinFiles int     `yaml:"min_files"`
	Factor   float64 `yaml:"factor"`
}

// Config defines the piece length search space and target band.
type Config struct {
	InitialPieceLength datasize.ByteSize `yaml:"initial_piece_length"`
	MinPieceLength     datasize.ByteSize `yaml:"min_piece_length"`
	MaxPieceLength     datasize.ByteSize `yaml:"max_piece_length"`

	// Target number of pieces.
	MinPieces int `yaml:"min_pieces"`
	MaxPieces int `yaml:"max_pieces"`

	// Estimated .torrent size bounds. Below MinPieces, a build is still
	// acceptable when its artifact falls within these bounds.
	MinArtifactSize datasize.ByteSize `yaml:"min_artifact_size"`
	MaxArtifactSize datasize.ByteSize `yaml:"max_artifact_size"`

	// PathDiscounts are checked in order, the first one whose MinFiles is
	// exceeded applies.
	PathDiscounts []PathDiscount `yaml:"path_discounts"`

	MaxIterations int `yaml:"max_iterations"`
}

func (c Config) applyDefaults() Config {
	if c.InitialPieceLength == 0 {
		c.InitialPieceLength = 4 * datasize.MB
	}
	if c.MinPieceLength == 0 {
		c.MinPieceLength = 16 * datasize.KB
	}
	if c.MaxPieceLength == 0 {
		c.MaxPieceLength = 256 * datasize.MB
	}
	if c.MinPieces == 0 {
		c.MinPieces = 750
	}
	if c.MaxPieces == 0 {
		c.MaxPieces = 2200
	}
	if c.MinArtifactSize == 0 {
		c.MinArtifactSize = 40960
	}
	if c.MaxArtifactSize == 0 {
		c.MaxArtifactSize = 250000
	}
	if c.PathDiscounts == nil {
		c.PathDiscounts = []PathDiscount{
			{MinFiles: 1000, Factor: 0.71},
			{MinFiles: 500, Factor: 0.8},
		}
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = 64
	}
	return c
}
