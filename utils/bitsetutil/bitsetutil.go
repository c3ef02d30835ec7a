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
package bitsetutil

import "github.com/willf/bitset"

// FromBools returns a new BitSet from the given bools.
func FromBools(bs ...bool) *bitset.BitSet {
	s := bitset.New(uint(len(bs)))
	for i, b := range bs {
		s.SetTo(uint(i), b)
	}
	return s
}

// Complete returns a BitSet of length n with every bit set.
func Complete(n uint) *bitset.BitSet {
	return bitset.New(n).Complement()
}

// Pack serializes the first n bits of s into ceil(n/8) bytes, most significant
// bit first, which is the layout BitTorrent clients use for piece bitfields.
// Trailing bits of the last byte are zero.
func Pack(s *bitset.BitSet, n uint) []byte {
	b := make([]byte, (n+7)/8)
	for i := uint(0); i < n; i++ {
		if s.Test(i) {
			b[i/8] |= 0x80 >> (i % 8)
		}
	}
	return b
}
