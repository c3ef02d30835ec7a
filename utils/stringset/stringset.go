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
package stringset

// Set is a set of strings. Because it is a map, make/range/len work with Set.
type Set map[string]struct{}

// New creates a new Set with xs.
func New(xs ...string) Set {
	s := make(Set)
	for _, x := range xs {
		s.Add(x)
	}
	return s
}

// Add adds x to s.
func (s Set) Add(x string) {
	s[x] = struct{}{}
}

// Has returns true if x is in s.
func (s Set) Has(x string) bool {
	_, ok := s[x]
	return ok
}

// Dedupe returns the non-empty elements of xs in order, without repeats.
func Dedupe(xs []string) []string {
	seen := make(Set)
	var result []string
	for _, x := range xs {
		if x == "" || seen.Has(x) {
			continue
		}
		seen.Add(x)
		result = append(result, x)
	}
	return result
}
