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

// Package pathmap translates content paths between the local filesystem and
// the filesystem a torrent client sees, e.g. when the client runs in a
// container or on another host.
package pathmap

import (
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Mapping pairs a local path prefix with the path the client knows it by.
type Mapping struct {
	Local  string `yaml:"local"`
	Remote string `yaml:"remote"`
}

// active returns false for mappings which would not change anything.
func (m Mapping) active() bool {
	return !strings.EqualFold(normalize(m.Local), normalize(m.Remote))
}

// Mapper resolves paths against an ordered list of mappings.
type Mapper struct {
	mappings  []Mapping
	separator string
}

// New creates a Mapper. Remote paths are emitted with separator, which
// defaults to "/".
func New(mappings []Mapping, separator string) *Mapper {
	if separator == "" {
		separator = "/"
	}
	var ms []Mapping
	for _, m := range mappings {
		ms = append(ms, Mapping{normalize(m.Local), normalize(m.Remote)})
	}
	return &Mapper{ms, separator}
}

// Match returns the first mapping whose local prefix occurs in p, ignoring
// case.
func (m *Mapper) Match(p string) (Mapping, bool) {
	np := normalize(p)
	for _, mapping := range m.mappings {
		if mapping.Local == "" {
			continue
		}
		if i, _ := indexFold(np, mapping.Local); i >= 0 {
			return mapping, true
		}
	}
	return Mapping{}, false
}

// Active returns true if resolving p would change it.
func (m *Mapper) Active(p string) bool {
	mapping, ok := m.Match(p)
	return ok && mapping.active()
}

// Resolve maps a local path to the client's view of it. Paths without a
// matching mapping are returned unchanged.
func (m *Mapper) Resolve(p string) string {
	mapping, ok := m.Match(p)
	if !ok || !mapping.active() {
		return p
	}
	mapped := replaceFold(normalize(p), mapping.Local, mapping.Remote)
	return strings.Replace(mapped, "/", m.separator, -1)
}

// Reverse maps a path reported by the client back to the local filesystem.
// Paths which do not contain any remote prefix are returned unchanged.
func (m *Mapper) Reverse(p string) string {
	np := normalize(p)
	for _, mapping := range m.mappings {
		if !mapping.active() || mapping.Remote == "" {
			continue
		}
		if _, ok := prefixFold(np, mapping.Local); ok {
			return filepath.FromSlash(np)
		}
		if i, _ := indexFold(np, mapping.Remote); i < 0 {
			continue
		}
		local := replaceFold(np, mapping.Remote, mapping.Local)

		// Remote roots which end in the same directory as the local root
		// yield the last segment twice.
		dup := mapping.Local + "/" + path.Base(mapping.Local)
		if n, ok := prefixFold(local, dup); ok {
			local = mapping.Local + local[n:]
		}
		return filepath.FromSlash(local)
	}
	return p
}

// normalize converts p to "/" separators and removes trailing separators.
func normalize(p string) string {
	if p == "" {
		return ""
	}
	p = strings.Replace(p, "\\", "/", -1)
	return path.Clean(p)
}

// replaceFold replaces the first case-insensitive occurrence of old in s.
func replaceFold(s, old, new string) string {
	i, n := indexFold(s, old)
	if i < 0 {
		return s
	}
	return s[:i] + new + s[i+n:]
}

// indexFold returns the byte offset and byte length of the first
// case-insensitive occurrence of sub in s, or -1. Matches are compared rune
// by rune, so their byte length may differ from len(sub).
func indexFold(s, sub string) (int, int) {
	for i := 0; i <= len(s); {
		if n, ok := prefixFold(s[i:], sub); ok {
			return i, n
		}
		if i == len(s) {
			break
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1, 0
}

// prefixFold reports whether s starts with prefix under case folding, and the
// byte length of the matching part of s.
func prefixFold(s, prefix string) (int, bool) {
	runes := utf8.RuneCountInString(prefix)
	n := 0
	for k := 0; k < runes; k++ {
		if n == len(s) {
			return 0, false
		}
		_, size := utf8.DecodeRuneInString(s[n:])
		n += size
	}
	if !strings.EqualFold(s[:n], prefix) {
		return 0, false
	}
	return n, true
}
