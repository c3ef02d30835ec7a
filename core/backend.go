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
	"fmt"
	"strings"
)

// Backend identifies a kind of torrent client.
type Backend int

// Supported backends.
const (
	UnknownBackend Backend = iota
	QBittorrent
	RTorrent
	Deluge
	Watch
)

var _backendNames = map[Backend]string{
	QBittorrent: "qbittorrent",
	RTorrent:    "rtorrent",
	Deluge:      "deluge",
	Watch:       "watch",
}

// ParseBackend converts a backend name into a Backend.
func ParseBackend(s string) (Backend, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for b, n := range _backendNames {
		if n == name {
			return b, nil
		}
	}
	return UnknownBackend, fmt.Errorf("unknown backend %q", s)
}

func (b Backend) String() string {
	if n, ok := _backendNames[b]; ok {
		return n
	}
	return "unknown"
}

// NormalizeHash converts a hex infohash to the case b expects. rTorrent keys
// torrents by upper case hashes, everything else by lower case.
func (b Backend) NormalizeHash(hash string) string {
	if b == RTorrent {
		return strings.ToUpper(hash)
	}
	return strings.ToLower(hash)
}

// AcceptsResume returns whether b can consume fast resume data embedded in a
// metainfo artifact.
func (b Backend) AcceptsResume() bool {
	return b == RTorrent
}

// PathSeparator returns the separator b uses for remote paths by default.
func (b Backend) PathSeparator() string {
	return "/"
}

// UnmarshalYAML parses a backend name from yaml.
func (b *Backend) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseBackend(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// MarshalYAML renders b as its name.
func (b Backend) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}
