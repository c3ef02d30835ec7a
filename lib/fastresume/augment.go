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
package fastresume

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anacrolix/torrent/bencode"

	"github.com/upload-assistant/torrentprep/core"
)

// ResumeKey is the top-level metainfo key rTorrent reads resume state from.
const ResumeKey = "libtorrent_resume"

type resumeFile struct {
	Completed int64 `bencode:"completed"`
	MTime     int64 `bencode:"mtime"`
	Priority  int   `bencode:"priority"`
}

type resume struct {
	Bitfield []byte       `bencode:"bitfield"`
	Files    []resumeFile `bencode:"files"`
}

// Augment adds desc to the bencoded metainfo b. Every other key, including
// the info dictionary, is copied through byte for byte.
func Augment(b []byte, desc *core.ResumeDescriptor) ([]byte, error) {
	orig, err := core.ParseMetaInfo(b)
	if err != nil {
		return nil, fmt.Errorf("parse metainfo: %s", err)
	}
	var dict map[string]bencode.Bytes
	if err := bencode.Unmarshal(b, &dict); err != nil {
		return nil, fmt.Errorf("decode metainfo: %s", err)
	}
	r := resume{Bitfield: desc.Bitfield}
	for _, f := range desc.Files {
		r.Files = append(r.Files, resumeFile{
			Completed: f.Completed,
			MTime:     f.MTime.Unix(),
			Priority:  f.Priority,
		})
	}
	rb, err := bencode.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode resume: %s", err)
	}
	dict[ResumeKey] = rb

	out, err := bencode.Marshal(dict)
	if err != nil {
		return nil, fmt.Errorf("encode metainfo: %s", err)
	}
	augmented, err := core.ParseMetaInfo(out)
	if err != nil {
		return nil, fmt.Errorf("parse augmented metainfo: %s", err)
	}
	if augmented.InfoHash() != orig.InfoHash() {
		return nil, errors.New("augmenting changed the infohash")
	}
	return out, nil
}

// ResumePath returns where the resume augmented copy of the artifact at path
// is written.
func ResumePath(path string) string {
	return strings.TrimSuffix(path, ".torrent") + "-resume.torrent"
}
