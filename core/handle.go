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
	"io/ioutil"
	"time"
)

// TorrentHandle identifies a torrent registered with a client.
type TorrentHandle struct {
	InfoHash    InfoHash
	Client      string
	Backend     Backend
	StoragePath string

	// Destination is the label of the destination whose metainfo file was
	// registered, empty for the base file.
	Destination string
}

func (h TorrentHandle) String() string {
	s := fmt.Sprintf("%s@%s(%s):%s", h.InfoHash.HexFor(h.Backend), h.Client, h.Backend, h.StoragePath)
	if h.Destination != "" {
		s = fmt.Sprintf("[%s]%s", h.Destination, s)
	}
	return s
}

// ResumeFile is the fast resume state of one file.
type ResumeFile struct {
	Priority  int
	MTime     time.Time
	Completed int64
}

// ResumeDescriptor is synthesized fast resume state declaring every piece of
// a torrent as verified.
type ResumeDescriptor struct {
	Files    []ResumeFile
	Bitfield []byte
}

// Registration is everything a client needs to start seeding a torrent.
type Registration struct {
	Content  *ContentDescriptor
	MetaInfo *MetaInfo

	// ArtifactPath is the metainfo file on local disk.
	ArtifactPath string

	// Destination labels the destination MetaInfo and ArtifactPath were
	// cloned for. Empty means the base metainfo.
	Destination string

	// DataPath is the local root of the torrent's data, see
	// metainfogen.DataPath.
	DataPath string

	// Resume is set only for reused torrents whose data was verified against
	// the declared sizes.
	Resume *ResumeDescriptor

	Label    string
	Category string
	Tags     []string
}

// ArtifactBytes returns the metainfo file to hand to a client, read from
// ArtifactPath if set.
func (r Registration) ArtifactBytes() ([]byte, error) {
	if r.ArtifactPath == "" {
		return r.MetaInfo.Serialize()
	}
	b, err := ioutil.ReadFile(r.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %s", err)
	}
	return b, nil
}
