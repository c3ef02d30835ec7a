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
	"bytes"
	"fmt"
	"io/ioutil"
	"sort"

	abencode "github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"
	bencode "github.com/jackpal/bencode-go"
)

// MetaInfo is a BitTorrent v1 metainfo file. Everything outside Info is
// destination specific and may differ between clones of one build without
// changing the infohash.
type MetaInfo struct {
	Info         Info
	Announce     string
	AnnounceList [][]string
	Comment      string
	CreatedBy    string
	CreationDate int64
	Source       string

	// rawInfo holds the exact info bytes of a parsed metainfo so that
	// re-serializing never changes its infohash.
	rawInfo  []byte
	infoHash InfoHash
}

// NewMetaInfo validates info and wraps it into a MetaInfo.
func NewMetaInfo(info Info) (*MetaInfo, error) {
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("invalid info: %s", err)
	}
	h, err := info.ComputeInfoHash()
	if err != nil {
		return nil, fmt.Errorf("compute info hash: %s", err)
	}
	return &MetaInfo{Info: info, infoHash: h}, nil
}

// ParseMetaInfo parses a bencoded metainfo file.
func ParseMetaInfo(b []byte) (*MetaInfo, error) {
	m, err := metainfo.Load(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("load metainfo: %s", err)
	}
	ai, err := m.UnmarshalInfo()
	if err != nil {
		return nil, fmt.Errorf("unmarshal info: %s", err)
	}
	info := Info{
		Name:        ai.Name,
		PieceLength: ai.PieceLength,
		Pieces:      ai.Pieces,
		Length:      ai.Length,
		Private:     ai.Private != nil && *ai.Private,
		Source:      ai.Source,
	}
	for _, f := range ai.Files {
		info.Files = append(info.Files, FileInfo{Length: f.Length, Path: f.Path})
	}
	var top struct {
		Source string `bencode:"source,omitempty"`
	}
	if err := abencode.Unmarshal(b, &top); err != nil {
		return nil, fmt.Errorf("unmarshal source: %s", err)
	}
	return &MetaInfo{
		Info:         info,
		Announce:     m.Announce,
		AnnounceList: m.AnnounceList,
		Comment:      m.Comment,
		CreatedBy:    m.CreatedBy,
		CreationDate: m.CreationDate,
		Source:       top.Source,
		rawInfo:      m.InfoBytes,
		infoHash:     NewInfoHashFromBytes(m.InfoBytes),
	}, nil
}

// LoadMetaInfo reads and parses the metainfo file at path.
func LoadMetaInfo(path string) (*MetaInfo, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMetaInfo(b)
}

// InfoHash returns the torrent InfoHash.
func (mi *MetaInfo) InfoHash() InfoHash {
	return mi.infoHash
}

// Name returns the torrent name.
func (mi *MetaInfo) Name() string {
	return mi.Info.Name
}

// Trackers returns all announce urls of mi in tier order.
func (mi *MetaInfo) Trackers() []string {
	var urls []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	add(mi.Announce)
	for _, tier := range mi.AnnounceList {
		for _, u := range tier {
			add(u)
		}
	}
	return urls
}

// Destination holds the fields which vary between clones of one build.
type Destination struct {
	Trackers []string
	Comment  string
	Source   string
}

// Clone returns a copy of mi with the destination fields of d. The info
// dictionary is shared so the clone has the same infohash.
func (mi *MetaInfo) Clone(d Destination) *MetaInfo {
	c := *mi
	c.Announce = ""
	c.AnnounceList = nil
	if len(d.Trackers) > 0 {
		c.Announce = d.Trackers[0]
		if len(d.Trackers) > 1 {
			for _, t := range d.Trackers {
				c.AnnounceList = append(c.AnnounceList, []string{t})
			}
		}
	}
	c.Comment = d.Comment
	c.Source = d.Source
	return &c
}

// InfoBytes returns the bencoded info dictionary of mi.
func (mi *MetaInfo) InfoBytes() ([]byte, error) {
	if mi.rawInfo != nil {
		return mi.rawInfo, nil
	}
	return mi.Info.Bencode()
}

// Serialize returns the bencoded metainfo file.
func (mi *MetaInfo) Serialize() ([]byte, error) {
	infoBytes, err := mi.InfoBytes()
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if mi.Announce != "" {
		fields["announce"] = mi.Announce
	}
	if len(mi.AnnounceList) > 0 {
		tiers := make([]interface{}, len(mi.AnnounceList))
		for i, tier := range mi.AnnounceList {
			t := make([]interface{}, len(tier))
			for j, u := range tier {
				t[j] = u
			}
			tiers[i] = t
		}
		fields["announce-list"] = tiers
	}
	if mi.Comment != "" {
		fields["comment"] = mi.Comment
	}
	if mi.CreatedBy != "" {
		fields["created by"] = mi.CreatedBy
	}
	if mi.CreationDate != 0 {
		fields["creation date"] = mi.CreationDate
	}
	if mi.Source != "" {
		fields["source"] = mi.Source
	}
	return encodeDict(fields, map[string][]byte{"info": infoBytes})
}

// encodeDict bencodes fields plus raw, already encoded values as a single
// dictionary with sorted keys.
func encodeDict(fields map[string]interface{}, raw map[string][]byte) ([]byte, error) {
	keys := make([]string, 0, len(fields)+len(raw))
	for k := range fields {
		keys = append(keys, k)
	}
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b bytes.Buffer
	b.WriteByte('d')
	for _, k := range keys {
		if err := bencode.Marshal(&b, k); err != nil {
			return nil, fmt.Errorf("bencode key %s: %s", k, err)
		}
		if v, ok := raw[k]; ok {
			b.Write(v)
			continue
		}
		if err := bencode.Marshal(&b, fields[k]); err != nil {
			return nil, fmt.Errorf("bencode %s: %s", k, err)
		}
	}
	b.WriteByte('e')
	return b.Bytes(), nil
}
