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
package cmd

import (
	"github.com/upload-assistant/torrentprep/lib/metainfogen"
	"github.com/upload-assistant/torrentprep/lib/torrentclient"
	"github.com/upload-assistant/torrentprep/lib/torrentmatch"
	"github.com/upload-assistant/torrentprep/lib/torrentprep"
	"github.com/upload-assistant/torrentprep/localdb"
	"github.com/upload-assistant/torrentprep/metrics"
	"github.com/upload-assistant/torrentprep/utils/log"

	"go.uber.org/zap"
)

// Config defines seeder configuration.
type Config struct {
	ZapLogging zap.Config `yaml:"zap"`

	// Report receives one structured record per prepared content item.
	Report log.Config `yaml:"report"`

	Metrics     metrics.Config      `yaml:"metrics"`
	Env         string              `yaml:"env"`
	LocalDB     localdb.Config      `yaml:"localdb"`
	MetaInfoGen metainfogen.Config  `yaml:"metainfogen"`
	Matcher     torrentmatch.Config `yaml:"matcher"`
	TorrentPrep torrentprep.Config  `yaml:"torrentprep"`

	// Clients are the torrent client profiles, by name.
	Clients map[string]torrentclient.Config `yaml:"clients"`

	// Destinations are the sites torrents are prepared for, by label.
	Destinations map[string]DestinationConfig `yaml:"destinations"`

	// Private marks built torrents private.
	Private bool `yaml:"private"`
}

// DestinationConfig defines the destination specific fields of a metainfo
// file.
type DestinationConfig struct {
	Trackers []string `yaml:"trackers"`
	Source   string   `yaml:"source"`
	Comment  string   `yaml:"comment"`
}
