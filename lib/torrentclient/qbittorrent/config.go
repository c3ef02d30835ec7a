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
package qbittorrent

import (
	"time"

	"github.com/upload-assistant/torrentprep/utils/httputil"
)

// Config defines qBittorrent WebUI connection and placement configuration.
type Config struct {
	URL      string             `yaml:"url"`
	Username string             `yaml:"username"`
	Password string             `yaml:"password"`
	TLS      httputil.TLSConfig `yaml:"tls"`

	Category string   `yaml:"category"`
	Tags     []string `yaml:"tags"`

	// ContentLayout is passed through to qBittorrent: Original, Subfolder or
	// NoSubfolder.
	ContentLayout string `yaml:"content_layout"`

	// AutoManagementPaths enables automatic torrent management for save paths
	// under any of these directories.
	AutoManagementPaths []string `yaml:"automatic_management_paths"`

	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	PollRetries  uint64        `yaml:"poll_retries"`
}

func (c Config) applyDefaults() Config {
	if c.ContentLayout == "" {
		c.ContentLayout = "Original"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = time.Second
	}
	if c.PollRetries == 0 {
		c.PollRetries = 30
	}
	return c
}
