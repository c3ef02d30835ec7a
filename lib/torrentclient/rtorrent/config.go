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
package rtorrent

import (
	"time"

	"github.com/upload-assistant/torrentprep/utils/backoff"
	"github.com/upload-assistant/torrentprep/utils/httputil"
)

// Config defines rTorrent XML-RPC configuration.
type Config struct {
	URL   string             `yaml:"url"`
	TLS   httputil.TLSConfig `yaml:"tls"`
	Label string             `yaml:"label"`

	// LabelDelay is waited after loading a torrent before labeling it, giving
	// rTorrent time to create the download.
	LabelDelay time.Duration `yaml:"label_delay"`

	// LabelRetry bounds retries of labeling a torrent rTorrent has not
	// finished loading.
	LabelRetry backoff.Config `yaml:"label_retry"`

	Timeout time.Duration `yaml:"timeout"`
}

func (c Config) applyDefaults() Config {
	if c.LabelDelay == 0 {
		c.LabelDelay = time.Second
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}
