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
package deluge

import (
	"time"

	"github.com/upload-assistant/torrentprep/utils/httputil"
)

// Config defines Deluge daemon configuration.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// TLS is always used. Without a CA the daemon's self-signed certificate is
	// accepted.
	TLS httputil.TLSConfig `yaml:"tls"`

	Timeout time.Duration `yaml:"timeout"`
}

func (c Config) applyDefaults() Config {
	if c.Port == 0 {
		c.Port = 58846
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	c.TLS.Enabled = true
	if c.TLS.CA == "" {
		c.TLS.SkipVerify = true
	}
	return c
}
