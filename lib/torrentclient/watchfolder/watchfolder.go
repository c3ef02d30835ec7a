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

// Package watchfolder registers torrents by dropping them into a directory
// which a client monitors.
package watchfolder

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/upload-assistant/torrentprep/core"
	"github.com/upload-assistant/torrentprep/utils/log"
)

// Config defines watch folder configuration.
type Config struct {
	Dir string `yaml:"dir"`
}

// Client copies artifacts into a watch folder.
type Client struct {
	name   string
	config Config
}

// New creates a new Client.
func New(name string, config Config) (*Client, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("watch folder %s: dir required", name)
	}
	return &Client{name, config}, nil
}

// Backend returns core.Watch.
func (c *Client) Backend() core.Backend {
	return core.Watch
}

// fileName names the watch folder copy of r after its content, since base
// artifacts of every content item share one file name.
func fileName(r core.Registration) string {
	if r.Destination != "" && r.ArtifactPath != "" {
		return filepath.Base(r.ArtifactPath)
	}
	return strings.Replace(r.MetaInfo.Name(), string(filepath.Separator), "_", -1) + ".torrent"
}

// Register copies the artifact of r into the watch folder. The file is
// written under a temporary name first so the client never picks up a
// partial torrent.
func (c *Client) Register(ctx context.Context, r core.Registration) (core.TorrentHandle, error) {
	b, err := r.ArtifactBytes()
	if err != nil {
		return core.TorrentHandle{}, err
	}
	if err := os.MkdirAll(c.config.Dir, 0755); err != nil {
		return core.TorrentHandle{}, fmt.Errorf("mkdir: %s", err)
	}
	dst := filepath.Join(c.config.Dir, fileName(r))

	tmp, err := ioutil.TempFile(c.config.Dir, ".partial")
	if err != nil {
		return core.TorrentHandle{}, fmt.Errorf("temp file: %s", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return core.TorrentHandle{}, fmt.Errorf("write: %s", err)
	}
	if err := tmp.Close(); err != nil {
		return core.TorrentHandle{}, fmt.Errorf("close: %s", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return core.TorrentHandle{}, fmt.Errorf("rename: %s", err)
	}
	log.With("client", c.name, "file", dst).Info("Copied torrent to watch folder")

	return core.TorrentHandle{
		InfoHash:    r.MetaInfo.InfoHash(),
		Client:      c.name,
		Backend:     core.Watch,
		StoragePath: dst,
	}, nil
}
