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

// Package torrentclient registers torrents with the torrent clients which
// seed them.
package torrentclient

import (
	"context"
	"fmt"

	"github.com/upload-assistant/torrentprep/core"
	"github.com/upload-assistant/torrentprep/lib/pathmap"
	"github.com/upload-assistant/torrentprep/lib/torrentclient/deluge"
	"github.com/upload-assistant/torrentprep/lib/torrentclient/qbittorrent"
	"github.com/upload-assistant/torrentprep/lib/torrentclient/rtorrent"
	"github.com/upload-assistant/torrentprep/lib/torrentclient/watchfolder"
	"github.com/upload-assistant/torrentprep/lib/torrentmatch"
)

//go:generate mockgen -destination=../../mocks/lib/torrentclient/client.go -package mocktorrentclient . Client

// Client registers torrents with one torrent client.
type Client interface {
	Backend() core.Backend
	Register(ctx context.Context, r core.Registration) (core.TorrentHandle, error)
}

// Config is the profile of one torrent client.
type Config struct {
	Backend core.Backend `yaml:"backend"`

	// TorrentStorageDir is where the client keeps a <infohash>.torrent copy of
	// every torrent it knows. Reuse candidates are looked up there.
	TorrentStorageDir string `yaml:"torrent_storage_dir"`

	// PathMappings translate local paths into the client's view, first match
	// wins.
	PathMappings []pathmap.Mapping `yaml:"path_mappings"`
	Separator    string            `yaml:"separator"`

	// EnableSearch allows scanning the client's torrent list for reuse
	// candidates. Only supported by qbittorrent.
	EnableSearch bool `yaml:"enable_search"`

	QBittorrent qbittorrent.Config `yaml:"qbittorrent"`
	RTorrent    rtorrent.Config    `yaml:"rtorrent"`
	Deluge      deluge.Config      `yaml:"deluge"`
	Watch       watchfolder.Config `yaml:"watch"`
}

// Mapper returns the path mapper of the profile.
func (c Config) Mapper() *pathmap.Mapper {
	return pathmap.New(c.PathMappings, c.Separator)
}

// New creates the Client for the backend of config.
func New(name string, config Config) (Client, error) {
	switch config.Backend {
	case core.QBittorrent:
		return qbittorrent.New(name, config.QBittorrent, config.Mapper())
	case core.RTorrent:
		return rtorrent.New(name, config.RTorrent, config.Mapper())
	case core.Deluge:
		return deluge.New(name, config.Deluge, config.Mapper())
	case core.Watch:
		return watchfolder.New(name, config.Watch)
	default:
		return nil, fmt.Errorf("client %s: unknown backend %s", name, config.Backend)
	}
}

// Target returns where the reuse matcher should look for candidates of the
// client c created from config.
func Target(config Config, c Client) torrentmatch.Target {
	t := torrentmatch.Target{
		Backend:    config.Backend,
		StorageDir: config.TorrentStorageDir,
		Mapper:     config.Mapper(),
	}
	if config.EnableSearch {
		if l, ok := c.(torrentmatch.Lister); ok {
			t.Lister = l
		}
	}
	return t
}
