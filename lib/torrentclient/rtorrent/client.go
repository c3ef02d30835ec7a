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

// Package rtorrent registers torrents with rTorrent over XML-RPC, handing it
// fast resume data where available so the data is not checked again.
package rtorrent

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kolo/xmlrpc"
	"github.com/satori/go.uuid"

	"github.com/upload-assistant/torrentprep/core"
	"github.com/upload-assistant/torrentprep/lib/fastresume"
	"github.com/upload-assistant/torrentprep/lib/pathmap"
	"github.com/upload-assistant/torrentprep/lib/torrentclient/clienterrors"
	"github.com/upload-assistant/torrentprep/utils/backoff"
	"github.com/upload-assistant/torrentprep/utils/log"
)

// Client talks to one rTorrent instance.
type Client struct {
	name   string
	config Config
	mapper *pathmap.Mapper
	rpc    *xmlrpc.Client

	labelBackoff *backoff.Backoff
}

// New creates a new Client.
func New(name string, config Config, mapper *pathmap.Mapper) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("client %s: url required", name)
	}
	config = config.applyDefaults()
	if mapper == nil {
		mapper = pathmap.New(nil, "")
	}
	tlsConfig, err := config.TLS.BuildClient()
	if err != nil {
		return nil, fmt.Errorf("tls: %s", err)
	}
	rpc, err := xmlrpc.NewClient(config.URL, &http.Transport{
		TLSClientConfig:       tlsConfig,
		ResponseHeaderTimeout: config.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("xmlrpc client: %s", err)
	}
	return &Client{
		name:         name,
		config:       config,
		mapper:       mapper,
		rpc:          rpc,
		labelBackoff: backoff.New(config.LabelRetry),
	}, nil
}

// Backend returns core.RTorrent.
func (c *Client) Backend() core.Backend {
	return core.RTorrent
}

// Register loads and starts the torrent of r with its directory base set to
// the data location, then labels it.
func (c *Client) Register(ctx context.Context, r core.Registration) (core.TorrentHandle, error) {
	hash := r.MetaInfo.InfoHash().HexFor(core.RTorrent)
	logger := log.With("client", c.name, "hash", hash)

	file, err := c.loadFile(r)
	if err != nil {
		return core.TorrentHandle{}, err
	}

	dataPath := r.DataPath
	if dataPath == "" {
		dataPath = r.Content.Path
	}
	if c.mapper.Active(dataPath) {
		// The client reads the file from its own filesystem, so it has to live
		// somewhere mapped.
		tmp := filepath.Join(filepath.Dir(dataPath), uuid.NewV4().String()+".torrent")
		if err := copyFile(file, tmp); err != nil {
			return core.TorrentHandle{}, fmt.Errorf("copy torrent next to data: %s", err)
		}
		defer os.Remove(tmp)
		file = c.mapper.Resolve(tmp)
	}

	base := directoryBase(r.Content)
	remoteBase := c.mapper.Resolve(base)
	logger = logger.With("directory_base", remoteBase, "file", file)

	if err := ctx.Err(); err != nil {
		return core.TorrentHandle{}, err
	}
	var result int
	if err := c.rpc.Call(
		"load.start_verbose",
		[]interface{}{"", file, "d.directory_base.set=" + remoteBase},
		&result); err != nil {
		return core.TorrentHandle{}, c.wrap("load.start_verbose", err)
	}
	logger.Info("Loaded torrent")

	label := c.config.Label
	if r.Label != "" {
		label = r.Label
	}
	if label != "" {
		select {
		case <-time.After(c.config.LabelDelay):
		case <-ctx.Done():
			return core.TorrentHandle{}, ctx.Err()
		}
		if err := c.setLabel(ctx, hash, label); err != nil {
			return core.TorrentHandle{}, err
		}
	}

	return core.TorrentHandle{
		InfoHash:    r.MetaInfo.InfoHash(),
		Client:      c.name,
		Backend:     core.RTorrent,
		StoragePath: remoteBase,
	}, nil
}

// setLabel sets the label of the torrent hash, retrying while rTorrent has
// not created the download yet.
func (c *Client) setLabel(ctx context.Context, hash, label string) error {
	var err error
	a := c.labelBackoff.Attempts()
	for a.WaitForNext(ctx) {
		var out string
		if err = c.rpc.Call("d.custom1.set", []interface{}{hash, label}, &out); err == nil {
			return nil
		}
		log.With("client", c.name, "hash", hash).Debugf("Retrying label: %s", err)
	}
	if backoff.IsTimeoutError(a.Err()) {
		return c.wrap("d.custom1.set", err)
	}
	return a.Err()
}

// loadFile returns the local metainfo file to load, preferring a resume
// augmented copy of the artifact.
func (c *Client) loadFile(r core.Registration) (string, error) {
	if r.ArtifactPath == "" {
		return "", errors.New("rtorrent loads torrents from disk, artifact path required")
	}
	artifact := r.ArtifactPath
	b, err := r.ArtifactBytes()
	if err != nil {
		return "", err
	}
	if r.Resume == nil {
		return artifact, nil
	}
	augmented, err := fastresume.Augment(b, r.Resume)
	if err != nil {
		log.With("client", c.name).Warnf("Loading torrent without fast resume: %s", err)
		return artifact, nil
	}
	p := fastresume.ResumePath(artifact)
	if err := ioutil.WriteFile(p, augmented, 0644); err != nil {
		return "", fmt.Errorf("write resume file: %s", err)
	}
	return p, nil
}

func (c *Client) wrap(method string, err error) error {
	if _, ok := err.(net.Error); ok {
		return clienterrors.ConnectionError{Client: c.name, Err: err}
	}
	return fmt.Errorf("%s: %s", method, err)
}

// directoryBase returns the directory rTorrent stores the torrent's files in:
// the content directory itself, or the parent of a single file.
func directoryBase(c *core.ContentDescriptor) string {
	if c.IsDir {
		return c.Path
	}
	return filepath.Dir(c.Path)
}

func copyFile(src, dst string) error {
	b, err := ioutil.ReadFile(src)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(dst, b, 0644)
}
