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

// Package deluge registers torrents with a Deluge daemon over its native RPC
// protocol.
package deluge

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/upload-assistant/torrentprep/core"
	"github.com/upload-assistant/torrentprep/lib/pathmap"
	"github.com/upload-assistant/torrentprep/lib/torrentclient/clienterrors"
	"github.com/upload-assistant/torrentprep/utils/log"
)

// DialFunc opens a connection to the daemon.
type DialFunc func(ctx context.Context) (net.Conn, error)

// Option configures a Client.
type Option func(*Client)

// WithDialer overrides how the daemon is reached.
func WithDialer(dial DialFunc) Option {
	return func(c *Client) { c.dial = dial }
}

// Client talks to one Deluge daemon.
type Client struct {
	name   string
	config Config
	mapper *pathmap.Mapper
	dial   DialFunc
}

// New creates a new Client.
func New(name string, config Config, mapper *pathmap.Mapper, opts ...Option) (*Client, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("client %s: host required", name)
	}
	config = config.applyDefaults()
	if mapper == nil {
		mapper = pathmap.New(nil, "")
	}
	tlsConfig, err := config.TLS.BuildClient()
	if err != nil {
		return nil, fmt.Errorf("tls: %s", err)
	}
	c := &Client{name: name, config: config, mapper: mapper}
	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	c.dial = func(ctx context.Context) (net.Conn, error) {
		d := &net.Dialer{Timeout: config.Timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		tc := tls.Client(conn, tlsConfig)
		if err := tc.Handshake(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("tls handshake: %s", err)
		}
		return tc, nil
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Backend returns core.Deluge.
func (c *Client) Backend() core.Backend {
	return core.Deluge
}

// Register adds the artifact of r in seed mode, which skips checking.
func (c *Client) Register(ctx context.Context, r core.Registration) (core.TorrentHandle, error) {
	torrent, err := r.ArtifactBytes()
	if err != nil {
		return core.TorrentHandle{}, err
	}
	conn, err := c.connect(ctx)
	if err != nil {
		return core.TorrentHandle{}, err
	}
	defer conn.Close()

	savePath := c.mapper.Resolve(r.Content.SavePath())
	_, err = conn.call(
		"core.add_torrent_file",
		[]interface{}{
			r.MetaInfo.Name() + ".torrent",
			base64.StdEncoding.EncodeToString(torrent),
			map[string]interface{}{
				"download_location": savePath,
				"seed_mode":         true,
			},
		}, nil)
	if err != nil {
		return core.TorrentHandle{}, c.wrap("core.add_torrent_file", err)
	}
	log.With("client", c.name, "hash", r.MetaInfo.InfoHash().Hex(), "download_location", savePath).Info(
		"Registered torrent")

	return core.TorrentHandle{
		InfoHash:    r.MetaInfo.InfoHash(),
		Client:      c.name,
		Backend:     core.Deluge,
		StoragePath: savePath,
	}, nil
}

// connect opens an authenticated connection.
func (c *Client) connect(ctx context.Context) (*rpcConn, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, clienterrors.ConnectionError{Client: c.name, Err: err}
	}
	deadline := time.Now().Add(c.config.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)

	rc := newRPCConn(conn)
	if _, err := rc.call(
		"daemon.login",
		[]interface{}{c.config.Username, c.config.Password},
		map[string]interface{}{"client_version": "torrentprep"}); err != nil {
		rc.Close()
		if e, ok := err.(RPCError); ok {
			return nil, clienterrors.AuthError{Client: c.name, Msg: e.Error()}
		}
		return nil, clienterrors.ConnectionError{Client: c.name, Err: err}
	}
	return rc, nil
}

func (c *Client) wrap(method string, err error) error {
	if _, ok := err.(RPCError); ok {
		return fmt.Errorf("%s: %s", method, err)
	}
	return clienterrors.ConnectionError{Client: c.name, Err: err}
}
