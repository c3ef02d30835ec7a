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

// Package qbittorrent registers torrents with qBittorrent over its WebUI API.
package qbittorrent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/upload-assistant/torrentprep/core"
	"github.com/upload-assistant/torrentprep/lib/pathmap"
	"github.com/upload-assistant/torrentprep/lib/torrentclient/clienterrors"
	"github.com/upload-assistant/torrentprep/lib/torrentmatch"
	"github.com/upload-assistant/torrentprep/utils/httputil"
	"github.com/upload-assistant/torrentprep/utils/log"
)

var errNotRegistered = errors.New("torrent not listed yet")

// Client talks to one qBittorrent instance.
type Client struct {
	name   string
	config Config
	mapper *pathmap.Mapper
	http   *http.Client
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
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %s", err)
	}
	return &Client{
		name:   name,
		config: config,
		mapper: mapper,
		http: &http.Client{
			Jar:       jar,
			Timeout:   config.Timeout,
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		},
	}, nil
}

// Backend returns core.QBittorrent.
func (c *Client) Backend() core.Backend {
	return core.QBittorrent
}

type torrentInfo struct {
	Hash        string `json:"hash"`
	Name        string `json:"name"`
	SavePath    string `json:"save_path"`
	ContentPath string `json:"content_path"`
}

// Register adds the artifact of r with checking skipped, waits for
// qBittorrent to list it, then resumes and tags it.
func (c *Client) Register(ctx context.Context, r core.Registration) (core.TorrentHandle, error) {
	hash := r.MetaInfo.InfoHash().HexFor(core.QBittorrent)
	savePath := c.mapper.Resolve(r.Content.SavePath())
	if !strings.HasSuffix(savePath, "/") {
		savePath += "/"
	}
	logger := log.With("client", c.name, "hash", hash, "save_path", savePath)

	if err := c.login(ctx); err != nil {
		return core.TorrentHandle{}, err
	}
	torrent, err := r.ArtifactBytes()
	if err != nil {
		return core.TorrentHandle{}, err
	}
	category := c.config.Category
	if r.Category != "" {
		category = r.Category
	}
	if err := c.add(ctx, r.MetaInfo.Name(), torrent, savePath, category); err != nil {
		return core.TorrentHandle{}, err
	}
	logger.Info("Added torrent, waiting for it to be listed")

	if err := c.waitForTorrent(ctx, hash); err != nil {
		return core.TorrentHandle{}, err
	}
	if err := c.resume(ctx, hash); err != nil {
		return core.TorrentHandle{}, err
	}
	tags := append(append([]string{}, c.config.Tags...), r.Tags...)
	if len(tags) > 0 {
		if err := c.post(ctx, "/api/v2/torrents/addTags", url.Values{
			"hashes": {hash},
			"tags":   {strings.Join(tags, ",")},
		}); err != nil {
			return core.TorrentHandle{}, fmt.Errorf("add tags: %s", err)
		}
	}
	logger.Info("Registered torrent")

	return core.TorrentHandle{
		InfoHash:    r.MetaInfo.InfoHash(),
		Client:      c.name,
		Backend:     core.QBittorrent,
		StoragePath: savePath,
	}, nil
}

// ListTorrents lists every torrent of the client with its content path.
func (c *Client) ListTorrents(ctx context.Context) ([]torrentmatch.TorrentSummary, error) {
	if err := c.login(ctx); err != nil {
		return nil, err
	}
	infos, err := c.info(ctx, "")
	if err != nil {
		return nil, err
	}
	var summaries []torrentmatch.TorrentSummary
	for _, info := range infos {
		p := info.ContentPath
		if p == "" {
			p = path.Join(info.SavePath, info.Name)
		}
		summaries = append(summaries, torrentmatch.TorrentSummary{Hash: info.Hash, ContentPath: p})
	}
	return summaries, nil
}

func (c *Client) login(ctx context.Context) error {
	resp, err := httputil.Post(
		c.endpoint("/api/v2/auth/login"),
		httputil.SendForm(url.Values{
			"username": {c.config.Username},
			"password": {c.config.Password},
		}),
		httputil.SendHeaders(map[string]string{"Referer": c.config.URL}),
		httputil.SendClient(c.http),
		httputil.SendContext(ctx))
	if err != nil {
		if httputil.IsForbidden(err) {
			return clienterrors.AuthError{Client: c.name, Msg: "too many failed attempts"}
		}
		return c.wrap(err)
	}
	b, err := httputil.ReadBody(resp)
	if err != nil {
		return c.wrap(err)
	}
	if msg := strings.TrimSpace(string(b)); msg != "Ok." {
		return clienterrors.AuthError{Client: c.name, Msg: msg}
	}
	return nil
}

func (c *Client) add(ctx context.Context, name string, torrent []byte, savePath, category string) error {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("torrents", name+".torrent")
	if err != nil {
		return fmt.Errorf("create form file: %s", err)
	}
	if _, err := part.Write(torrent); err != nil {
		return fmt.Errorf("write form file: %s", err)
	}
	fields := map[string]string{
		"savepath":      savePath,
		"skip_checking": "true",
		"autoTMM":       strconv.FormatBool(c.autoManaged(savePath)),
		"contentLayout": c.config.ContentLayout,
		"category":      category,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %s", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %s", err)
	}

	resp, err := httputil.Post(
		c.endpoint("/api/v2/torrents/add"),
		httputil.SendBody(body),
		httputil.SendHeaders(map[string]string{"Content-Type": w.FormDataContentType()}),
		httputil.SendClient(c.http),
		httputil.SendContext(ctx))
	if err != nil {
		return c.wrap(err)
	}
	b, err := httputil.ReadBody(resp)
	if err != nil {
		return c.wrap(err)
	}
	if msg := strings.TrimSpace(string(b)); msg != "Ok." {
		return fmt.Errorf("add torrent: %s", msg)
	}
	return nil
}

// waitForTorrent polls until hash is listed.
func (c *Client) waitForTorrent(ctx context.Context, hash string) error {
	start := time.Now()
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.config.PollInterval), c.config.PollRetries),
		ctx)
	err := backoff.Retry(func() error {
		infos, err := c.info(ctx, hash)
		if err != nil {
			if clienterrors.IsConnectionError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(infos) == 0 {
			return errNotRegistered
		}
		return nil
	}, b)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == errNotRegistered {
		return clienterrors.RegistrationTimeoutError{Client: c.name, Hash: hash, Duration: time.Since(start)}
	}
	return err
}

// resume starts hash. Newer WebUI APIs renamed resume to start.
func (c *Client) resume(ctx context.Context, hash string) error {
	form := url.Values{"hashes": {hash}}
	err := c.post(ctx, "/api/v2/torrents/resume", form)
	if httputil.IsNotFound(err) {
		err = c.post(ctx, "/api/v2/torrents/start", form)
	}
	if err != nil {
		return fmt.Errorf("resume: %s", err)
	}
	return nil
}

func (c *Client) info(ctx context.Context, hash string) ([]torrentInfo, error) {
	endpoint := c.endpoint("/api/v2/torrents/info")
	if hash != "" {
		endpoint += "?" + url.Values{"hashes": {hash}}.Encode()
	}
	resp, err := httputil.Get(endpoint, httputil.SendClient(c.http), httputil.SendContext(ctx))
	if err != nil {
		return nil, c.wrap(err)
	}
	defer resp.Body.Close()
	var infos []torrentInfo
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		return nil, fmt.Errorf("decode torrent info: %s", err)
	}
	return infos, nil
}

func (c *Client) post(ctx context.Context, p string, form url.Values) error {
	resp, err := httputil.Post(
		c.endpoint(p),
		httputil.SendForm(form),
		httputil.SendClient(c.http),
		httputil.SendContext(ctx))
	if err != nil {
		return c.wrap(err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) autoManaged(savePath string) bool {
	p := strings.ToLower(path.Clean(savePath))
	for _, am := range c.config.AutoManagementPaths {
		am = strings.TrimSpace(am)
		if am == "" {
			continue
		}
		if strings.Contains(p, strings.ToLower(path.Clean(am))) {
			return true
		}
	}
	return false
}

func (c *Client) endpoint(p string) string {
	return strings.TrimSuffix(c.config.URL, "/") + p
}

func (c *Client) wrap(err error) error {
	if httputil.IsNetworkError(err) {
		return clienterrors.ConnectionError{Client: c.name, Err: err}
	}
	return err
}
