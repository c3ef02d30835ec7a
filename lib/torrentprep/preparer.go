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

// Package torrentprep prepares one content item for seeding: it reuses a
// torrent a client already knows or builds a new one, writes the metainfo
// files for every destination and registers the result with the clients.
package torrentprep

import (
	"context"
	"fmt"
	"strings"

	"github.com/uber-go/tally"

	"github.com/upload-assistant/torrentprep/core"
	"github.com/upload-assistant/torrentprep/lib/fastresume"
	"github.com/upload-assistant/torrentprep/lib/hashstore"
	"github.com/upload-assistant/torrentprep/lib/metainfogen"
	"github.com/upload-assistant/torrentprep/lib/torrentmatch"
	"github.com/upload-assistant/torrentprep/utils/errutil"
	"github.com/upload-assistant/torrentprep/utils/log"
	"github.com/upload-assistant/torrentprep/utils/stringset"
)

// Destination is a site the torrent is uploaded to. Each destination gets
// its own metainfo file sharing the base infohash.
type Destination struct {
	Label string
	core.Destination
}

// Request describes one content item to prepare.
type Request struct {
	Content *core.ContentDescriptor
	Flags   metainfogen.Flags

	Destinations []Destination

	// Clients to register with. Empty means the default client, NoSeed
	// disables registration.
	Clients []string

	// Hashes are candidates known from elsewhere, e.g. a tracker listing.
	// They are tried before the hashes of previous runs.
	Hashes []string

	Label    string
	Category string
	Tags     []string
}

// Result is the outcome of Prepare.
type Result struct {
	MetaInfo     *core.MetaInfo
	ArtifactPath string
	DataPath     string

	// Reused is set if MetaInfo was derived from Match instead of hashing.
	Reused bool
	Match  torrentmatch.Result

	// Artifacts maps destination labels to their metainfo files.
	Artifacts map[string]string

	Handles []core.TorrentHandle
}

// Registrar registers a torrent with named clients.
type Registrar interface {
	Register(ctx context.Context, reg core.Registration, names []string) ([]core.TorrentHandle, error)
}

// Preparer prepares content for seeding.
type Preparer struct {
	config    Config
	generator *metainfogen.Generator
	matcher   *torrentmatch.Matcher
	registrar Registrar
	targets   map[string]torrentmatch.Target
	store     *hashstore.Store
	stats     tally.Scope
}

// New creates a new Preparer. targets holds the reuse lookup target of each
// named client.
func New(
	config Config,
	generator *metainfogen.Generator,
	matcher *torrentmatch.Matcher,
	registrar Registrar,
	targets map[string]torrentmatch.Target,
	store *hashstore.Store,
	stats tally.Scope) *Preparer {

	return &Preparer{
		config:    config,
		generator: generator,
		matcher:   matcher,
		registrar: registrar,
		targets:   targets,
		store:     store,
		stats:     stats.SubScope("torrentprep"),
	}
}

// Prepare reuses or builds the torrent of req.Content, writes its metainfo
// files and registers the file of every destination with the clients.
// Registration failures are returned along with a complete Result, since the
// artifacts are usable regardless.
func (p *Preparer) Prepare(ctx context.Context, req Request) (*Result, error) {
	c := req.Content
	clients := p.clients(req)

	res := &Result{Artifacts: make(map[string]string)}
	if !p.config.DisableReuse {
		match, err := p.findReusable(ctx, req, clients)
		if err != nil {
			return nil, err
		}
		res.Match = match
	}

	var mi *core.MetaInfo
	var err error
	source := hashstore.Built
	if res.Match.Outcome == torrentmatch.Valid {
		mi, err = p.generator.FromExisting(res.Match.Path, req.Flags)
		if err != nil {
			return nil, fmt.Errorf("reuse %s: %s", res.Match.Hash, err)
		}
		res.Reused = true
		source = hashstore.Reused
	} else {
		mi, err = p.generator.Build(ctx, c, req.Flags)
		if err != nil {
			return nil, fmt.Errorf("build: %s", err)
		}
	}
	res.MetaInfo = mi
	res.DataPath = metainfogen.DataPath(c, mi)
	res.ArtifactPath = metainfogen.ArtifactPath(p.config.ArtifactDir, c.ID, "", mi.Name())
	if err := p.generator.Write(mi, res.DataPath, res.ArtifactPath); err != nil {
		return nil, err
	}
	for _, d := range req.Destinations {
		path := metainfogen.ArtifactPath(p.config.ArtifactDir, c.ID, d.Label, mi.Name())
		if err := p.generator.Write(mi.Clone(d.Destination), res.DataPath, path); err != nil {
			return nil, fmt.Errorf("destination %s: %s", d.Label, err)
		}
		res.Artifacts[d.Label] = path
	}
	if err := p.store.AddHash(c.ID, mi.InfoHash(), source); err != nil {
		return nil, fmt.Errorf("record hash: %s", err)
	}
	p.stats.Tagged(map[string]string{"source": string(source)}).Counter("prepared").Inc(1)

	if len(clients) == 0 {
		log.With("content", c.ID).Info("Skipping registration")
		return res, nil
	}
	var resume *core.ResumeDescriptor
	if res.Reused && p.anyAcceptsResume(clients) {
		resume, err = p.synthesize(c, mi, res.DataPath)
		if err != nil {
			return nil, err
		}
	}
	var errs []error
	for _, reg := range p.registrations(req, res) {
		reg.Resume = resume
		handles, err := p.registrar.Register(ctx, reg, clients)
		for _, h := range handles {
			if err := p.store.AddRegistration(c.ID, h); err != nil {
				log.With("content", c.ID, "client", h.Client).Errorf("Error recording registration: %s", err)
			}
		}
		res.Handles = append(res.Handles, handles...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return res, errutil.Join(errs)
}

// registrations returns one registration per destination of req, each
// carrying the metainfo file with that destination's trackers. Without
// destinations the base file is registered.
func (p *Preparer) registrations(req Request, res *Result) []core.Registration {
	base := core.Registration{
		Content:      req.Content,
		MetaInfo:     res.MetaInfo,
		ArtifactPath: res.ArtifactPath,
		DataPath:     res.DataPath,
		Label:        req.Label,
		Category:     req.Category,
		Tags:         req.Tags,
	}
	if len(req.Destinations) == 0 {
		return []core.Registration{base}
	}
	var regs []core.Registration
	for _, d := range req.Destinations {
		reg := base
		reg.MetaInfo = res.MetaInfo.Clone(d.Destination)
		reg.ArtifactPath = res.Artifacts[d.Label]
		reg.Destination = d.Label
		regs = append(regs, reg)
	}
	return regs
}

// clients returns the clients req should be registered with.
func (p *Preparer) clients(req Request) []string {
	names := req.Clients
	if len(names) == 0 && p.config.DefaultClient != "" {
		names = []string{p.config.DefaultClient}
	}
	var result []string
	for _, n := range names {
		if strings.EqualFold(n, NoSeed) {
			return nil
		}
		result = append(result, n)
	}
	return result
}

// candidates returns the hashes worth checking for c, request hashes first.
func (p *Preparer) candidates(req Request) ([]string, error) {
	known, err := p.store.Hashes(req.Content.ID)
	if err != nil {
		return nil, fmt.Errorf("known hashes: %s", err)
	}
	var hashes []string
	for _, h := range req.Hashes {
		hashes = append(hashes, strings.ToLower(strings.TrimSpace(h)))
	}
	for _, h := range known {
		hashes = append(hashes, h.Hex())
	}
	return stringset.Dedupe(hashes), nil
}

// findReusable searches the targets of clients, in order, for a torrent
// which can be reused for req.Content. Clients without a target are skipped.
func (p *Preparer) findReusable(
	ctx context.Context, req Request, clients []string) (torrentmatch.Result, error) {

	none := torrentmatch.Result{Outcome: torrentmatch.NotFound}
	hashes, err := p.candidates(req)
	if err != nil {
		return none, err
	}
	names := clients
	if len(names) == 0 && p.config.DefaultClient != "" {
		names = []string{p.config.DefaultClient}
	}
	for _, name := range names {
		t, ok := p.targets[name]
		if !ok || t.StorageDir == "" {
			continue
		}
		r, err := p.matcher.Find(ctx, req.Content, t, hashes)
		if err != nil {
			if ctx.Err() != nil {
				return none, ctx.Err()
			}
			log.With("client", name, "content", req.Content.ID).Warnf("Error searching for reusable torrent: %s", err)
			continue
		}
		if r.Outcome == torrentmatch.Valid {
			log.With("client", name, "content", req.Content.ID, "hash", r.Hash).Info("Reusing existing torrent")
			return r, nil
		}
	}
	return none, nil
}

func (p *Preparer) anyAcceptsResume(clients []string) bool {
	for _, name := range clients {
		if t, ok := p.targets[name]; ok && t.Backend.AcceptsResume() {
			return true
		}
	}
	return false
}

// synthesize returns resume data for a reused torrent, or nil if the content
// on disk does not match the declared sizes.
func (p *Preparer) synthesize(
	c *core.ContentDescriptor, mi *core.MetaInfo, dataPath string) (*core.ResumeDescriptor, error) {

	desc, err := fastresume.Synthesize(mi, dataPath)
	if err != nil {
		if fastresume.IsFileSizeMismatch(err) {
			p.stats.Counter("resume_fallbacks").Inc(1)
			log.With("content", c.ID).Warnf("Registering without resume data: %s", err)
			return nil, nil
		}
		return nil, fmt.Errorf("synthesize resume data: %s", err)
	}
	return desc, nil
}
