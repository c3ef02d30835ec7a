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

// Package torrentmatch decides whether a torrent a client already seeds can
// be reused for local content instead of hashing the content again.
package torrentmatch

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/uber-go/tally"

	"github.com/upload-assistant/torrentprep/core"
	"github.com/upload-assistant/torrentprep/lib/pathmap"
	"github.com/upload-assistant/torrentprep/utils/log"
)

// Target describes the client whose torrents are searched.
type Target struct {
	Backend    core.Backend
	StorageDir string
	Mapper     *pathmap.Mapper

	// Lister, if set, is scanned for candidates after all known hashes
	// failed.
	Lister Lister
}

// TorrentSummary is a torrent as reported by a client listing.
type TorrentSummary struct {
	Hash        string
	ContentPath string

	// NumFiles is 0 if the client does not report it.
	NumFiles int
}

// Lister lists the torrents of a client.
type Lister interface {
	ListTorrents(ctx context.Context) ([]TorrentSummary, error)
}

// Result is the verdict on one candidate.
type Result struct {
	Outcome  Outcome
	Hash     string
	Path     string
	MetaInfo *core.MetaInfo
	Reason   string
}

// Matcher checks reuse candidates.
type Matcher struct {
	config Config
	stats  tally.Scope
}

// New creates a new Matcher.
func New(config Config, stats tally.Scope) *Matcher {
	return &Matcher{config.applyDefaults(), stats.SubScope("torrentmatch")}
}

// Check checks the candidate identified by hash against c.
func (m *Matcher) Check(c *core.ContentDescriptor, t Target, hash string) Result {
	r := m.check(c, t, hash)
	m.stats.Tagged(map[string]string{"outcome": r.Outcome.String()}).Counter("checks").Inc(1)
	if r.Outcome != Valid {
		log.With("content", c.ID, "hash", r.Hash, "outcome", r.Outcome).Infof(
			"Not reusing torrent: %s", r.Reason)
	}
	return r
}

func (m *Matcher) check(c *core.ContentDescriptor, t Target, hash string) Result {
	hash = t.Backend.NormalizeHash(strings.TrimSpace(hash))
	r := Result{
		Outcome: NotFound,
		Hash:    hash,
		Path:    filepath.Join(t.StorageDir, hash+".torrent"),
	}
	if _, err := os.Stat(r.Path); err != nil {
		r.Reason = fmt.Sprintf("stat: %s", err)
		return r
	}
	mi, err := core.LoadMetaInfo(r.Path)
	if err != nil {
		r.Reason = fmt.Sprintf("unreadable candidate: %s", err)
		return r
	}
	r.MetaInfo = mi

	if outcome, reason := m.checkStructure(c, t, mi); outcome != Valid {
		r.Outcome, r.Reason = outcome, reason
		return r
	}
	if reason := m.checkPieces(mi); reason != "" {
		r.Outcome, r.Reason = RehashRequired, reason
		return r
	}
	r.Outcome = Valid
	return r
}

func (m *Matcher) checkStructure(
	c *core.ContentDescriptor, t Target, mi *core.MetaInfo) (Outcome, string) {

	files := candidatePaths(mi)

	switch {
	case c.IsDisc || (c.KeepFolder && c.IsDir):
		if mi.Name() != c.ID {
			return StructuralMismatch, fmt.Sprintf("name %q differs from %q", mi.Name(), c.ID)
		}
		root := commonPath(files)
		if !containsSegments(root, c.Basename()) {
			return StructuralMismatch, fmt.Sprintf("root %q does not contain %q", root, c.Basename())
		}
	case len(files) == 1 && len(c.Files) == 1:
		candidate := files[0]
		if path.Base(candidate) != filepath.Base(c.Files[0]) {
			return StructuralMismatch, fmt.Sprintf("file %q differs from %q", candidate, filepath.Base(c.Files[0]))
		}
		if candidate != path.Base(candidate) {
			return WrongFile, fmt.Sprintf("file %q is nested", candidate)
		}
	case len(files) == len(c.Files) && len(files) > 1:
		actual := commonPath(slashPaths(c.Files))
		if t.Mapper != nil {
			actual = filepath.ToSlash(strings.Replace(t.Mapper.Resolve(actual), `\`, "/", -1))
		}
		root := commonPath(files)
		if !strings.Contains(actual, root) {
			return StructuralMismatch, fmt.Sprintf("root %q not within %q", root, actual)
		}
	default:
		return StructuralMismatch, fmt.Sprintf("%d files, expected %d", len(files), len(c.Files))
	}
	return Valid, ""
}

func (m *Matcher) checkPieces(mi *core.MetaInfo) string {
	n := mi.Info.NumPieces()
	pl := mi.Info.PieceLength
	for _, th := range m.config.RehashThresholds {
		if n >= th.MinPieces && pl < int64(th.PieceLength) {
			return fmt.Sprintf("%d pieces of %d bytes", n, pl)
		}
	}
	if pl < int64(m.config.MinPieceLength) {
		return fmt.Sprintf("piece length %d too small", pl)
	}
	return ""
}

// Find tries every known hash in order, then the client listing of t if any,
// and returns the first valid candidate. The returned Result has outcome
// NotFound if nothing could be reused.
func (m *Matcher) Find(
	ctx context.Context, c *core.ContentDescriptor, t Target, hashes []string) (Result, error) {

	for _, h := range hashes {
		if h == "" {
			continue
		}
		if r := m.Check(c, t, h); r.Outcome == Valid {
			return r, nil
		}
	}
	if t.Lister == nil {
		return Result{Outcome: NotFound, Reason: "no valid known hash"}, nil
	}
	torrents, err := t.Lister.ListTorrents(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list torrents: %s", err)
	}
	for _, tor := range torrents {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if !listingMatches(c, t, tor) {
			continue
		}
		if r := m.Check(c, t, tor.Hash); r.Outcome == Valid {
			return r, nil
		}
	}
	return Result{Outcome: NotFound, Reason: "no matching torrent listed"}, nil
}

// listingMatches returns true if tor points at the content of c.
func listingMatches(c *core.ContentDescriptor, t Target, tor TorrentSummary) bool {
	p := tor.ContentPath
	if t.Mapper != nil {
		p = t.Mapper.Reverse(p)
	}
	p = filepath.Clean(p)
	if !c.IsDisc && len(c.Files) == 1 {
		return tor.NumFiles <= 1 && strings.EqualFold(p, filepath.Clean(c.Files[0]))
	}
	return strings.EqualFold(p, filepath.Clean(c.Path))
}

// candidatePaths returns the "/" joined paths of mi's files, each prefixed with
// the torrent name for multi-file torrents.
func candidatePaths(mi *core.MetaInfo) []string {
	if !mi.Info.IsDir() {
		return []string{mi.Name()}
	}
	paths := make([]string, len(mi.Info.Files))
	for i, f := range mi.Info.Files {
		paths[i] = mi.Name() + "/" + f.DisplayPath()
	}
	return paths
}

func slashPaths(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.ToSlash(p)
	}
	return out
}

// commonPath returns the longest common "/" separated directory prefix of
// paths. A single path is its own common path.
func commonPath(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	common := strings.Split(paths[0], "/")
	for _, p := range paths[1:] {
		segs := strings.Split(p, "/")
		n := 0
		for n < len(common) && n < len(segs) && common[n] == segs[n] {
			n++
		}
		common = common[:n]
	}
	return strings.Join(common, "/")
}

// containsSegments returns true if the "/" separated segments of sub appear
// consecutively in p.
func containsSegments(p, sub string) bool {
	return strings.Contains("/"+p+"/", "/"+sub+"/")
}
