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

// Package metainfogen builds BitTorrent metainfo files for local content.
package metainfogen

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"

	"github.com/upload-assistant/torrentprep/core"
	"github.com/upload-assistant/torrentprep/lib/piecesize"
	"github.com/upload-assistant/torrentprep/utils/log"
)

// Flags controls the destination independent parts of a build, plus the
// fields of the base artifact.
type Flags struct {
	Private  bool
	Source   string
	Comment  string
	Trackers []string

	// CreationDate defaults to the current time.
	CreationDate time.Time

	// Globs applied to non-disc content. Empty means the defaults.
	IncludeGlobs []string
	ExcludeGlobs []string

	// MaxPieceLength lowers the configured maximum piece length.
	MaxPieceLength int64

	// PieceLength skips the piece length search if set.
	PieceLength int64
}

// Generator builds metainfo files.
type Generator struct {
	config   Config
	selector *piecesize.Selector
	pinned   *pieceLengthConfig
	hasher   PieceHasher
	clk      clock.Clock
	stats    tally.Scope
}

// Option allows setting optional Generator parameters.
type Option func(*Generator)

// WithHasher configures a Generator with a custom PieceHasher.
func WithHasher(h PieceHasher) Option {
	return func(g *Generator) { g.hasher = h }
}

// WithClock configures a Generator with a custom clock.
func WithClock(clk clock.Clock) Option {
	return func(g *Generator) { g.clk = clk }
}

// New creates a new Generator.
func New(config Config, stats tally.Scope, opts ...Option) (*Generator, error) {
	config = config.applyDefaults()
	g := &Generator{
		config:   config,
		selector: piecesize.New(config.PieceSize),
		hasher:   NewSHA1Hasher(config.HashWorkers),
		clk:      clock.New(),
		stats:    stats.SubScope("metainfogen"),
	}
	if len(config.PieceLengths) > 0 {
		plConfig, err := newPieceLengthConfig(config.PieceLengths)
		if err != nil {
			return nil, fmt.Errorf("piece length config: %s", err)
		}
		g.pinned = plConfig
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type layout struct {
	name   string
	single bool
	files  []FileSpec
	paths  [][]string
}

// selectLayout decides which files go into the torrent of c and how they are
// named inside it.
func selectLayout(c *core.ContentDescriptor, flags Flags) (*layout, error) {
	if !c.IsDir {
		fi, err := os.Stat(c.Path)
		if err != nil {
			return nil, err
		}
		return &layout{
			name:   filepath.Base(c.Path),
			single: true,
			files:  []FileSpec{{c.Path, fi.Size()}},
		}, nil
	}

	// Caller globs choose among every file, not just the release files.
	files := c.Files
	include, exclude := flags.IncludeGlobs, flags.ExcludeGlobs
	if len(include) == 0 && len(exclude) == 0 {
		include, exclude = core.DefaultIncludeGlobs, core.DefaultExcludeGlobs
	} else if c.AllFiles != nil {
		files = c.AllFiles
	}
	type entry struct {
		spec FileSpec
		rel  []string
	}
	var entries []entry
	for _, p := range files {
		if !c.IsDisc && !core.MatchesGlobs(p, include, exclude) {
			continue
		}
		rel, err := filepath.Rel(c.Path, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("file %s outside of %s", p, c.Path)
		}
		fi, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{
			spec: FileSpec{p, fi.Size()},
			rel:  strings.Split(filepath.ToSlash(rel), "/"),
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no files selected in %s", c.Path)
	}
	sort.Slice(entries, func(i, j int) bool {
		return strings.Join(entries[i].rel, "/") < strings.Join(entries[j].rel, "/")
	})

	if len(entries) == 1 && !c.KeepFolder && !c.IsDisc {
		return &layout{
			name:   filepath.Base(entries[0].spec.Path),
			single: true,
			files:  []FileSpec{entries[0].spec},
		}, nil
	}
	l := &layout{name: c.Basename()}
	for _, e := range entries {
		l.files = append(l.files, e.spec)
		l.paths = append(l.paths, e.rel)
	}
	return l, nil
}

func (l *layout) total() (n int64) {
	for _, f := range l.files {
		n += f.Length
	}
	return n
}

// torrentPaths returns the "/" joined paths of l as they appear in the
// torrent, used for estimating its size.
func (l *layout) torrentPaths() []string {
	if l.single {
		return []string{l.name}
	}
	paths := make([]string, len(l.paths))
	for i, p := range l.paths {
		paths[i] = strings.Join(p, "/")
	}
	return paths
}

// Build hashes c and returns its metainfo. Identical content and flags always
// produce an identical info dictionary.
func (g *Generator) Build(
	ctx context.Context, c *core.ContentDescriptor, flags Flags) (*core.MetaInfo, error) {

	l, err := selectLayout(c, flags)
	if err != nil {
		return nil, fmt.Errorf("select files: %s", err)
	}
	pieceLength, err := g.pieceLength(l, flags)
	if err != nil {
		return nil, err
	}

	start := g.clk.Now()
	pieces, err := g.hasher.HashPieces(ctx, l.files, pieceLength)
	if err != nil {
		return nil, fmt.Errorf("hash pieces: %s", err)
	}
	g.stats.Timer("hash_time").Record(g.clk.Now().Sub(start))

	info := core.Info{
		Name:        l.name,
		PieceLength: pieceLength,
		Pieces:      pieces,
		Private:     flags.Private,
	}
	if l.single {
		info.Length = l.files[0].Length
	} else {
		for i, f := range l.files {
			info.Files = append(info.Files, core.FileInfo{Length: f.Length, Path: l.paths[i]})
		}
	}
	mi, err := core.NewMetaInfo(info)
	if err != nil {
		return nil, fmt.Errorf("create metainfo: %s", err)
	}
	g.decorate(mi, flags)
	g.stats.Counter("builds").Inc(1)

	log.With("content", c.ID, "infohash", mi.InfoHash().Hex()).Infof(
		"Built torrent with %d pieces of %d bytes", info.NumPieces(), pieceLength)
	return mi, nil
}

func (g *Generator) pieceLength(l *layout, flags Flags) (int64, error) {
	total := l.total()
	switch {
	case flags.PieceLength > 0:
		if !core.IsValidPieceLength(flags.PieceLength) {
			return 0, fmt.Errorf("invalid piece length %d", flags.PieceLength)
		}
		return flags.PieceLength, nil
	case g.pinned != nil:
		return g.pinned.get(total), nil
	}
	r := g.selector.Select(total, l.torrentPaths(), flags.MaxPieceLength)
	if r.Warning != nil {
		g.stats.Counter("sizing_warnings").Inc(1)
		log.With("name", l.name).Warnf("Piece size search: %s", r.Warning)
	}
	return r.PieceLength, nil
}

// decorate sets the destination independent top-level fields of mi.
func (g *Generator) decorate(mi *core.MetaInfo, flags Flags) {
	*mi = *mi.Clone(core.Destination{
		Trackers: flags.Trackers,
		Comment:  flags.Comment,
		Source:   flags.Source,
	})
	mi.CreatedBy = g.config.CreatedBy
	date := flags.CreationDate
	if date.IsZero() {
		date = g.clk.Now()
	}
	mi.CreationDate = date.Unix()
}

// FromExisting derives a base metainfo from a torrent already known to a
// client. Only the file layout and piece hashes are carried over. The private
// flag, source and remaining fields come from flags, the same way Build sets
// them, so the infohash differs from the candidate's whenever the candidate
// was created with other flags.
func (g *Generator) FromExisting(path string, flags Flags) (*core.MetaInfo, error) {
	candidate, err := core.LoadMetaInfo(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %s", path, err)
	}
	info := candidate.Info
	info.Private = flags.Private
	info.Source = ""
	mi, err := core.NewMetaInfo(info)
	if err != nil {
		return nil, fmt.Errorf("existing torrent %s: %s", path, err)
	}
	if mi.InfoHash() != candidate.InfoHash() {
		log.With("path", path).Infof(
			"Applying build flags changed infohash from %s to %s",
			candidate.InfoHash(), mi.InfoHash())
	}
	g.decorate(mi, flags)
	g.stats.Counter("reused").Inc(1)
	return mi, nil
}

// DataPath returns the on-disk root of the torrent mi built from c.
func DataPath(c *core.ContentDescriptor, mi *core.MetaInfo) string {
	if mi.Info.IsDir() || !c.IsDir {
		return c.Path
	}
	for _, f := range c.Files {
		if filepath.Base(f) == mi.Info.Name {
			return f
		}
	}
	return filepath.Join(c.Path, mi.Info.Name)
}

// Write writes mi to path and re-reads it to check the declared file sizes
// against the content at dataPath.
func (g *Generator) Write(mi *core.MetaInfo, dataPath, path string) error {
	b, err := mi.Serialize()
	if err != nil {
		return UnwritableArtifactError{path, fmt.Sprintf("serialize: %s", err)}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return UnwritableArtifactError{path, err.Error()}
	}
	tmp, err := ioutil.TempFile(filepath.Dir(path), ".torrent")
	if err != nil {
		return UnwritableArtifactError{path, err.Error()}
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return UnwritableArtifactError{path, err.Error()}
	}
	if err := tmp.Close(); err != nil {
		return UnwritableArtifactError{path, err.Error()}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return UnwritableArtifactError{path, err.Error()}
	}
	return verifySizes(path, dataPath)
}

func verifySizes(path, dataPath string) error {
	written, err := core.LoadMetaInfo(path)
	if err != nil {
		return UnwritableArtifactError{path, fmt.Sprintf("re-read: %s", err)}
	}
	fi, err := os.Stat(dataPath)
	if err != nil {
		return UnwritableArtifactError{path, fmt.Sprintf("stat content: %s", err)}
	}
	files := written.Info.UpvertedFiles()
	for i, p := range written.Info.LocalPaths(dataPath, fi.IsDir()) {
		st, err := os.Stat(p)
		if err != nil {
			return UnwritableArtifactError{path, fmt.Sprintf("stat %s: %s", p, err)}
		}
		if st.Size() != files[i].Length {
			return UnwritableArtifactError{path, fmt.Sprintf(
				"%s declares %d bytes, found %d", p, files[i].Length, st.Size())}
		}
	}
	return nil
}
