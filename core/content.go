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
package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ContentDescriptor describes one media release on local disk. It is immutable
// for the duration of a build.
type ContentDescriptor struct {
	// ID is the release name. Disc and keep-folder torrents must carry it as
	// their name.
	ID   string
	Path string

	// Files are the release files: every file of a disc, otherwise the
	// files matching the default globs.
	Files     []string
	TotalSize int64

	// AllFiles lists every regular file under Path, for callers selecting
	// files with their own globs.
	AllFiles []string

	IsDisc     bool
	KeepFolder bool
	IsDir      bool
}

// ContentOptions tweak how ScanContent classifies content.
type ContentOptions struct {
	IsDisc     bool
	KeepFolder bool
}

// ScanContent walks path and returns a descriptor listing the files under it
// in sorted order. Disc content counts every file as a release file, other
// directories only the files matching the default globs.
func ScanContent(path, id string, opts ContentOptions) (*ContentDescriptor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("abs: %s", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	c := &ContentDescriptor{
		ID:         id,
		Path:       abs,
		IsDisc:     opts.IsDisc,
		KeepFolder: opts.KeepFolder,
		IsDir:      fi.IsDir(),
	}
	if c.ID == "" {
		c.ID = filepath.Base(abs)
	}
	if !fi.IsDir() {
		c.Files = []string{abs}
		c.AllFiles = c.Files
		c.TotalSize = fi.Size()
		return c, nil
	}
	err = filepath.Walk(abs, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		c.AllFiles = append(c.AllFiles, p)
		if opts.IsDisc || MatchesGlobs(p, DefaultIncludeGlobs, DefaultExcludeGlobs) {
			c.Files = append(c.Files, p)
			c.TotalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %s", abs, err)
	}
	if len(c.AllFiles) == 0 {
		return nil, errors.New("no files found")
	}
	sort.Strings(c.Files)
	sort.Strings(c.AllFiles)
	return c, nil
}

// Basename returns the last element of the content path.
func (c *ContentDescriptor) Basename() string {
	return filepath.Base(c.Path)
}

// SingleFile returns true if c consists of exactly one file.
func (c *ContentDescriptor) SingleFile() bool {
	return len(c.Files) == 1
}

// SavePath returns the directory a client should treat as the torrent's
// parent. A plain directory holding one file is itself the parent, anything
// else lives next to its content.
func (c *ContentDescriptor) SavePath() string {
	if c.IsDir && c.SingleFile() && !c.KeepFolder && !c.IsDisc {
		return c.Path
	}
	return filepath.Dir(c.Path)
}
