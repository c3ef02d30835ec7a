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

// Package fastresume synthesizes the state a client needs to seed a reused
// torrent without verifying its pieces first.
package fastresume

import (
	"fmt"
	"os"
	"time"

	"github.com/upload-assistant/torrentprep/core"
	"github.com/upload-assistant/torrentprep/utils/bitsetutil"
)

// Priority is assigned to every file of a synthesized resume.
const Priority = 1

// Synthesize builds a ResumeDescriptor declaring every piece of mi complete
// for the content at dataPath. dataPath is the content root for multi-file
// torrents, and either the file itself or its directory for single-file ones.
// Nothing is returned if any file differs in size from what mi declares.
func Synthesize(mi *core.MetaInfo, dataPath string) (*core.ResumeDescriptor, error) {
	rootIsDir := false
	if !mi.Info.IsDir() {
		fi, err := os.Stat(dataPath)
		if err != nil {
			return nil, fmt.Errorf("stat data path: %s", err)
		}
		rootIsDir = fi.IsDir()
	}
	files := mi.Info.UpvertedFiles()
	paths := mi.Info.LocalPaths(dataPath, rootIsDir)

	pl := mi.Info.PieceLength
	desc := &core.ResumeDescriptor{Files: make([]core.ResumeFile, len(files))}
	var offset int64
	for i, f := range files {
		fi, err := os.Stat(paths[i])
		if err != nil {
			return nil, fmt.Errorf("stat %s: %s", paths[i], err)
		}
		if fi.Size() != f.Length {
			return nil, FileSizeMismatchError{paths[i], fi.Size(), f.Length}
		}
		desc.Files[i] = core.ResumeFile{
			Priority:  Priority,
			MTime:     fi.ModTime().Truncate(time.Second),
			Completed: SpannedPieces(offset, f.Length, pl),
		}
		offset += f.Length
	}
	n := uint(mi.Info.NumPieces())
	desc.Bitfield = bitsetutil.Pack(bitsetutil.Complete(n), n)
	return desc, nil
}

// SpannedPieces returns the number of pieces of length pl which overlap the
// byte range [offset, offset+length).
func SpannedPieces(offset, length, pl int64) int64 {
	return (offset+length+pl-1)/pl - offset/pl
}
