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
package metainfogen

import (
	"fmt"
	"path/filepath"
	"regexp"
)

// BaseLabel names the artifact every labeled clone is derived from.
const BaseLabel = "BASE"

var _unsafeNameChars = regexp.MustCompile(`[^0-9a-zA-Z\[\]'\-]+`)

// ArtifactDir returns the directory holding all artifacts of one upload.
func ArtifactDir(baseDir, contentID string) string {
	return filepath.Join(baseDir, "tmp", contentID)
}

// ArtifactPath returns the path of the artifact for one destination. An
// empty label refers to the base artifact.
func ArtifactPath(baseDir, contentID, label, name string) string {
	if label == "" || label == BaseLabel {
		return filepath.Join(ArtifactDir(baseDir, contentID), BaseLabel+".torrent")
	}
	return filepath.Join(
		ArtifactDir(baseDir, contentID),
		fmt.Sprintf("[%s]%s.torrent", label, SafeName(name)))
}

// SafeName replaces runs of characters which are awkward in file names with a
// single dot.
func SafeName(name string) string {
	return _unsafeNameChars.ReplaceAllString(name, ".")
}
