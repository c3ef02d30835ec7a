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
	"path/filepath"
	"strings"
)

// Default file selection for non-disc releases. Samples are skipped unless
// their name carries a "!sample" marker.
var (
	DefaultIncludeGlobs = []string{"*.mkv", "*.mp4", "*.ts"}
	DefaultExcludeGlobs = []string{"*sample.mkv"}
)

const keepSampleMarker = "!sample"

// MatchesGlobs returns true if the base name of p matches any include glob and
// no exclude glob. Matching ignores case. An empty include list matches
// everything.
func MatchesGlobs(p string, include, exclude []string) bool {
	name := strings.ToLower(filepath.Base(p))
	if len(include) > 0 && !matchAny(name, include) {
		return false
	}
	if strings.Contains(name, keepSampleMarker) {
		return true
	}
	return !matchAny(name, exclude)
}

func matchAny(name string, globs []string) bool {
	for _, g := range globs {
		if ok, err := filepath.Match(strings.ToLower(g), name); err == nil && ok {
			return true
		}
	}
	return false
}
