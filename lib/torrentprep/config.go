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
package torrentprep

// NoSeed is the client name which disables registration.
const NoSeed = "none"

// Config defines Preparer configuration.
type Config struct {
	// ArtifactDir is the base directory of the per-upload metainfo files.
	ArtifactDir string `yaml:"artifact_dir" validate:"nonzero"`

	// DefaultClient is used when a request names no clients.
	DefaultClient string `yaml:"default_client"`

	// DisableReuse always hashes content even if a client already seeds it.
	DisableReuse bool `yaml:"disable_reuse"`
}
