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

import "fmt"

// UnwritableArtifactError occurs when a metainfo file could not be written, or
// when what was written no longer describes the content on disk.
type UnwritableArtifactError struct {
	Path string
	Msg  string
}

func (e UnwritableArtifactError) Error() string {
	return fmt.Sprintf("unwritable artifact %s: %s", e.Path, e.Msg)
}

// IsUnwritableArtifact returns true if err is an UnwritableArtifactError.
func IsUnwritableArtifact(err error) bool {
	_, ok := err.(UnwritableArtifactError)
	return ok
}
