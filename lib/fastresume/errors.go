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
package fastresume

import "fmt"

// FileSizeMismatchError occurs when a file on disk does not have the length
// its torrent declares.
type FileSizeMismatchError struct {
	Path     string
	Actual   int64
	Declared int64
}

func (e FileSizeMismatchError) Error() string {
	return fmt.Sprintf("file size mismatch for %s: is %d, expected %d", e.Path, e.Actual, e.Declared)
}

// IsFileSizeMismatch returns true if err is a FileSizeMismatchError.
func IsFileSizeMismatch(err error) bool {
	_, ok := err.(FileSizeMismatchError)
	return ok
}
