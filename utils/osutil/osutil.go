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
package osutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureFilePresent initializes a file and all parent directories for name
// if they do not exist. If the file exists, no-ops.
func EnsureFilePresent(name string) error {
	if _, err := os.Stat(name); os.IsNotExist(err) {
		err := os.MkdirAll(filepath.Dir(name), 0755)
		if err != nil {
			return fmt.Errorf("mkdir: %s", err)
		}
		f, err := os.Create(name)
		if err != nil {
			return fmt.Errorf("create: %s", err)
		}
		f.Close()
	} else if err != nil {
		return fmt.Errorf("stat: %s", err)
	}
	return nil
}
