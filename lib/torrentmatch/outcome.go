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
package torrentmatch

// Outcome is the verdict on one reuse candidate.
type Outcome int

// Outcomes in order of the checks which produce them.
const (
	NotFound Outcome = iota
	StructuralMismatch
	WrongFile
	RehashRequired
	Valid
)

func (o Outcome) String() string {
	switch o {
	case NotFound:
		return "not_found"
	case StructuralMismatch:
		return "structural_mismatch"
	case WrongFile:
		return "wrong_file"
	case RehashRequired:
		return "rehash_required"
	case Valid:
		return "valid"
	default:
		return "unknown"
	}
}
