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
package errutil

import "strings"

// MultiError is a list of errors which occurred independently of each other,
// e.g. one per torrent client.
//
// Only return a MultiError through Join, a nil MultiError stored in an error
// interface is not nil.
type MultiError []error

func (e MultiError) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, ", ")
}

// Join converts errs into an error interface.
func Join(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return MultiError(errs)
}

// Any returns true if err, any error it joins, or any error it wraps
// satisfies f.
func Any(err error, f func(error) bool) bool {
	if err == nil {
		return false
	}
	if m, ok := err.(MultiError); ok {
		for _, e := range m {
			if Any(e, f) {
				return true
			}
		}
		return false
	}
	if f(err) {
		return true
	}
	if w, ok := err.(interface{ Unwrap() error }); ok {
		return Any(w.Unwrap(), f)
	}
	return false
}
