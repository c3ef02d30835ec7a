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

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMultiError(t *testing.T) {
	a := errors.New("a")
	b := errors.New("b")
	c := errors.New("c")

	tests := []struct {
		desc   string
		errs   []error
		result string
	}{
		{"empty", nil, ""},
		{"one error", []error{a}, "a"},
		{"many errors", []error{a, b, c}, "a, b, c"},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			require.Equal(t, test.result, MultiError(test.errs).Error())
		})
	}
}

func TestJoinEmpty(t *testing.T) {
	require.NoError(t, Join(nil))
	require.NoError(t, Join([]error{}))
}

func TestJoinNonEmpty(t *testing.T) {
	require.Error(t, Join([]error{errors.New("some error")}))
}

func TestAny(t *testing.T) {
	require := require.New(t)

	target := errors.New("target")
	is := func(err error) bool { return err == target }

	require.False(Any(nil, is))
	require.True(Any(target, is))
	require.False(Any(errors.New("other"), is))
	require.True(Any(Join([]error{errors.New("other"), target}), is))
	require.False(Any(Join([]error{errors.New("other")}), is))
	require.True(Any(Join([]error{fmt.Errorf("wrapped: %w", target)}), is))
}
