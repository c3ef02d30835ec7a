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
package localdb

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMigratesSchema(t *testing.T) {
	require := require.New(t)

	tmpdir, err := ioutil.TempDir("", "localdb-")
	require.NoError(err)
	defer os.RemoveAll(tmpdir)

	db, err := New(Config{Source: filepath.Join(tmpdir, "nested", "test.db")})
	require.NoError(err)
	defer db.Close()

	var tables []string
	require.NoError(db.Select(&tables, `
		SELECT name FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'goose_%'
		ORDER BY name`))
	require.Equal([]string{"known_hash", "registration"}, tables)
}

func TestNewIsIdempotent(t *testing.T) {
	require := require.New(t)

	tmpdir, err := ioutil.TempDir("", "localdb-")
	require.NoError(err)
	defer os.RemoveAll(tmpdir)

	config := Config{Source: filepath.Join(tmpdir, "test.db")}

	db, err := New(config)
	require.NoError(err)
	_, err = db.Exec(`INSERT INTO known_hash (content_id, infohash, source) VALUES ('a', 'b', 'built')`)
	require.NoError(err)
	require.NoError(db.Close())

	db, err = New(config)
	require.NoError(err)
	defer db.Close()

	var n int
	require.NoError(db.Get(&n, `SELECT COUNT(*) FROM known_hash`))
	require.Equal(1, n)
}

func TestNewErrors(t *testing.T) {
	tmpdir, err := ioutil.TempDir("", "localdb-")
	require.NoError(t, err)
	defer os.RemoveAll(tmpdir)

	file := filepath.Join(tmpdir, "file")
	require.NoError(t, ioutil.WriteFile(file, []byte("x"), 0644))

	tests := []struct {
		desc   string
		source string
	}{
		{"empty source", ""},
		{"parent is a file", filepath.Join(file, "db.sqlite")},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			_, err := New(Config{Source: test.source})
			require.Error(t, err)
		})
	}
}

func TestFixture(t *testing.T) {
	db, cleanup := Fixture()
	defer cleanup()

	require.NoError(t, db.Ping())
}
