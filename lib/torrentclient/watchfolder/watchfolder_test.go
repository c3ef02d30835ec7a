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
package watchfolder

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/upload-assistant/torrentprep/core"
)

func TestRegister(t *testing.T) {
	require := require.New(t)

	dir, err := ioutil.TempDir("", "watch")
	require.NoError(err)
	defer os.RemoveAll(dir)

	mi := core.MetaInfoFixture()
	b, err := mi.Serialize()
	require.NoError(err)
	artifact := filepath.Join(dir, "[EX]release.mkv.torrent")
	require.NoError(ioutil.WriteFile(artifact, b, 0644))

	watch := filepath.Join(dir, "watch")
	c, err := New("watch", Config{Dir: watch})
	require.NoError(err)

	h, err := c.Register(context.Background(), core.Registration{
		MetaInfo:     mi,
		ArtifactPath: artifact,
		Destination:  "EX",
	})
	require.NoError(err)
	require.Equal(filepath.Join(watch, "[EX]release.mkv.torrent"), h.StoragePath)
	require.Equal(core.Watch, h.Backend)

	copied, err := ioutil.ReadFile(h.StoragePath)
	require.NoError(err)
	require.Equal(b, copied)

	entries, err := ioutil.ReadDir(watch)
	require.NoError(err)
	require.Len(entries, 1)
}

func TestRegisterWithoutArtifactPath(t *testing.T) {
	require := require.New(t)

	dir, err := ioutil.TempDir("", "watch")
	require.NoError(err)
	defer os.RemoveAll(dir)

	mi := core.MetaInfoFixture()
	c, err := New("watch", Config{Dir: dir})
	require.NoError(err)

	h, err := c.Register(context.Background(), core.Registration{MetaInfo: mi})
	require.NoError(err)
	require.Equal(filepath.Join(dir, "release.mkv.torrent"), h.StoragePath)

	parsed, err := core.LoadMetaInfo(h.StoragePath)
	require.NoError(err)
	require.Equal(mi.InfoHash(), parsed.InfoHash())
}

func TestRegisterBaseArtifactsDoNotCollide(t *testing.T) {
	require := require.New(t)

	dir, err := ioutil.TempDir("", "watch")
	require.NoError(err)
	defer os.RemoveAll(dir)

	watch := filepath.Join(dir, "watch")
	c, err := New("watch", Config{Dir: watch})
	require.NoError(err)

	for _, name := range []string{"first.mkv", "second.mkv"} {
		mi, err := core.NewMetaInfo(core.InfoFixture(name, 100, core.MinPieceLength))
		require.NoError(err)
		b, err := mi.Serialize()
		require.NoError(err)

		artifact := filepath.Join(dir, "tmp", name, "BASE.torrent")
		require.NoError(os.MkdirAll(filepath.Dir(artifact), 0755))
		require.NoError(ioutil.WriteFile(artifact, b, 0644))

		h, err := c.Register(context.Background(), core.Registration{MetaInfo: mi, ArtifactPath: artifact})
		require.NoError(err)
		require.Equal(filepath.Join(watch, name+".torrent"), h.StoragePath)
	}

	entries, err := ioutil.ReadDir(watch)
	require.NoError(err)
	require.Len(entries, 2)
}

func TestNewRequiresDir(t *testing.T) {
	_, err := New("watch", Config{})
	require.Error(t, err)
}
