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

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"

	"github.com/upload-assistant/torrentprep/core"
	"github.com/upload-assistant/torrentprep/lib/hashstore"
	"github.com/upload-assistant/torrentprep/lib/metainfogen"
	"github.com/upload-assistant/torrentprep/lib/torrentclient"
	"github.com/upload-assistant/torrentprep/lib/torrentclient/clienterrors"
	"github.com/upload-assistant/torrentprep/lib/torrentmatch"
	"github.com/upload-assistant/torrentprep/localdb"
	"github.com/upload-assistant/torrentprep/mocks/lib/torrentclient"
	"github.com/upload-assistant/torrentprep/utils/errutil"
	"github.com/upload-assistant/torrentprep/utils/testutil"
)

const _pieceLength = 64 * 1024

type fixture struct {
	client     *mocktorrentclient.MockClient
	backend    core.Backend
	generator  *metainfogen.Generator
	store      *hashstore.Store
	storageDir string
	content    *core.ContentDescriptor
	preparer   *Preparer
}

func newFixture(t *testing.T, backend core.Backend, config Config) (*fixture, func()) {
	var cleanup testutil.Cleanup
	defer cleanup.Recover()

	ctrl := gomock.NewController(t)
	cleanup.Add(ctrl.Finish)

	client := mocktorrentclient.NewMockClient(ctrl)
	client.EXPECT().Backend().Return(backend).AnyTimes()

	db, dbCleanup := localdb.Fixture()
	cleanup.Add(dbCleanup)

	tmp, err := ioutil.TempDir("", "torrentprep-")
	require.NoError(t, err)
	cleanup.Add(func() { os.RemoveAll(tmp) })

	storageDir := filepath.Join(tmp, "storage")
	require.NoError(t, os.MkdirAll(storageDir, 0755))

	content, contentCleanup := core.FileContentFixture("release.mkv", 100000)
	cleanup.Add(contentCleanup)

	generator, _ := metainfogen.Fixture()
	store := hashstore.New(db)

	if config.ArtifactDir == "" {
		config.ArtifactDir = filepath.Join(tmp, "artifacts")
	}
	if config.DefaultClient == "" {
		config.DefaultClient = "seedbox"
	}
	registrar := torrentclient.NewRegistrar(
		map[string]torrentclient.Client{"seedbox": client}, tally.NoopScope)
	targets := map[string]torrentmatch.Target{
		"seedbox": {Backend: backend, StorageDir: storageDir},
	}
	preparer := New(
		config,
		generator,
		torrentmatch.New(torrentmatch.Config{}, tally.NoopScope),
		registrar,
		targets,
		store,
		tally.NoopScope)

	return &fixture{
		client:     client,
		backend:    backend,
		generator:  generator,
		store:      store,
		storageDir: storageDir,
		content:    content,
		preparer:   preparer,
	}, cleanup.Run
}

// seed places a private torrent of the fixture content with the given piece
// length in the client's storage and returns its infohash.
func (f *fixture) seed(t *testing.T, pieceLength int64) core.InfoHash {
	return f.seedWithFlags(t, metainfogen.Flags{Private: true, PieceLength: pieceLength})
}

func (f *fixture) seedWithFlags(t *testing.T, flags metainfogen.Flags) core.InfoHash {
	flags.Trackers = []string{"https://other.example/announce"}
	flags.Comment = "seeded elsewhere"
	mi, err := f.generator.Build(context.Background(), f.content, flags)
	require.NoError(t, err)
	b, err := mi.Serialize()
	require.NoError(t, err)
	h := mi.InfoHash()
	require.NoError(t, ioutil.WriteFile(
		filepath.Join(f.storageDir, h.HexFor(f.backend)+".torrent"), b, 0644))
	return h
}

func (f *fixture) request() Request {
	return Request{
		Content: f.content,
		Flags: metainfogen.Flags{
			Private:     true,
			Source:      "BASE",
			PieceLength: _pieceLength,
		},
	}
}

func handleFor(reg core.Registration, backend core.Backend) core.TorrentHandle {
	return core.TorrentHandle{
		InfoHash:    reg.MetaInfo.InfoHash(),
		Client:      "seedbox",
		Backend:     backend,
		StoragePath: reg.Content.SavePath(),
	}
}

func TestPrepareBuildsAndRegisters(t *testing.T) {
	require := require.New(t)

	f, cleanup := newFixture(t, core.QBittorrent, Config{})
	defer cleanup()

	var handle core.TorrentHandle
	f.client.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, reg core.Registration) (core.TorrentHandle, error) {
			require.Nil(reg.Resume)
			require.Equal(f.content.Path, reg.DataPath)
			require.Equal("movies", reg.Category)
			require.Equal("EX", reg.Destination)

			registered, err := core.LoadMetaInfo(reg.ArtifactPath)
			require.NoError(err)
			require.Equal([]string{"https://ex.example/announce"}, registered.Trackers())
			require.Equal("EX", registered.Source)
			require.Equal(reg.MetaInfo.InfoHash(), registered.InfoHash())

			handle = handleFor(reg, core.QBittorrent)
			return handle, nil
		})

	req := f.request()
	req.Category = "movies"
	req.Destinations = []Destination{{
		Label: "EX",
		Destination: core.Destination{
			Trackers: []string{"https://ex.example/announce"},
			Source:   "EX",
		},
	}}

	res, err := f.preparer.Prepare(context.Background(), req)
	require.NoError(err)
	require.False(res.Reused)
	require.Equal(torrentmatch.NotFound, res.Match.Outcome)
	handle.Destination = "EX"
	require.Equal([]core.TorrentHandle{handle}, res.Handles)

	base, err := core.LoadMetaInfo(res.ArtifactPath)
	require.NoError(err)
	require.Equal(res.MetaInfo.InfoHash(), base.InfoHash())
	require.Equal("BASE", base.Source)
	require.Equal(int64(_pieceLength), base.Info.PieceLength)

	ex, err := core.LoadMetaInfo(res.Artifacts["EX"])
	require.NoError(err)
	require.Equal(base.InfoHash(), ex.InfoHash())
	require.Equal("EX", ex.Source)
	require.Equal([]string{"https://ex.example/announce"}, ex.Trackers())

	hashes, err := f.store.Hashes(f.content.ID)
	require.NoError(err)
	require.Equal([]core.InfoHash{base.InfoHash()}, hashes)

	handles, err := f.store.Registrations(f.content.ID)
	require.NoError(err)
	require.Equal([]core.TorrentHandle{handle}, handles)
}

func TestPrepareReusesKnownHashWithResume(t *testing.T) {
	require := require.New(t)

	f, cleanup := newFixture(t, core.RTorrent, Config{})
	defer cleanup()

	h := f.seed(t, 2*_pieceLength)
	require.NoError(f.store.AddHash(f.content.ID, h, hashstore.External))

	f.client.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, reg core.Registration) (core.TorrentHandle, error) {
			require.NotNil(reg.Resume)
			require.Len(reg.Resume.Files, 1)
			require.Equal(int64(1), reg.Resume.Files[0].Completed)
			require.Equal([]byte{0x80}, reg.Resume.Bitfield)
			return handleFor(reg, core.RTorrent), nil
		})

	res, err := f.preparer.Prepare(context.Background(), f.request())
	require.NoError(err)
	require.True(res.Reused)
	require.Equal(torrentmatch.Valid, res.Match.Outcome)
	require.Equal(h.HexFor(core.RTorrent), res.Match.Hash)
	require.Equal(h, res.MetaInfo.InfoHash())

	base, err := core.LoadMetaInfo(res.ArtifactPath)
	require.NoError(err)
	require.Equal(h, base.InfoHash())
	require.Equal("BASE", base.Source)
	require.Empty(base.Trackers())
	require.Empty(base.Comment)
}

func TestPrepareRegistersEveryDestination(t *testing.T) {
	require := require.New(t)

	f, cleanup := newFixture(t, core.Watch, Config{})
	defer cleanup()

	trackers := map[string]string{}
	f.client.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, reg core.Registration) (core.TorrentHandle, error) {
			registered, err := core.LoadMetaInfo(reg.ArtifactPath)
			require.NoError(err)
			trackers[reg.Destination] = registered.Trackers()[0]
			h := handleFor(reg, core.Watch)
			h.StoragePath = reg.ArtifactPath
			return h, nil
		}).Times(2)

	req := f.request()
	req.Destinations = []Destination{
		{Label: "EX", Destination: core.Destination{Trackers: []string{"https://ex.example/announce"}}},
		{Label: "OT", Destination: core.Destination{Trackers: []string{"https://ot.example/announce"}}},
	}

	res, err := f.preparer.Prepare(context.Background(), req)
	require.NoError(err)
	require.Equal(map[string]string{
		"EX": "https://ex.example/announce",
		"OT": "https://ot.example/announce",
	}, trackers)

	handles, err := f.store.Registrations(f.content.ID)
	require.NoError(err)
	require.Len(handles, 2)
	require.Equal("EX", handles[0].Destination)
	require.Equal(res.Artifacts["EX"], handles[0].StoragePath)
	require.Equal("OT", handles[1].Destination)
	require.Equal(res.Artifacts["OT"], handles[1].StoragePath)
}

func TestPrepareReusedPublicTorrentBecomesPrivate(t *testing.T) {
	require := require.New(t)

	f, cleanup := newFixture(t, core.QBittorrent, Config{})
	defer cleanup()

	h := f.seedWithFlags(t, metainfogen.Flags{PieceLength: 2 * _pieceLength})
	require.NoError(f.store.AddHash(f.content.ID, h, hashstore.External))

	f.client.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, reg core.Registration) (core.TorrentHandle, error) {
			return handleFor(reg, core.QBittorrent), nil
		})

	res, err := f.preparer.Prepare(context.Background(), f.request())
	require.NoError(err)
	require.True(res.Reused)
	require.True(res.MetaInfo.Info.Private)
	require.NotEqual(h, res.MetaInfo.InfoHash())

	base, err := core.LoadMetaInfo(res.ArtifactPath)
	require.NoError(err)
	require.True(base.Info.Private)
	require.Equal(int64(2*_pieceLength), base.Info.PieceLength)

	hashes, err := f.store.Hashes(f.content.ID)
	require.NoError(err)
	require.Equal([]core.InfoHash{res.MetaInfo.InfoHash(), h}, hashes)
}

func TestPrepareRequestHashesSkipResumeForQBittorrent(t *testing.T) {
	require := require.New(t)

	f, cleanup := newFixture(t, core.QBittorrent, Config{})
	defer cleanup()

	h := f.seed(t, 2*_pieceLength)

	f.client.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, reg core.Registration) (core.TorrentHandle, error) {
			require.Nil(reg.Resume)
			return handleFor(reg, core.QBittorrent), nil
		})

	req := f.request()
	req.Hashes = []string{"", h.HexFor(core.RTorrent)}

	res, err := f.preparer.Prepare(context.Background(), req)
	require.NoError(err)
	require.True(res.Reused)
	require.Equal(h, res.MetaInfo.InfoHash())

	hashes, err := f.store.Hashes(f.content.ID)
	require.NoError(err)
	require.Equal([]core.InfoHash{h}, hashes)
}

func TestPrepareRehashRequiredBuildsNewTorrent(t *testing.T) {
	require := require.New(t)

	f, cleanup := newFixture(t, core.QBittorrent, Config{})
	defer cleanup()

	h := f.seed(t, core.MinPieceLength)
	require.NoError(f.store.AddHash(f.content.ID, h, hashstore.External))

	f.client.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, reg core.Registration) (core.TorrentHandle, error) {
			return handleFor(reg, core.QBittorrent), nil
		})

	res, err := f.preparer.Prepare(context.Background(), f.request())
	require.NoError(err)
	require.False(res.Reused)
	require.Equal(torrentmatch.NotFound, res.Match.Outcome)
	require.NotEqual(h, res.MetaInfo.InfoHash())

	hashes, err := f.store.Hashes(f.content.ID)
	require.NoError(err)
	require.Equal([]core.InfoHash{res.MetaInfo.InfoHash(), h}, hashes)
}

func TestPrepareDisableReuse(t *testing.T) {
	require := require.New(t)

	f, cleanup := newFixture(t, core.QBittorrent, Config{DisableReuse: true})
	defer cleanup()

	h := f.seed(t, 2*_pieceLength)

	f.client.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, reg core.Registration) (core.TorrentHandle, error) {
			return handleFor(reg, core.QBittorrent), nil
		})

	req := f.request()
	req.Hashes = []string{h.Hex()}

	res, err := f.preparer.Prepare(context.Background(), req)
	require.NoError(err)
	require.False(res.Reused)
}

func TestPrepareNoSeedSkipsRegistration(t *testing.T) {
	require := require.New(t)

	f, cleanup := newFixture(t, core.QBittorrent, Config{})
	defer cleanup()

	req := f.request()
	req.Clients = []string{"NONE"}

	res, err := f.preparer.Prepare(context.Background(), req)
	require.NoError(err)
	require.Empty(res.Handles)
	require.FileExists(res.ArtifactPath)

	handles, err := f.store.Registrations(f.content.ID)
	require.NoError(err)
	require.Empty(handles)
}

func TestPrepareRegistrationFailureKeepsArtifacts(t *testing.T) {
	require := require.New(t)

	f, cleanup := newFixture(t, core.QBittorrent, Config{})
	defer cleanup()

	f.client.EXPECT().Register(gomock.Any(), gomock.Any()).Return(
		core.TorrentHandle{}, clienterrors.AuthError{Client: "seedbox", Msg: "Fails."})

	res, err := f.preparer.Prepare(context.Background(), f.request())
	require.Error(err)
	require.True(errutil.Any(err, clienterrors.IsAuthError))
	require.NotNil(res)
	require.FileExists(res.ArtifactPath)
	require.Empty(res.Handles)

	hashes, err := f.store.Hashes(f.content.ID)
	require.NoError(err)
	require.Equal([]core.InfoHash{res.MetaInfo.InfoHash()}, hashes)
}

func TestPrepareCanceledContext(t *testing.T) {
	f, cleanup := newFixture(t, core.QBittorrent, Config{})
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.preparer.Prepare(ctx, f.request())
	require.Error(t, err)
}
