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
package deluge

import (
	"bufio"
	"context"
	"encoding/base64"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/upload-assistant/torrentprep/core"
	"github.com/upload-assistant/torrentprep/lib/pathmap"
	"github.com/upload-assistant/torrentprep/lib/torrentclient/clienterrors"
)

type request struct {
	method string
	args   []interface{}
	kwargs map[string]interface{}
}

// fakeDaemon answers requests on one end of a pipe.
type fakeDaemon struct {
	password string
	requests chan request
}

func newFakeDaemon() *fakeDaemon {
	return &fakeDaemon{password: "secret", requests: make(chan request, 10)}
}

func (d *fakeDaemon) dialer() DialFunc {
	return func(context.Context) (net.Conn, error) {
		client, server := net.Pipe()
		go d.serve(server)
		return client, nil
	}
}

func (d *fakeDaemon) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		msg, err := readMessage(r)
		if err != nil {
			return
		}
		call := msg.([]interface{})[0].([]interface{})
		id := call[0].(int64)
		req := request{call[1].(string), call[2].([]interface{}), call[3].(map[string]interface{})}
		d.requests <- req

		// Events may arrive before any response.
		writeMessage(conn, []interface{}{int64(rpcEvent), "TorrentAddedEvent", []interface{}{}})

		var resp []interface{}
		switch req.method {
		case "daemon.login":
			if req.args[1] != d.password {
				resp = []interface{}{int64(rpcError), id, "BadLoginError", "Password does not match", ""}
			} else {
				resp = []interface{}{int64(rpcResponse), id, int64(10)}
			}
		case "core.add_torrent_file":
			resp = []interface{}{int64(rpcResponse), id, "hash"}
		default:
			resp = []interface{}{int64(rpcError), id, "AttributeError", "no method", ""}
		}
		if err := writeMessage(conn, resp); err != nil {
			return
		}
	}
}

func newTestClient(t *testing.T, d *fakeDaemon, config Config, mapper *pathmap.Mapper) *Client {
	config.Host = "localhost"
	config.Username = "localclient"
	if config.Password == "" {
		config.Password = "secret"
	}
	c, err := New("deluge", config, mapper, WithDialer(d.dialer()))
	require.NoError(t, err)
	return c
}

func registrationFixture(t *testing.T) (core.Registration, func()) {
	c, cleanup := core.FileContentFixture("a.mkv", 100)
	mi, err := core.NewMetaInfo(core.InfoFixture("a.mkv", 100, core.MinPieceLength))
	require.NoError(t, err)
	return core.Registration{Content: c, MetaInfo: mi}, cleanup
}

func TestRegister(t *testing.T) {
	require := require.New(t)

	d := newFakeDaemon()
	r, cleanup := registrationFixture(t)
	defer cleanup()

	mapper := pathmap.New([]pathmap.Mapping{{Local: r.Content.SavePath(), Remote: "/downloads"}}, "")
	c := newTestClient(t, d, Config{}, mapper)

	h, err := c.Register(context.Background(), r)
	require.NoError(err)
	require.Equal("/downloads", h.StoragePath)
	require.Equal(core.Deluge, h.Backend)

	login := <-d.requests
	require.Equal("daemon.login", login.method)
	require.Equal([]interface{}{"localclient", "secret"}, login.args)

	add := <-d.requests
	require.Equal("core.add_torrent_file", add.method)
	require.Equal("a.mkv.torrent", add.args[0])

	b, err := base64.StdEncoding.DecodeString(add.args[1].(string))
	require.NoError(err)
	mi, err := core.ParseMetaInfo(b)
	require.NoError(err)
	require.Equal(r.MetaInfo.InfoHash(), mi.InfoHash())

	require.Equal(map[string]interface{}{
		"download_location": "/downloads",
		"seed_mode":         true,
	}, add.args[2])
}

func TestRegisterBadLogin(t *testing.T) {
	d := newFakeDaemon()
	r, cleanup := registrationFixture(t)
	defer cleanup()

	c := newTestClient(t, d, Config{Password: "wrong"}, nil)
	_, err := c.Register(context.Background(), r)
	require.True(t, clienterrors.IsAuthError(err))
}

func TestRegisterUnreachable(t *testing.T) {
	r, cleanup := registrationFixture(t)
	defer cleanup()

	c, err := New("deluge", Config{Host: "localhost", Port: 1}, nil)
	require.NoError(t, err)
	_, err = c.Register(context.Background(), r)
	require.True(t, clienterrors.IsConnectionError(err))
}

func TestRPCErrorFromCall(t *testing.T) {
	require := require.New(t)

	d := newFakeDaemon()
	client, server := net.Pipe()
	go d.serve(server)

	conn := newRPCConn(client)
	defer conn.Close()

	_, err := conn.call("core.missing", nil, nil)
	require.Error(err)
	require.Equal(RPCError{"AttributeError", "no method"}, err)
}
