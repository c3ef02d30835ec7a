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
package torrentclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/uber-go/tally"

	"github.com/upload-assistant/torrentprep/core"
	"github.com/upload-assistant/torrentprep/utils/errutil"
	"github.com/upload-assistant/torrentprep/utils/lockermap"
	"github.com/upload-assistant/torrentprep/utils/log"
)

// ClientError attributes a registration failure to the client it occurred
// with.
type ClientError struct {
	Client string
	Err    error
}

func (e ClientError) Error() string {
	return fmt.Sprintf("%s: %s", e.Client, e.Err)
}

// Unwrap returns the underlying error.
func (e ClientError) Unwrap() error {
	return e.Err
}

// Registrar registers content with several clients. At most one registration
// per content item is in flight at any time.
type Registrar struct {
	clients map[string]Client
	locks   lockermap.Map
	stats   tally.Scope
}

// NewRegistrar creates a new Registrar over the named clients.
func NewRegistrar(clients map[string]Client, stats tally.Scope) *Registrar {
	return &Registrar{clients: clients, stats: stats.SubScope("torrentclient")}
}

// Register registers r with each of the named clients in order. A failing
// client does not stop the others: handles of all successful registrations
// are returned along with the combined errors of the failed ones.
func (r *Registrar) Register(
	ctx context.Context, reg core.Registration, names []string) ([]core.TorrentHandle, error) {

	var handles []core.TorrentHandle
	var errs []error
	r.locks.Do(reg.Content.ID, func() {
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				errs = append(errs, err)
				return
			}
			h, err := r.register(ctx, reg, name)
			if err != nil {
				errs = append(errs, ClientError{name, err})
				continue
			}
			handles = append(handles, h)
		}
	})
	return handles, errutil.Join(errs)
}

func (r *Registrar) register(ctx context.Context, reg core.Registration, name string) (core.TorrentHandle, error) {
	c, ok := r.clients[name]
	if !ok {
		return core.TorrentHandle{}, errors.New("unknown client")
	}
	stats := r.stats.Tagged(map[string]string{
		"client":  name,
		"backend": c.Backend().String(),
	})
	h, err := c.Register(ctx, reg)
	if err != nil {
		stats.Counter("registration_failures").Inc(1)
		log.With("client", name, "content", reg.Content.ID).Errorf("Registration failed: %s", err)
		return core.TorrentHandle{}, err
	}
	stats.Counter("registrations").Inc(1)
	h.Destination = reg.Destination
	return h, nil
}
