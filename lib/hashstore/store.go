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

// Package hashstore remembers the infohashes built or reused for each content
// item and the clients they were registered with, so later runs can offer
// them to the matcher as reuse candidates.
package hashstore

import (
	"fmt"
	"time"

	"github.com/upload-assistant/torrentprep/core"

	"github.com/jmoiron/sqlx"
)

// Source describes how a hash became known.
type Source string

// Hash sources.
const (
	Built    Source = "built"
	Reused   Source = "reused"
	External Source = "external"
)

type knownHash struct {
	ContentID string    `db:"content_id"`
	InfoHash  string    `db:"infohash"`
	Source    Source    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
}

type registration struct {
	ContentID    string    `db:"content_id"`
	Client       string    `db:"client"`
	Destination  string    `db:"destination"`
	Backend      string    `db:"backend"`
	InfoHash     string    `db:"infohash"`
	StoragePath  string    `db:"storage_path"`
	RegisteredAt time.Time `db:"registered_at"`
}

// Store stores known hashes and registrations.
type Store struct {
	db *sqlx.DB
}

// New creates a new Store.
func New(db *sqlx.DB) *Store {
	return &Store{db}
}

// AddHash records h for contentID. Recording a known hash again keeps its
// original source and position.
func (s *Store) AddHash(contentID string, h core.InfoHash, source Source) error {
	_, err := s.db.NamedExec(`
		INSERT OR IGNORE INTO known_hash (
			content_id,
			infohash,
			source
		) VALUES (
			:content_id,
			:infohash,
			:source
		)
	`, &knownHash{
		ContentID: contentID,
		InfoHash:  h.Hex(),
		Source:    source,
	})
	return err
}

// Hashes returns the hashes known for contentID, most recently recorded first.
func (s *Store) Hashes(contentID string) ([]core.InfoHash, error) {
	var rows []string
	err := s.db.Select(&rows, `
		SELECT infohash
		FROM known_hash
		WHERE content_id=?
		ORDER BY rowid DESC
	`, contentID)
	if err != nil {
		return nil, err
	}
	var hashes []core.InfoHash
	for _, r := range rows {
		h, err := core.NewInfoHashFromHex(r)
		if err != nil {
			return nil, fmt.Errorf("corrupt hash %q: %s", r, err)
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}

// AddRegistration records that h was registered for contentID, replacing any
// previous registration of contentID with the same client and destination.
func (s *Store) AddRegistration(contentID string, h core.TorrentHandle) error {
	_, err := s.db.NamedExec(`
		INSERT OR REPLACE INTO registration (
			content_id,
			client,
			destination,
			backend,
			infohash,
			storage_path,
			registered_at
		) VALUES (
			:content_id,
			:client,
			:destination,
			:backend,
			:infohash,
			:storage_path,
			CURRENT_TIMESTAMP
		)
	`, &registration{
		ContentID:   contentID,
		Client:      h.Client,
		Destination: h.Destination,
		Backend:     h.Backend.String(),
		InfoHash:    h.InfoHash.Hex(),
		StoragePath: h.StoragePath,
	})
	return err
}

// Registrations returns the handles registered for contentID, ordered by
// client name and destination.
func (s *Store) Registrations(contentID string) ([]core.TorrentHandle, error) {
	var rows []registration
	err := s.db.Select(&rows, `
		SELECT content_id, client, destination, backend, infohash, storage_path, registered_at
		FROM registration
		WHERE content_id=?
		ORDER BY client, destination
	`, contentID)
	if err != nil {
		return nil, err
	}
	var handles []core.TorrentHandle
	for _, r := range rows {
		h, err := core.NewInfoHashFromHex(r.InfoHash)
		if err != nil {
			return nil, fmt.Errorf("corrupt hash %q: %s", r.InfoHash, err)
		}
		b, err := core.ParseBackend(r.Backend)
		if err != nil {
			return nil, fmt.Errorf("corrupt backend: %s", err)
		}
		handles = append(handles, core.TorrentHandle{
			InfoHash:    h,
			Client:      r.Client,
			Backend:     b,
			StoragePath: r.StoragePath,
			Destination: r.Destination,
		})
	}
	return handles, nil
}
