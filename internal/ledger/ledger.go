// Copyright 2025 Osprey DCS Contributors. All Rights Reserved.
//
// Created: October 2025
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

// Package ledger mirrors committed ingestion request IDs to Postgres
// so an operator can audit or replay a session after the fact. A
// commit is recorded once the facade has an Ack in hand; the ledger
// itself never influences whether a request succeeds.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/osprey-dcs/dp-jal-sub012/pkg/dprequest"
)

// Schema (reference):
//
// CREATE TABLE IF NOT EXISTS committed_requests (
//   request_id    TEXT PRIMARY KEY,
//   provider_uid  TEXT NOT NULL,
//   committed_at  TIMESTAMPTZ NOT NULL
// );
// CREATE INDEX IF NOT EXISTS idx_committed_requests_provider
//   ON committed_requests(provider_uid);

// Entry is one committed request awaiting a ledger row.
type Entry struct {
	RequestID   dprequest.ClientRequestId
	ProviderUID string
	CommittedAt time.Time
}

// Ledger appends committed request IDs to a Postgres table. Writes
// are idempotent: recording the same RequestID twice is a no-op.
type Ledger struct {
	db             *sql.DB
	defaultTimeout time.Duration
}

// Open dials Postgres via database/sql using the lib/pq driver
// registered by this package's import.
func Open(dsn string) (*Ledger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres ledger: %w", err)
	}
	return New(db), nil
}

// New wraps an already-open *sql.DB. Tests use this to substitute a
// fake driver.
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db, defaultTimeout: 10 * time.Second}
}

// Close releases the underlying connection pool.
func (l *Ledger) Close() error { return l.db.Close() }

// Record appends entries within a single transaction. Each insert is
// idempotent via ON CONFLICT DO NOTHING, so replaying the same batch
// after a partial failure is safe.
func (l *Ledger) Record(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && l.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.defaultTimeout)
		defer cancel()
	}

	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, e := range entries {
		if e.RequestID == "" {
			return fmt.Errorf("ledger entry: RequestID must be set")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO committed_requests(request_id, provider_uid, committed_at)
			   VALUES ($1, $2, $3) ON CONFLICT (request_id) DO NOTHING`,
			string(e.RequestID), e.ProviderUID, e.CommittedAt); err != nil {
			return fmt.Errorf("insert committed_requests(%s): %w", e.RequestID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}
