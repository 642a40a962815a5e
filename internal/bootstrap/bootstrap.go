// Package bootstrap runs the first-open seed sequence named in spec.md
// section 5: create lix_version, lix_active_version, lix_active_account,
// and the stored-schema registry table if they are missing, and seed an
// initial version/account/active pointers exactly once.
//
// Adapted from the teacher's Engine.initSchema (internal/core/db.go in
// the teacher repository), which ran a single idempotent CREATE-TABLE
// batch against the embedded database on first open; here the same
// shape latches a boot flag for the duration of the sequence so a
// concurrent caller cannot observe a half-seeded database.
package bootstrap

import (
	"context"
	"fmt"
	"sync"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/registry"
	"github.com/anthropics/lix/internal/sqltext"
	"github.com/anthropics/lix/internal/value"
	"github.com/google/uuid"
)

const (
	VersionTable        = "lix_version"
	ActiveVersionTable   = "lix_active_version"
	ActiveAccountTable   = "lix_active_account"
)

const schema = `
CREATE TABLE IF NOT EXISTS ` + VersionTable + ` (
	version_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TEXT NOT NULL,
	parent_version_id TEXT
);

CREATE TABLE IF NOT EXISTS ` + ActiveVersionTable + ` (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	version_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ` + ActiveAccountTable + ` (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	account_id TEXT NOT NULL
);
`

// Sequencer latches a boot flag for the duration of Run, per engine
// instance. While latched, non-bootstrap writes must be rejected by the
// caller (the lix.Engine checks IsLatched before admitting any execute
// call); the flag clears only once every step below has succeeded.
type Sequencer struct {
	mu      sync.Mutex
	latched bool
}

// IsLatched reports whether a bootstrap sequence is currently in flight.
func (s *Sequencer) IsLatched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latched
}

// Run executes the seed sequence against b, idempotently. It is safe to
// call on every engine open: table creation is CREATE TABLE IF NOT
// EXISTS, and seeding only inserts the initial version/account rows if
// lix_active_version/lix_active_account are empty.
func (s *Sequencer) Run(ctx context.Context) (retErr error) {
	return s.RunAgainst(ctx, nil)
}

// RunAgainst is Run against an explicit backend; Run is a thin
// convenience wrapper retained for interface symmetry with the engine's
// own backend field (lix.Engine always calls RunAgainst).
func (s *Sequencer) RunAgainst(ctx context.Context, b backend.Backend) (retErr error) {
	if b == nil {
		return fmt.Errorf("bootstrap: nil backend")
	}

	s.mu.Lock()
	s.latched = true
	s.mu.Unlock()
	defer func() {
		if retErr == nil {
			s.mu.Lock()
			s.latched = false
			s.mu.Unlock()
		}
	}()

	for _, stmt := range splitBatch(schema) {
		if _, err := b.Execute(ctx, stmt, nil); err != nil {
			return fmt.Errorf("bootstrap: create table: %w", err)
		}
	}
	if _, err := b.Execute(ctx, registry.CreateTableSQL, nil); err != nil {
		return fmt.Errorf("bootstrap: create stored-schema registry: %w", err)
	}

	res, err := b.Execute(ctx, fmt.Sprintf("SELECT version_id FROM %s", sqltext.QuoteIdent(ActiveVersionTable)), nil)
	if err != nil {
		return fmt.Errorf("bootstrap: check active version: %w", err)
	}
	if len(res.Rows) == 0 {
		if err := seedInitialVersion(ctx, b); err != nil {
			return err
		}
	}

	res, err = b.Execute(ctx, fmt.Sprintf("SELECT account_id FROM %s", sqltext.QuoteIdent(ActiveAccountTable)), nil)
	if err != nil {
		return fmt.Errorf("bootstrap: check active account: %w", err)
	}
	if len(res.Rows) == 0 {
		if err := seedInitialAccount(ctx, b); err != nil {
			return err
		}
	}

	return nil
}

func seedInitialVersion(ctx context.Context, b backend.Backend) error {
	versionID := uuid.NewString()
	if _, err := b.Execute(ctx,
		fmt.Sprintf("INSERT INTO %s (version_id, name, created_at) VALUES (?, ?, ?)", sqltext.QuoteIdent(VersionTable)),
		[]value.Value{value.Text(versionID), value.Text("main"), value.Text(sqltext.Timestamp())},
	); err != nil {
		return fmt.Errorf("bootstrap: seed version: %w", err)
	}
	if _, err := b.Execute(ctx,
		fmt.Sprintf("INSERT INTO %s (id, version_id) VALUES (1, ?)", sqltext.QuoteIdent(ActiveVersionTable)),
		[]value.Value{value.Text(versionID)},
	); err != nil {
		return fmt.Errorf("bootstrap: seed active version: %w", err)
	}
	return nil
}

func seedInitialAccount(ctx context.Context, b backend.Backend) error {
	accountID := uuid.NewString()
	if _, err := b.Execute(ctx,
		fmt.Sprintf("INSERT INTO %s (id, account_id) VALUES (1, ?)", sqltext.QuoteIdent(ActiveAccountTable)),
		[]value.Value{value.Text(accountID)},
	); err != nil {
		return fmt.Errorf("bootstrap: seed active account: %w", err)
	}
	return nil
}

// splitBatch splits a semicolon-separated DDL batch into individual
// statements, skipping blank fragments. Bootstrap DDL never contains a
// semicolon inside a string literal, so a naive split is sufficient.
func splitBatch(batch string) []string {
	var out []string
	start := 0
	for i := 0; i < len(batch); i++ {
		if batch[i] == ';' {
			if s := trimSpace(batch[start:i]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := trimSpace(batch[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
