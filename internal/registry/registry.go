// Package registry backs the stored_schema surface named in spec.md
// section 4.C: it tracks which schema_keys have been registered and
// their current schema_version. original_source's schema_registry.rs
// names the concept; spec.md does not spell out its storage, so this
// repository backs it with a small lix_stored_schema table.
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/model"
	"github.com/anthropics/lix/internal/sqltext"
	"github.com/anthropics/lix/internal/value"
)

const TableName = "lix_stored_schema"

// CreateTableSQL creates the registry table if it does not already
// exist; safe to call repeatedly (idempotent), matching the materialized
// table creation discipline in spec.md section 4.G.
const CreateTableSQL = `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
	schema_key TEXT PRIMARY KEY,
	schema_version TEXT NOT NULL
)`

// Register upserts a SchemaRegistration, called by the executor once per
// registration collected during rewrite.
func Register(ctx context.Context, tx backend.Transaction, reg model.SchemaRegistration) error {
	_, err := tx.Execute(ctx, fmt.Sprintf(
		`INSERT INTO %s (schema_key, schema_version) VALUES (?, ?) ON CONFLICT(schema_key) DO UPDATE SET schema_version = excluded.schema_version`,
		sqltext.QuoteIdent(TableName),
	), []value.Value{value.Text(reg.SchemaKey), value.Text(reg.SchemaVersion)})
	return err
}

// List returns every registered schema_key, sorted for determinism.
func List(ctx context.Context, b backend.Backend) ([]string, error) {
	res, err := b.Execute(ctx, fmt.Sprintf("SELECT schema_key FROM %s", sqltext.QuoteIdent(TableName)), nil)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) > 0 {
			keys = append(keys, row[0].T)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// ResolveSingle returns the sole registered schema_key, used when a
// read against a schema-partitioned surface carries no explicit
// schema_key predicate. With zero or multiple registrations it returns
// an error: this implementation requires exactly one registered schema
// rather than fanning reads out across every registered schema table.
func ResolveSingle(ctx context.Context, b backend.Backend) (string, error) {
	keys, err := List(ctx, b)
	if err != nil {
		return "", err
	}
	if len(keys) != 1 {
		return "", fmt.Errorf("cannot resolve schema_key: %d schemas registered, expected exactly 1 when no schema_key predicate is given", len(keys))
	}
	return keys[0], nil
}
