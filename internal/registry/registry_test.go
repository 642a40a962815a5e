package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/model"
)

func openTestBackend(t *testing.T) *backend.SqliteBackend {
	t.Helper()
	b, err := backend.OpenSqlite(filepath.Join(t.TempDir(), "lix.db"))
	if err != nil {
		t.Fatalf("OpenSqlite: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	ctx := context.Background()
	if _, err := b.Execute(ctx, CreateTableSQL, nil); err != nil {
		t.Fatalf("create registry table: %v", err)
	}
	return b
}

func TestRegisterThenList(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	tx, err := b.BeginTransaction(ctx)
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if err := Register(ctx, tx, model.SchemaRegistration{SchemaKey: "b_schema", SchemaVersion: "1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := Register(ctx, tx, model.SchemaRegistration{SchemaKey: "a_schema", SchemaVersion: "1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	keys, err := List(ctx, b)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a_schema" || keys[1] != "b_schema" {
		t.Errorf("List() = %v, want sorted [a_schema b_schema]", keys)
	}
}

func TestRegisterIsUpsert(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	tx, err := b.BeginTransaction(ctx)
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if err := Register(ctx, tx, model.SchemaRegistration{SchemaKey: "s1", SchemaVersion: "1"}); err != nil {
		t.Fatalf("Register v1: %v", err)
	}
	if err := Register(ctx, tx, model.SchemaRegistration{SchemaKey: "s1", SchemaVersion: "2"}); err != nil {
		t.Fatalf("Register v2: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	keys, err := List(ctx, b)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("got %d distinct schema_keys after re-registering, want 1", len(keys))
	}

	resolved, err := ResolveSingle(ctx, b)
	if err != nil {
		t.Fatalf("ResolveSingle: %v", err)
	}
	if resolved != "s1" {
		t.Errorf("ResolveSingle() = %q, want s1", resolved)
	}
}

func TestResolveSingleErrorsWhenAmbiguous(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	if _, err := ResolveSingle(ctx, b); err == nil {
		t.Error("ResolveSingle() with zero registrations: expected error, got nil")
	}

	tx, err := b.BeginTransaction(ctx)
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	Register(ctx, tx, model.SchemaRegistration{SchemaKey: "s1", SchemaVersion: "1"})
	Register(ctx, tx, model.SchemaRegistration{SchemaKey: "s2", SchemaVersion: "1"})
	tx.Commit(ctx)

	if _, err := ResolveSingle(ctx, b); err == nil {
		t.Error("ResolveSingle() with two registrations: expected error, got nil")
	}
}
