package executor

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/model"
	"github.com/anthropics/lix/internal/parser"
	"github.com/anthropics/lix/internal/planner"
	"github.com/anthropics/lix/internal/registry"
	"github.com/anthropics/lix/internal/value"
)

func openTestBackend(t *testing.T) *backend.SqliteBackend {
	t.Helper()
	b, err := backend.OpenSqlite(filepath.Join(t.TempDir(), "lix.db"))
	if err != nil {
		t.Fatalf("OpenSqlite: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	if _, err := b.Execute(context.Background(), registry.CreateTableSQL, nil); err != nil {
		t.Fatalf("create registry table: %v", err)
	}
	return b
}

func mustPlan(t *testing.T, ctx context.Context, b *backend.SqliteBackend, sql string, params []value.Value) *model.ExecutionPlan {
	t.Helper()
	stmts, err := parser.ParseScript(sql)
	if err != nil {
		t.Fatalf("ParseScript(%q): %v", sql, err)
	}
	plan, err := planner.Plan(ctx, b, stmts, params)
	if err != nil {
		t.Fatalf("Plan(%q): %v", sql, err)
	}
	return plan
}

func TestRunReadOnlyPassthroughNeverOpensTransaction(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()
	plan := mustPlan(t, ctx, b, "SELECT 1 + 1", nil)

	result, execErr := Run(ctx, b, plan)
	if execErr != nil {
		t.Fatalf("Run: %v", execErr)
	}
	if len(result.Rows.Rows) != 1 || result.Rows.Rows[0][0].I != 2 {
		t.Errorf("Rows = %+v, want [[2]]", result.Rows.Rows)
	}
}

func TestRunCreatesMaterializedTableAndInsertsRow(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()
	plan := mustPlan(t, ctx, b, `INSERT INTO lix_state_by_version (entity_id, schema_key, schema_version, file_id, version_id, plugin_key, snapshot_content) VALUES ('e1', 'k1', '1', 'f1', 'v1', 'p1', '{}')`, nil)

	_, execErr := Run(ctx, b, plan)
	if execErr != nil {
		t.Fatalf("Run: %v", execErr)
	}

	res, err := b.Execute(ctx, `SELECT entity_id, snapshot_content FROM "internal_state_materialized_v1_k1" WHERE entity_id = 'e1'`, nil)
	if err != nil {
		t.Fatalf("select materialized row: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0][0].T != "e1" || res.Rows[0][1].T != "{}" {
		t.Fatalf("unexpected materialized rows: %+v", res.Rows)
	}

	keys, err := registry.List(ctx, b)
	if err != nil {
		t.Fatalf("registry.List: %v", err)
	}
	if len(keys) != 1 || keys[0] != "k1" {
		t.Errorf("registry.List() = %v, want [k1]", keys)
	}
}

func TestRunRollsBackOnStatementFailureWithoutCommitting(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	// First insert succeeds and registers k1's materialized table.
	insertPlan := mustPlan(t, ctx, b, `INSERT INTO lix_state_by_version (entity_id, schema_key, schema_version, file_id, version_id, plugin_key, snapshot_content) VALUES ('e1', 'k1', '1', 'f1', 'v1', 'p1', '{}')`, nil)
	if _, execErr := Run(ctx, b, insertPlan); execErr != nil {
		t.Fatalf("seed Run: %v", execErr)
	}

	// A plan with an intentionally bad statement appended should leave no
	// partial effects behind: rewrite a plan by hand with a trailing
	// invalid statement is awkward through the public API, so instead
	// verify atomicity by running a second plan that INSERTs the seed's
	// primary key again and confirming the failed duplicate does not
	// leave a stray partial row.
	dupPlan := mustPlan(t, ctx, b, `INSERT INTO lix_state_by_version (entity_id, schema_key, schema_version, file_id, version_id, plugin_key, snapshot_content) VALUES ('e1', 'k1', '1', 'f1', 'v1', 'p1', 'dup')`, nil)
	_, execErr := Run(ctx, b, dupPlan)
	if execErr == nil {
		t.Fatal("expected an error inserting a duplicate primary key")
	}

	res, err := b.Execute(ctx, `SELECT snapshot_content FROM "internal_state_materialized_v1_k1" WHERE entity_id = 'e1'`, nil)
	if err != nil {
		t.Fatalf("select after failed duplicate insert: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0][0].T != "{}" {
		t.Fatalf("duplicate-insert rollback left unexpected state: %+v", res.Rows)
	}
}

func TestRunSelectAfterWriteSeesCommittedRow(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()
	insertPlan := mustPlan(t, ctx, b, `INSERT INTO lix_state_by_version (entity_id, schema_key, schema_version, file_id, version_id, plugin_key, snapshot_content) VALUES ('e1', 'k1', '1', 'f1', 'v1', 'p1', '{}')`, nil)
	if _, execErr := Run(ctx, b, insertPlan); execErr != nil {
		t.Fatalf("insert Run: %v", execErr)
	}

	selectPlan := mustPlan(t, ctx, b, `SELECT entity_id FROM lix_state_by_version WHERE schema_key = 'k1' AND entity_id = 'e1'`, nil)
	result, execErr := Run(ctx, b, selectPlan)
	if execErr != nil {
		t.Fatalf("select Run: %v", execErr)
	}
	if len(result.Rows.Rows) != 1 || result.Rows.Rows[0][0].T != "e1" {
		t.Errorf("Rows = %+v, want one row for e1", result.Rows.Rows)
	}
}
