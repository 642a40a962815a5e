// Package executor drives an ExecutionPlan through a backend
// transaction, per spec.md section 4.G: create missing per-schema
// materialized tables idempotently, execute prepared statements in
// order, run the single postprocess followup if present, run update
// validations (rollback on violation), commit, and capture the
// QueryResult of the last row-producing statement. The transaction is
// released on every path -- success, error, or cancellation.
package executor

import (
	"context"
	"fmt"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/errs"
	"github.com/anthropics/lix/internal/model"
	"github.com/anthropics/lix/internal/registry"
	"github.com/anthropics/lix/internal/rewrite"
	"github.com/anthropics/lix/internal/sqltext"
	"github.com/anthropics/lix/internal/value"
)

// Result is the outcome of driving one ExecutionPlan: the rows the plan
// contract says should be returned, plus the effects to hand to the
// post-commit dispatcher.
type Result struct {
	Rows    value.QueryResult
	Effects model.PlanEffects
}

// Run executes plan against b. If the plan is read-only with no write
// effects it runs sequentially with no transaction; otherwise it begins
// one, creates missing materialized tables, runs the statements, the
// postprocess followup, and the update validations, then commits.
func Run(ctx context.Context, b backend.Backend, plan *model.ExecutionPlan) (*Result, *errs.ExecutorError) {
	if plan.Requirements.ReadOnlyQuery && !hasWriteEffects(plan) {
		rows, err := runSequential(ctx, b, plan)
		if err != nil {
			return nil, errs.NewExecuteError(errs.Wrap("execute", err))
		}
		return &Result{Rows: rows, Effects: plan.Effects}, nil
	}
	return runTransactional(ctx, b, plan)
}

func hasWriteEffects(plan *model.ExecutionPlan) bool {
	return len(plan.Registrations) > 0 || len(plan.Mutations) > 0 || plan.Postprocess != nil ||
		plan.Requirements.ShouldRefreshFileCache || plan.Requirements.ShouldInvalidateInstalledPluginsCache
}

func runSequential(ctx context.Context, b backend.Backend, plan *model.ExecutionPlan) (value.QueryResult, error) {
	var last value.QueryResult
	for _, stmt := range plan.Preprocess.Statements {
		res, err := b.Execute(ctx, stmt.SQL, stmt.Params)
		if err != nil {
			return value.QueryResult{}, err
		}
		if len(res.Rows) > 0 {
			last = res
		}
	}
	return last, nil
}

func runTransactional(ctx context.Context, b backend.Backend, plan *model.ExecutionPlan) (*Result, *errs.ExecutorError) {
	tx, err := b.BeginTransaction(ctx)
	if err != nil {
		return nil, errs.NewExecuteError(errs.Wrap("begin transaction", err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err := tx.Execute(ctx, registry.CreateTableSQL, nil); err != nil {
		return nil, errs.NewExecuteError(errs.Wrap("ensure stored-schema registry table", err))
	}
	for _, reg := range plan.Registrations {
		if err := createMaterializedTable(ctx, tx, reg.SchemaKey); err != nil {
			return nil, errs.NewExecuteError(errs.Wrap("create materialized table", err))
		}
		if err := registry.Register(ctx, tx, reg); err != nil {
			return nil, errs.NewExecuteError(errs.Wrap("register schema", err))
		}
	}

	var last value.QueryResult
	for _, stmt := range plan.Preprocess.Statements {
		res, execErr := tx.Execute(ctx, stmt.SQL, stmt.Params)
		if execErr != nil {
			if errs.IsMissingRelationError(execErr) {
				// one-shot retry after lazy table creation, for
				// internal_state_materialized_* relations only
				// (spec.md section 7).
				if retryErr := retryAfterLazyCreate(ctx, tx, plan, stmt.SQL); retryErr == nil {
					res, execErr = tx.Execute(ctx, stmt.SQL, stmt.Params)
				}
			}
			if execErr != nil {
				return nil, errs.NewExecuteError(errs.Wrap("execute statement", execErr))
			}
		}
		if len(res.Rows) > 0 {
			last = res
		}
	}

	if plan.Postprocess != nil {
		followupSQL, followupParams := postprocessFollowup(plan.Postprocess)
		if _, err := tx.Execute(ctx, followupSQL, followupParams); err != nil {
			return nil, errs.NewExecuteError(errs.Wrap("postprocess followup", err))
		}
	}

	for _, uv := range plan.UpdateValidations {
		if uv.Check == nil {
			continue
		}
		reason, err := uv.Check()
		if err != nil {
			return nil, errs.NewExecuteError(errs.Wrap("update validation", err))
		}
		if reason != "" {
			return nil, errs.NewExecuteError(errs.NewLixError("INVARIANT", "update validation failed", reason))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errs.NewExecuteError(errs.Wrap("commit", err))
	}
	committed = true

	return &Result{Rows: last, Effects: plan.Effects}, nil
}

func createMaterializedTable(ctx context.Context, tx backend.Transaction, schemaKey string) error {
	sql := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		entity_id TEXT NOT NULL,
		schema_key TEXT NOT NULL,
		schema_version TEXT NOT NULL,
		file_id TEXT NOT NULL,
		version_id TEXT NOT NULL,
		plugin_key TEXT NOT NULL,
		snapshot_content TEXT,
		change_id TEXT NOT NULL,
		is_tombstone INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (entity_id, file_id, version_id)
	)`, sqltext.QuoteIdent(rewrite.MaterializedTableName(schemaKey)))
	_, err := tx.Execute(ctx, sql, nil)
	return err
}

// retryAfterLazyCreate lazily creates the materialized table a failed
// statement referenced, inferring the schema_key from the plan's own
// registrations (the statement that failed necessarily targets one of
// them, since internal_state_materialized_* tables are only ever
// referenced through registrations collected in the same plan).
func retryAfterLazyCreate(ctx context.Context, tx backend.Transaction, plan *model.ExecutionPlan, failedSQL string) error {
	for _, reg := range plan.Registrations {
		table := rewrite.MaterializedTableName(reg.SchemaKey)
		if containsIdent(failedSQL, table) {
			return createMaterializedTable(ctx, tx, reg.SchemaKey)
		}
	}
	return fmt.Errorf("missing relation not recoverable: no matching registration for %q", failedSQL)
}

func containsIdent(sql, table string) bool {
	quoted := sqltext.QuoteIdent(table)
	return indexOf(sql, quoted) >= 0 || indexOf(sql, table) >= 0
}

func indexOf(s, sub string) int {
	n, m := len(s), len(sub)
	if m == 0 || m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}

// postprocessFollowup builds the single followup statement run after the
// primary vtable write, per spec.md section 4.D/4.F. It is a diagnostic
// existence check over the schema's materialized table; it does not feed
// back into the plan's precomputed effects.
func postprocessFollowup(p *model.PostprocessPlan) (string, []value.Value) {
	table := sqltext.QuoteIdent(rewrite.MaterializedTableName(p.SchemaKey))
	switch p.Kind {
	case model.PostprocessVtableUpdate:
		return fmt.Sprintf("SELECT change_id FROM %s WHERE schema_key = ?", table), []value.Value{value.Text(p.SchemaKey)}
	case model.PostprocessVtableDelete:
		return fmt.Sprintf("SELECT change_id FROM %s WHERE schema_key = ? AND is_tombstone = 1", table), []value.Value{value.Text(p.SchemaKey)}
	default:
		return "SELECT 1", nil
	}
}
