package rewrite

import (
	"context"
	"fmt"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/bootstrap"
	"github.com/anthropics/lix/internal/parser"
	"github.com/anthropics/lix/internal/sqltext"
	"github.com/anthropics/lix/internal/value"
)

// resolveActiveVersionID reads the current active version_id, the
// backend round trip a lix_version INSERT needs to compute its new
// VersionSnapshot's parent lineage (spec.md section 4.D).
func resolveActiveVersionID(ctx context.Context, b backend.Backend) (string, error) {
	res, err := b.Execute(ctx, fmt.Sprintf("SELECT version_id FROM %s", sqltext.QuoteIdent(bootstrap.ActiveVersionTable)), nil)
	if err != nil {
		return "", fmt.Errorf("resolve active version: %w", err)
	}
	if len(res.Rows) != 1 {
		return "", fmt.Errorf("resolve active version: expected exactly 1 row in %s, got %d", bootstrap.ActiveVersionTable, len(res.Rows))
	}
	return res.Rows[0][0].T, nil
}

// ruleActiveVersion canonicalizes writes against the active_version
// surface (lix_active_version), a CHECK(id = 1) singleton seeded once by
// bootstrap. An INSERT is rewritten into the UPDATE that repoints the
// existing row -- the statement model has no ON CONFLICT syntax to
// express an upsert directly -- and an UPDATE's predicate is forced to
// the singleton identity regardless of what the caller supplied.
func ruleActiveVersion(ctx context.Context, b backend.Backend, stmt *parser.Statement) (Outcome, error) {
	if stmt.Table != "lix_active_version" {
		return NoMatchOutcome(), nil
	}
	switch stmt.Kind {
	case parser.KindInsert:
		versionID, err := singletonInsertValue(stmt, "version_id")
		if err != nil {
			return Outcome{}, fmt.Errorf("INSERT INTO lix_active_version: %w", err)
		}
		return EmitOutput(&RewriteOutput{
			Statements: []*parser.Statement{singletonUpdateStatement("lix_active_version", "version_id", versionID)},
		}), nil
	case parser.KindUpdate:
		return EmitOutput(&RewriteOutput{Statements: []*parser.Statement{forceSingletonWhere(stmt)}}), nil
	case parser.KindDelete:
		return Outcome{}, fmt.Errorf("DELETE FROM lix_active_version is not supported: the active version pointer cannot be removed, only repointed via UPDATE")
	default:
		return NoMatchOutcome(), nil
	}
}

// ruleActiveAccount mirrors ruleActiveVersion for the active_account
// surface (lix_active_account), with one addition: the critical
// lowering invariant for this surface is that a DELETE expands to a
// backend-resolved single row deletion keyed by identity (spec.md
// section 4.D), rather than trusting whatever predicate the caller
// supplied.
func ruleActiveAccount(ctx context.Context, b backend.Backend, stmt *parser.Statement) (Outcome, error) {
	if stmt.Table != "lix_active_account" {
		return NoMatchOutcome(), nil
	}
	switch stmt.Kind {
	case parser.KindInsert:
		accountID, err := singletonInsertValue(stmt, "account_id")
		if err != nil {
			return Outcome{}, fmt.Errorf("INSERT INTO lix_active_account: %w", err)
		}
		return EmitOutput(&RewriteOutput{
			Statements: []*parser.Statement{singletonUpdateStatement("lix_active_account", "account_id", accountID)},
		}), nil
	case parser.KindUpdate:
		return EmitOutput(&RewriteOutput{Statements: []*parser.Statement{forceSingletonWhere(stmt)}}), nil
	case parser.KindDelete:
		id, err := resolveSingletonID(ctx, b, "lix_active_account")
		if err != nil {
			return Outcome{}, fmt.Errorf("DELETE FROM lix_active_account: %w", err)
		}
		newStmt := &parser.Statement{
			Kind:  parser.KindDelete,
			Table: "lix_active_account",
			Where: parser.BinOp("=", parser.Column("id"), parser.Literal(value.Integer(id))),
		}
		return EmitOutput(&RewriteOutput{Statements: []*parser.Statement{newStmt}}), nil
	default:
		return NoMatchOutcome(), nil
	}
}

func singletonInsertValue(stmt *parser.Statement, column string) (*parser.Expr, error) {
	for i, c := range stmt.InsertColumns {
		if c == column {
			return stmt.InsertValues[i], nil
		}
	}
	return nil, fmt.Errorf("requires column %q", column)
}

// singletonUpdateStatement builds the UPDATE that repoints a singleton
// pointer table's one value column, forcing the identity predicate to
// id = 1 rather than relying on an upsert the statement model cannot
// express.
func singletonUpdateStatement(table, column string, val *parser.Expr) *parser.Statement {
	return &parser.Statement{
		Kind:        parser.KindUpdate,
		Table:       table,
		Assignments: []parser.Assignment{{Column: column, Value: val.Clone()}},
		Where:       parser.BinOp("=", parser.Column("id"), parser.Literal(value.Integer(1))),
	}
}

// forceSingletonWhere replaces an UPDATE's WHERE clause with the fixed
// identity predicate, ignoring whatever predicate the caller supplied:
// CHECK(id = 1) means there is exactly one legal row to ever target.
func forceSingletonWhere(stmt *parser.Statement) *parser.Statement {
	clone := stmt.Clone()
	clone.Where = parser.BinOp("=", parser.Column("id"), parser.Literal(value.Integer(1)))
	return clone
}

// resolveSingletonID reads the id of table's single row via the
// backend, the "backend-resolved" step spec.md section 4.D names for
// active_account's DELETE lowering; it is always 1 by construction
// (CHECK(id = 1)). When the table has no row it also returns 1 without
// an error, so the lowered DELETE then matches nothing.
func resolveSingletonID(ctx context.Context, b backend.Backend, table string) (int64, error) {
	res, err := b.Execute(ctx, fmt.Sprintf("SELECT id FROM %s", sqltext.QuoteIdent(table)), nil)
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 {
		return 1, nil
	}
	return res.Rows[0][0].I, nil
}
