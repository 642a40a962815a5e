package rewrite

import (
	"context"
	"fmt"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/parser"
	"github.com/anthropics/lix/internal/sqltext"
	"github.com/anthropics/lix/internal/value"
)

// ruleVersion lowers writes against the version surface (lix_version).
// Reads pass straight through unchanged: the surface's physical shape
// already matches what a SELECT expects, nothing to canonicalize.
//
// Critical invariant (spec.md section 4.D): a version write with a
// backend-aware form may need the current active version to compute a
// new VersionSnapshot. Concretely, a new version's parent lineage is
// stamped from the current active version when the caller does not
// supply one explicitly.
func ruleVersion(ctx context.Context, b backend.Backend, stmt *parser.Statement) (Outcome, error) {
	if stmt.Table != "lix_version" {
		return NoMatchOutcome(), nil
	}
	switch stmt.Kind {
	case parser.KindInsert:
		return lowerVersionInsert(ctx, b, stmt)
	case parser.KindUpdate:
		if _, ok := stmt.WhereEquals("version_id"); !ok {
			return Outcome{}, fmt.Errorf("UPDATE lix_version requires a version_id predicate")
		}
		return EmitOutput(&RewriteOutput{Statements: []*parser.Statement{stmt}}), nil
	case parser.KindDelete:
		if _, ok := stmt.WhereEquals("version_id"); !ok {
			return Outcome{}, fmt.Errorf("DELETE FROM lix_version requires a version_id predicate")
		}
		return EmitOutput(&RewriteOutput{Statements: []*parser.Statement{stmt}}), nil
	default:
		return NoMatchOutcome(), nil
	}
}

// lowerVersionInsert resolves and stamps a parent_version_id (from the
// current active version) and a created_at timestamp onto a new
// version row, whenever the caller's INSERT does not supply its own.
func lowerVersionInsert(ctx context.Context, b backend.Backend, stmt *parser.Statement) (Outcome, error) {
	columns := append([]string(nil), stmt.InsertColumns...)
	values := append([]*parser.Expr(nil), stmt.InsertValues...)

	if !hasInsertColumn(columns, "parent_version_id") {
		parentID, err := resolveActiveVersionID(ctx, b)
		if err != nil {
			return Outcome{}, fmt.Errorf("INSERT INTO lix_version: resolve active version for parent lineage: %w", err)
		}
		columns = append(columns, "parent_version_id")
		values = append(values, parser.Literal(value.Text(parentID)))
	}
	if !hasInsertColumn(columns, "created_at") {
		columns = append(columns, "created_at")
		values = append(values, parser.Literal(value.Text(sqltext.Timestamp())))
	}

	newStmt := &parser.Statement{
		Kind:          parser.KindInsert,
		Table:         "lix_version",
		InsertColumns: columns,
		InsertValues:  values,
	}
	return EmitOutput(&RewriteOutput{Statements: []*parser.Statement{newStmt}}), nil
}

func hasInsertColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}
