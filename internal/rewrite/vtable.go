package rewrite

import (
	"context"
	"fmt"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/model"
	"github.com/anthropics/lix/internal/parser"
)

// ruleInternalStateVtable lowers direct writes against the low-level
// internal_state_vtable surface. Unlike lix_state_by_version (where the
// higher-level column shape lets the rewrite engine compute the
// MutationRow directly), a direct vtable write does not carry enough
// shape to know the mutation up front: its actual effect is determined
// by the primary statement's execution, so the plan instead carries a
// PostprocessPlan and a single followup statement runs after it
// (spec.md section 4.D/4.F: "if postprocess present, exactly one
// prepared statement and no MutationRows").
//
// Critical invariant: a write requires a schema_key predicate for
// UPDATE/DELETE but not for INSERT (spec.md section 4.D).
func ruleInternalStateVtable(ctx context.Context, b backend.Backend, stmt *parser.Statement) (Outcome, error) {
	if stmt.Table != "internal_state_vtable" {
		return NoMatchOutcome(), nil
	}
	_ = ctx
	_ = b

	switch stmt.Kind {
	case parser.KindInsert:
		return NoMatchOutcome(), nil // no schema_key predicate required; passthrough executes it directly
	case parser.KindUpdate:
		schemaKey, ok := findLiteralEquals(stmt.Where, "schema_key")
		if !ok {
			return Outcome{}, fmt.Errorf("internal_state_vtable UPDATE requires a schema_key predicate")
		}
		writerKeyExpr, hasWriterKey := stmt.WhereEquals("writer_key")
		plan := &model.PostprocessPlan{
			Kind:                       model.PostprocessVtableUpdate,
			SchemaKey:                  schemaKey,
			WriterKeyAssignmentPresent: hasWriterKey,
		}
		if hasWriterKey && writerKeyExpr != nil && writerKeyExpr.Op == "literal" {
			plan.ExplicitWriterKey = writerKeyExpr.Literal.T
		}
		return EmitOutput(&RewriteOutput{
			Statements:  []*parser.Statement{stmt},
			Postprocess: plan,
		}), nil
	case parser.KindDelete:
		schemaKey, ok := findLiteralEquals(stmt.Where, "schema_key")
		if !ok {
			return Outcome{}, fmt.Errorf("internal_state_vtable DELETE requires a schema_key predicate")
		}
		plan := &model.PostprocessPlan{
			Kind:                   model.PostprocessVtableDelete,
			SchemaKey:              schemaKey,
			EffectiveScopeFallback: "version_id",
		}
		return EmitOutput(&RewriteOutput{
			Statements:  []*parser.Statement{stmt},
			Postprocess: plan,
		}), nil
	default:
		return NoMatchOutcome(), nil
	}
}

func findLiteralEquals(where *parser.Expr, column string) (string, bool) {
	e, ok := findEqualsExpr(where, column)
	if !ok || e.Op != "literal" {
		return "", false
	}
	return e.Literal.T, true
}
