package rewrite

import (
	"context"
	"fmt"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/model"
	"github.com/anthropics/lix/internal/parser"
	"github.com/anthropics/lix/internal/registry"
	"github.com/anthropics/lix/internal/value"
)

// ruleStoredSchema lowers writes against the stored_schema surface
// (lix_stored_schema) to a SchemaRegistration, the same mechanism a
// state_by_version write's own INSERT collects (spec.md section 4.C
// names stored_schema in the fixed write dispatch order,
// internal/surface/surface.go's WriteOrder). Registering is an upsert
// (registry.Register, ON CONFLICT(schema_key) DO UPDATE): both INSERT
// and UPDATE against this surface collapse to the same Registration,
// so the executor applies it before any prepared statement runs
// (internal/executor/executor.go's registrations loop).
//
// A plan must carry at least one prepared statement (planner.validate),
// so the emitted plan also carries a confirming SELECT over the
// registry row -- the registration itself has already been applied by
// the time this statement executes.
//
// stored_schema DELETE has no counterpart in internal/registry (no
// Unregister, and no spec text describing schema deregistration); it is
// intentionally left unhandled here; see DESIGN.md.
func ruleStoredSchema(ctx context.Context, b backend.Backend, stmt *parser.Statement) (Outcome, error) {
	_ = ctx
	_ = b
	if stmt.Table != "lix_stored_schema" {
		return NoMatchOutcome(), nil
	}
	switch stmt.Kind {
	case parser.KindInsert:
		schemaKey, schemaVersion, err := storedSchemaInsertValues(stmt)
		if err != nil {
			return Outcome{}, fmt.Errorf("INSERT INTO lix_stored_schema: %w", err)
		}
		return EmitOutput(storedSchemaRegistrationOutput(schemaKey, schemaVersion)), nil
	case parser.KindUpdate:
		schemaKey, ok := findLiteralEquals(stmt.Where, "schema_key")
		if !ok {
			return Outcome{}, fmt.Errorf("UPDATE lix_stored_schema requires a schema_key predicate")
		}
		schemaVersion, ok := assignmentLiteral(stmt, "schema_version")
		if !ok {
			return Outcome{}, fmt.Errorf("UPDATE lix_stored_schema requires a literal schema_version assignment")
		}
		return EmitOutput(storedSchemaRegistrationOutput(schemaKey, schemaVersion)), nil
	default:
		return NoMatchOutcome(), nil
	}
}

func storedSchemaInsertValues(stmt *parser.Statement) (schemaKey, schemaVersion string, err error) {
	keyExpr, ok := insertColumnValue(stmt, "schema_key")
	if !ok || keyExpr.Op != "literal" {
		return "", "", fmt.Errorf("requires a literal schema_key column")
	}
	versionExpr, ok := insertColumnValue(stmt, "schema_version")
	if !ok || versionExpr.Op != "literal" {
		return "", "", fmt.Errorf("requires a literal schema_version column")
	}
	return keyExpr.Literal.T, versionExpr.Literal.T, nil
}

func assignmentLiteral(stmt *parser.Statement, column string) (string, bool) {
	for _, a := range stmt.Assignments {
		if a.Column == column && a.Value != nil && a.Value.Op == "literal" {
			return a.Value.Literal.T, true
		}
	}
	return "", false
}

// storedSchemaConfirmSelect is the plan's sole prepared statement for a
// stored_schema write: by the time it runs, the executor's
// registrations loop has already upserted the row, so this is a
// diagnostic confirmation, not the write itself.
func storedSchemaConfirmSelect(schemaKey string) *parser.Statement {
	return &parser.Statement{
		Kind:       parser.KindSelect,
		Table:      registry.TableName,
		SelectList: []string{"schema_key"},
		Where:      parser.BinOp("=", parser.Column("schema_key"), parser.Literal(value.Text(schemaKey))),
	}
}

func storedSchemaRegistrationOutput(schemaKey, schemaVersion string) *RewriteOutput {
	return &RewriteOutput{
		Statements:    []*parser.Statement{storedSchemaConfirmSelect(schemaKey)},
		Registrations: []model.SchemaRegistration{{SchemaKey: schemaKey, SchemaVersion: schemaVersion}},
	}
}
