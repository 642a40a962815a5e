package rewrite

import (
	"context"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/parser"
	"github.com/anthropics/lix/internal/value"
)

// ruleFilesystem renames the filesystem surface (files and directories,
// and their by_version/history variants) onto the corresponding state
// surface, the same collapse ruleEntity performs. Unlike a generic
// entity, a file or directory has a fixed schema_key -- "lix_file" or
// "lix_directory" -- so the rename also injects that schema_key
// wherever the caller did not already supply one, satisfying the
// schema_key requirement the state_by_version write/read rules enforce
// downstream.
func ruleFilesystem(ctx context.Context, b backend.Backend, stmt *parser.Statement) (Outcome, error) {
	_ = ctx
	_ = b
	schemaKey, target, ok := filesystemTarget(stmt.Table)
	if !ok {
		return NoMatchOutcome(), nil
	}
	clone := stmt.Clone()
	clone.Table = target
	injectSchemaKeyLiteral(clone, schemaKey)
	return ContinueWith(clone), nil
}

func filesystemTarget(table string) (schemaKey, target string, ok bool) {
	switch table {
	case "lix_file":
		return "lix_file", "lix_state", true
	case "lix_file_by_version":
		return "lix_file", "lix_state_by_version", true
	case "lix_file_history":
		return "lix_file", "lix_state_history", true
	case "lix_directory":
		return "lix_directory", "lix_state", true
	case "lix_directory_by_version":
		return "lix_directory", "lix_state_by_version", true
	case "lix_directory_history":
		return "lix_directory", "lix_state_history", true
	}
	return "", "", false
}

// injectSchemaKeyLiteral mutates stmt in place to carry a fixed
// schema_key -- stmt is already a clone this package owns, never the
// caller's original AST node (spec.md section 9: no shared mutable
// AST). It is a no-op if the statement already names schema_key
// itself.
func injectSchemaKeyLiteral(stmt *parser.Statement, schemaKey string) {
	lit := parser.Literal(value.Text(schemaKey))
	switch stmt.Kind {
	case parser.KindInsert:
		if hasInsertColumn(stmt.InsertColumns, "schema_key") {
			return
		}
		stmt.InsertColumns = append(stmt.InsertColumns, "schema_key")
		stmt.InsertValues = append(stmt.InsertValues, lit)
	case parser.KindSelect, parser.KindUpdate, parser.KindDelete:
		if _, ok := stmt.WhereEquals("schema_key"); ok {
			return
		}
		stmt.Where = parser.AndAll(append(parser.Conjuncts(stmt.Where),
			parser.BinOp("=", parser.Column("schema_key"), lit)))
	}
}
