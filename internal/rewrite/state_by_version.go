package rewrite

import (
	"context"
	"fmt"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/model"
	"github.com/anthropics/lix/internal/parser"
	"github.com/anthropics/lix/internal/registry"
	"github.com/anthropics/lix/internal/sqltext"
	"github.com/anthropics/lix/internal/value"
)

// MaterializedTableName returns the physical per-schema table name for a
// registered schema_key, per spec.md section 4.G/6.
func MaterializedTableName(schemaKey string) string {
	return "internal_state_materialized_v1_" + schemaKey
}

var materializedColumns = []string{
	"entity_id", "schema_key", "schema_version", "file_id", "version_id",
	"plugin_key", "snapshot_content", "change_id", "is_tombstone",
	"created_at", "updated_at",
}

// ruleStateByVersion lowers reads and writes against lix_state_by_version
// to the per-schema materialized table. state_by_version write always
// lowers to rows keyed (entity_id, schema_key, file_id, version_id,
// plugin_key) with created_at = updated_at = timestamp() on insert, and
// updated_at = timestamp() on update (spec.md section 4.D).
func ruleStateByVersion(ctx context.Context, b backend.Backend, stmt *parser.Statement) (Outcome, error) {
	if stmt.Table != "lix_state_by_version" {
		return NoMatchOutcome(), nil
	}
	switch stmt.Kind {
	case parser.KindInsert:
		return lowerStateByVersionInsert(stmt)
	case parser.KindSelect:
		return lowerStateByVersionSelect(ctx, b, stmt)
	case parser.KindUpdate:
		return lowerStateByVersionUpdate(ctx, b, stmt)
	case parser.KindDelete:
		return lowerStateByVersionDelete(ctx, b, stmt)
	default:
		return NoMatchOutcome(), nil
	}
}

func insertColumnValue(stmt *parser.Statement, name string) (*parser.Expr, bool) {
	for i, c := range stmt.InsertColumns {
		if c == name {
			return stmt.InsertValues[i], true
		}
	}
	return nil, false
}

func lowerStateByVersionInsert(stmt *parser.Statement) (Outcome, error) {
	get := func(name string) (*parser.Expr, error) {
		e, ok := insertColumnValue(stmt, name)
		if !ok {
			return nil, fmt.Errorf("INSERT INTO lix_state_by_version requires column %q", name)
		}
		return e, nil
	}

	entityID, err := get("entity_id")
	if err != nil {
		return Outcome{}, err
	}
	schemaKeyExpr, err := get("schema_key")
	if err != nil {
		return Outcome{}, err
	}
	schemaVersionExpr, err := get("schema_version")
	if err != nil {
		return Outcome{}, err
	}
	fileID, err := get("file_id")
	if err != nil {
		return Outcome{}, err
	}
	versionID, err := get("version_id")
	if err != nil {
		return Outcome{}, err
	}
	pluginKey, err := get("plugin_key")
	if err != nil {
		return Outcome{}, err
	}
	snapshotContent, err := get("snapshot_content")
	if err != nil {
		return Outcome{}, err
	}

	if schemaKeyExpr.Op != "literal" || schemaVersionExpr.Op != "literal" {
		return Outcome{}, fmt.Errorf("schema_key and schema_version must be literal values, not placeholders")
	}
	schemaKey := schemaKeyExpr.Literal.T
	schemaVersion := schemaVersionExpr.Literal.T

	ts := sqltext.Timestamp()
	changeID := newChangeID()

	newStmt := &parser.Statement{
		Kind:          parser.KindInsert,
		Table:         MaterializedTableName(schemaKey),
		InsertColumns: append([]string(nil), materializedColumns...),
		InsertValues: []*parser.Expr{
			entityID.Clone(), schemaKeyExpr.Clone(), schemaVersionExpr.Clone(),
			fileID.Clone(), versionID.Clone(), pluginKey.Clone(), snapshotContent.Clone(),
			parser.Literal(value.Text(changeID)),
			parser.Literal(value.Integer(0)),
			parser.Literal(value.Text(ts)),
			parser.Literal(value.Text(ts)),
		},
	}

	mutation := model.MutationRow{
		EntityID:  exprText(entityID),
		SchemaKey: schemaKey,
		FileID:    exprText(fileID),
		VersionID: exprText(versionID),
		PluginKey: exprText(pluginKey),
		Snapshot:  literalValueOrZero(snapshotContent),
		Op:        model.OpInsert,
	}

	return EmitOutput(&RewriteOutput{
		Statements:    []*parser.Statement{newStmt},
		Registrations: []model.SchemaRegistration{{SchemaKey: schemaKey, SchemaVersion: schemaVersion}},
		Mutations:     []model.MutationRow{mutation},
	}), nil
}

func lowerStateByVersionSelect(ctx context.Context, b backend.Backend, stmt *parser.Statement) (Outcome, error) {
	schemaKey, remaining, err := resolveSchemaKey(ctx, b, stmt.Where)
	if err != nil {
		return Outcome{}, err
	}
	newStmt := &parser.Statement{
		Kind:       parser.KindSelect,
		Table:      MaterializedTableName(schemaKey),
		SelectList: append([]string(nil), stmt.SelectList...),
		Where:      remaining,
	}
	return EmitOutput(&RewriteOutput{Statements: []*parser.Statement{newStmt}}), nil
}

func lowerStateByVersionUpdate(ctx context.Context, b backend.Backend, stmt *parser.Statement) (Outcome, error) {
	schemaKey, remaining, err := requireSchemaKey(stmt.Where, "UPDATE")
	if err != nil {
		return Outcome{}, err
	}
	_ = ctx
	_ = b

	ts := sqltext.Timestamp()
	assignments := append([]parser.Assignment(nil), stmt.Assignments...)
	assignments = append(assignments, parser.Assignment{Column: "updated_at", Value: parser.Literal(value.Text(ts))})

	newStmt := &parser.Statement{
		Kind:        parser.KindUpdate,
		Table:       MaterializedTableName(schemaKey),
		Assignments: assignments,
		Where:       remaining,
	}

	mutation := model.MutationRow{
		SchemaKey: schemaKey,
		Op:        model.OpUpdate,
	}
	if eid, ok := stmt.WhereEquals("entity_id"); ok {
		mutation.EntityID = exprText(eid)
	}
	if vid, ok := stmt.WhereEquals("version_id"); ok {
		mutation.VersionID = exprText(vid)
	}
	if fid, ok := stmt.WhereEquals("file_id"); ok {
		mutation.FileID = exprText(fid)
	}

	return EmitOutput(&RewriteOutput{
		Statements: []*parser.Statement{newStmt},
		Mutations:  []model.MutationRow{mutation},
	}), nil
}

func lowerStateByVersionDelete(ctx context.Context, b backend.Backend, stmt *parser.Statement) (Outcome, error) {
	schemaKey, remaining, err := requireSchemaKey(stmt.Where, "DELETE")
	if err != nil {
		return Outcome{}, err
	}
	_ = ctx
	_ = b

	newStmt := &parser.Statement{
		Kind:  parser.KindDelete,
		Table: MaterializedTableName(schemaKey),
		Where: remaining,
	}

	mutation := model.MutationRow{
		SchemaKey:   schemaKey,
		Op:          model.OpDelete,
		IsTombstone: true,
	}
	if eid, ok := stmt.WhereEquals("entity_id"); ok {
		mutation.EntityID = exprText(eid)
	}
	if vid, ok := stmt.WhereEquals("version_id"); ok {
		mutation.VersionID = exprText(vid)
	}
	if fid, ok := stmt.WhereEquals("file_id"); ok {
		mutation.FileID = exprText(fid)
	}

	return EmitOutput(&RewriteOutput{
		Statements: []*parser.Statement{newStmt},
		Mutations:  []model.MutationRow{mutation},
	}), nil
}

// requireSchemaKey enforces the critical lowering invariant: writes
// against the vtable-backed state_by_version surface require a
// schema_key predicate for UPDATE/DELETE. It returns the schema_key and
// the WHERE clause with that equality predicate stripped (pushdown:
// the remaining predicates apply directly against the now schema-specific
// materialized table).
func requireSchemaKey(where *parser.Expr, op string) (string, *parser.Expr, error) {
	expr, ok := findEqualsExpr(where, "schema_key")
	if !ok || expr.Op != "literal" {
		return "", nil, fmt.Errorf("internal_state_vtable %s requires a schema_key predicate", op)
	}
	return expr.Literal.T, stripEquals(where, "schema_key"), nil
}

// resolveSchemaKey is the read-path counterpart: a schema_key predicate
// narrows the read to one table; its absence is resolved against the
// stored-schema registry rather than rejected, since reads do not carry
// the write-path's schema_key requirement (spec.md section 4.D).
func resolveSchemaKey(ctx context.Context, b backend.Backend, where *parser.Expr) (string, *parser.Expr, error) {
	if expr, ok := findEqualsExpr(where, "schema_key"); ok && expr.Op == "literal" {
		return expr.Literal.T, stripEquals(where, "schema_key"), nil
	}
	key, err := registry.ResolveSingle(ctx, b)
	if err != nil {
		return "", nil, err
	}
	return key, where, nil
}

func findEqualsExpr(where *parser.Expr, column string) (*parser.Expr, bool) {
	for _, c := range parser.Conjuncts(where) {
		if c.Op == "=" {
			if c.Left != nil && c.Left.Op == "column" && c.Left.Column == column {
				return c.Right, true
			}
			if c.Right != nil && c.Right.Op == "column" && c.Right.Column == column {
				return c.Left, true
			}
		}
	}
	return nil, false
}

func stripEquals(where *parser.Expr, column string) *parser.Expr {
	var kept []*parser.Expr
	for _, c := range parser.Conjuncts(where) {
		if c.Op == "=" {
			if (c.Left != nil && c.Left.Op == "column" && c.Left.Column == column) ||
				(c.Right != nil && c.Right.Op == "column" && c.Right.Column == column) {
				continue
			}
		}
		kept = append(kept, c)
	}
	return parser.AndAll(kept)
}

func exprText(e *parser.Expr) string {
	if e == nil {
		return ""
	}
	if e.Op == "literal" {
		return e.Literal.String()
	}
	return ""
}

func literalValueOrZero(e *parser.Expr) value.Value {
	if e != nil && e.Op == "literal" {
		return e.Literal
	}
	return value.Null()
}
