package rewrite

import (
	"context"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/parser"
)

// ruleEntity renames the entity surface and its by_version/history
// variants onto the corresponding state surface (spec.md section 4.C
// groups entity and state as views over the same underlying rows).
// Entity carries no fixed schema_key -- unlike filesystem -- so the
// rename alone is enough; schema_key resolution is left to whichever
// state/state_by_version/state_history rule picks up the renamed
// statement next in dispatch order.
func ruleEntity(ctx context.Context, b backend.Backend, stmt *parser.Statement) (Outcome, error) {
	_ = ctx
	_ = b
	target, ok := entityTarget(stmt.Table)
	if !ok {
		return NoMatchOutcome(), nil
	}
	clone := stmt.Clone()
	clone.Table = target
	return ContinueWith(clone), nil
}

func entityTarget(table string) (string, bool) {
	switch table {
	case "lix_entity":
		return "lix_state", true
	case "lix_entity_by_version":
		return "lix_state_by_version", true
	case "lix_entity_history":
		return "lix_state_history", true
	}
	return "", false
}
