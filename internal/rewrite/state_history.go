package rewrite

import (
	"context"
	"fmt"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/parser"
	"github.com/anthropics/lix/internal/postcommit"
)

// ruleStateHistory lowers reads against the state_history surface
// (lix_state_history) to lix_commit_stream, the ordered ledger of
// committed changes every mutation already appends to (spec.md section
// 4.E/9.1). The two tables share column names for the predicates
// state_history reads filter on (schema_key, file_id, version_id,
// entity_id), so the WHERE clause pushes down unchanged.
//
// state_history is a read surface only (spec.md section 4.C ReadOrder);
// it has no write form to lower.
func ruleStateHistory(ctx context.Context, b backend.Backend, stmt *parser.Statement) (Outcome, error) {
	_ = ctx
	_ = b
	if stmt.Table != "lix_state_history" {
		return NoMatchOutcome(), nil
	}
	if stmt.Kind != parser.KindSelect {
		return Outcome{}, fmt.Errorf("lix_state_history is a read-only surface; INSERT/UPDATE/DELETE are not supported")
	}
	clone := stmt.Clone()
	clone.Table = postcommit.CommitStreamTable
	return EmitOutput(&RewriteOutput{Statements: []*parser.Statement{clone}}), nil
}
