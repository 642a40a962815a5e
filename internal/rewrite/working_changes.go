package rewrite

import (
	"context"
	"fmt"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/parser"
)

// ruleWorkingChanges lowers reads against the working_changes surface
// (lix_working_changes) by collapsing it onto state the same way
// ruleState collapses onto state_by_version: the working set is simply
// the current active version's state. working_changes is last in
// spec.md section 4.C's ReadOrder, so -- unlike entity/filesystem,
// which rename into a surface still ahead of them in dispatch order --
// there is no later slot left in the fold for a renamed statement to be
// retried against. This rule calls the state/state_by_version rules
// directly instead of returning Continue, so the two-stage collapse
// still runs to completion within this one dispatch slot.
func ruleWorkingChanges(ctx context.Context, b backend.Backend, stmt *parser.Statement) (Outcome, error) {
	if stmt.Table != "lix_working_changes" {
		return NoMatchOutcome(), nil
	}
	if stmt.Kind != parser.KindSelect {
		return Outcome{}, fmt.Errorf("lix_working_changes is a read-only surface; INSERT/UPDATE/DELETE are not supported")
	}

	clone := stmt.Clone()
	clone.Table = "lix_state"
	out, err := ruleState(ctx, b, clone)
	if err != nil {
		return Outcome{}, err
	}
	if out.Kind == Continue {
		return ruleStateByVersion(ctx, b, out.Stmt)
	}
	return out, nil
}
