package rewrite

import (
	"context"
	"fmt"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/parser"
	"github.com/anthropics/lix/internal/surface"
)

// Rule is one surface's canonicalize+optimize+lower logic. It may
// suspend (it is allowed to consult the backend, e.g. to resolve the
// current active version or to read the stored-schema registry).
type Rule func(ctx context.Context, b backend.Backend, stmt *parser.Statement) (Outcome, error)

var rules = map[surface.Surface]Rule{
	surface.Version:             ruleVersion,
	surface.ActiveVersion:       ruleActiveVersion,
	surface.ActiveAccount:       ruleActiveAccount,
	surface.State:               ruleState,
	surface.StateByVersion:      ruleStateByVersion,
	surface.StateHistory:        ruleStateHistory,
	surface.Entity:              ruleEntity,
	surface.Filesystem:          ruleFilesystem,
	surface.WorkingChanges:      ruleWorkingChanges,
	surface.StoredSchema:        ruleStoredSchema,
	surface.InternalStateVtable: ruleInternalStateVtable,
}

// Rewrite runs one statement through the fixed-order rule fold named in
// spec.md section 4.C/4.D: write surfaces, then read surfaces, then
// passthrough. The statement threaded through the fold starts as stmt and
// is replaced by whatever a Continue outcome returns; the fold stops the
// moment a rule Emits.
func Rewrite(ctx context.Context, b backend.Backend, stmt *parser.Statement) (*RewriteOutput, error) {
	current := stmt
	for _, surf := range surface.DispatchOrder() {
		if surf == surface.Passthrough {
			break
		}
		if !matchesSurface(current, surf) {
			continue
		}
		rule, ok := rules[surf]
		if !ok {
			continue
		}
		outcome, err := rule(ctx, b, current)
		if err != nil {
			return nil, fmt.Errorf("rewrite rule %s: %w", surf, err)
		}
		switch outcome.Kind {
		case Emit:
			return outcome.Output, nil
		case Continue:
			current = outcome.Stmt
		case NoMatch:
			// try the next surface
		}
	}
	return passthroughOutput(current), nil
}

// matchesSurface decides whether stmt is routed to surf's rule. It is a
// structural shortcut over the already-parsed Statement.Table, which is
// equivalent to (and cheaper than) re-running the text-substring matcher
// against the statement's own serialization -- the matcher's job is to
// be a fast permissive filter, and the parsed table name carries exactly
// the same information as its serialized FROM/INTO clause would.
func matchesSurface(stmt *parser.Statement, surf surface.Surface) bool {
	for _, s := range surface.ClassifyStatement(stmt) {
		if s == surf {
			return true
		}
	}
	return false
}
