// Package rewrite implements the AST canonicalize/optimize/lower pipeline
// of spec.md section 4.D: StatementRuleOutcome's three-variant sum
// (Continue | Emit | NoMatch), and the concrete rules for each surface
// named in spec.md section 4.C.
//
// The rule loop is a fold: each surface's rule sees the possibly-modified
// statement the previous rule produced. A rule must not mutate the AST
// node it was given in place; it clones, transforms, and returns the
// clone (spec.md section 9: "no aliasing of AST nodes across threads; no
// shared mutable AST").
package rewrite

import (
	"github.com/anthropics/lix/internal/model"
	"github.com/anthropics/lix/internal/parser"
)

// OutcomeKind tags which variant of StatementRuleOutcome a rule produced.
type OutcomeKind int

const (
	Continue OutcomeKind = iota
	Emit
	NoMatch
)

// Outcome is the three-variant sum StatementRuleOutcome::{Continue(Statement)
// | Emit(RewriteOutput) | NoMatch}. Exactly one of Stmt/Output is
// meaningful, selected by Kind.
type Outcome struct {
	Kind   OutcomeKind
	Stmt   *parser.Statement
	Output *RewriteOutput
}

func ContinueWith(stmt *parser.Statement) Outcome { return Outcome{Kind: Continue, Stmt: stmt} }
func EmitOutput(out *RewriteOutput) Outcome       { return Outcome{Kind: Emit, Output: out} }
func NoMatchOutcome() Outcome                     { return Outcome{Kind: NoMatch} }

// RewriteOutput is the terminal product of the rewrite fold for one
// top-level statement.
type RewriteOutput struct {
	Statements        []*parser.Statement
	Registrations     []model.SchemaRegistration
	Postprocess       *model.PostprocessPlan
	Mutations         []model.MutationRow
	UpdateValidations []model.UpdateValidationPlan
}

// passthroughOutput emits stmt unchanged with empty collections, the
// terminal passthrough rule applied when every surface rule returns
// NoMatch.
func passthroughOutput(stmt *parser.Statement) *RewriteOutput {
	return &RewriteOutput{Statements: []*parser.Statement{stmt}}
}
