// Package parser parses a generic SQL dialect into a statement list and
// binds placeholders once across a whole script, per spec.md section 4.B.
//
// The grammar covered is deliberately narrow: SELECT / INSERT / UPDATE /
// DELETE against a single table, with a conjunction of equality/compare
// predicates in WHERE. That is exactly the shape the surface views in
// section 4.C need. An expression-only SELECT (no FROM) and statements
// led by PRAGMA, BEGIN, COMMIT, ROLLBACK, CREATE, ALTER, DROP or EXPLAIN
// are kept as Other statements carried only as raw text, which the
// surface matcher then treats as passthrough; any other leading keyword
// is a parse error.
package parser

import "github.com/anthropics/lix/internal/value"

// Kind tags the statement variant.
type Kind int

const (
	KindSelect Kind = iota
	KindInsert
	KindUpdate
	KindDelete
	KindOther
)

// Expr is the predicate/value expression tree used in WHERE clauses and
// value lists. Exactly one of its fields is meaningful, selected by Op.
type Expr struct {
	Op          string // "=", "AND", "placeholder", "literal", "column"
	Left, Right *Expr
	Column      string
	Literal     value.Value
	Placeholder int // n of a numbered $n (1-indexed into the whole script's params), 0 for an unnumbered '?'
}

func Column(name string) *Expr { return &Expr{Op: "column", Column: name} }
func Literal(v value.Value) *Expr { return &Expr{Op: "literal", Literal: v} }
func Placeholder(n int) *Expr { return &Expr{Op: "placeholder", Placeholder: n} }
func BinOp(op string, left, right *Expr) *Expr { return &Expr{Op: op, Left: left, Right: right} }

// Assignment is a single `column = expr` pair, as used in UPDATE SET.
// INSERT keeps its columns and values in InsertColumns/InsertValues.
type Assignment struct {
	Column string
	Value  *Expr
}

// Statement is the canonical AST produced by parsing once; mutated in
// place by rewrite rules, serialized to dialect text exactly when a
// PreparedStatement is emitted.
type Statement struct {
	Kind Kind

	// Table is the lowercased table/view name the statement targets.
	Table string

	// Select-specific.
	SelectList []string // column names, or ["*"]

	// Insert-specific.
	InsertColumns []string
	InsertValues  []*Expr // one *Expr per column, positionally aligned

	// Update-specific.
	Assignments []Assignment

	// Shared by Select/Update/Delete.
	Where *Expr

	// Raw carries the original text for statements parser does not model
	// structurally (Kind == KindOther) and is also kept for diagnostics on
	// every statement.
	Raw string
}

// Clone performs a deep-enough copy for rewrite rules to mutate a
// statement without aliasing the parser's original AST nodes across
// threads (spec.md section 9, "no shared mutable AST").
func (s *Statement) Clone() *Statement {
	clone := *s
	clone.SelectList = append([]string(nil), s.SelectList...)
	clone.InsertColumns = append([]string(nil), s.InsertColumns...)
	clone.InsertValues = append([]*Expr(nil), s.InsertValues...)
	clone.Assignments = append([]Assignment(nil), s.Assignments...)
	clone.Where = s.Where.Clone()
	return &clone
}

// Clone deep-copies an expression tree.
func (e *Expr) Clone() *Expr {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Left = e.Left.Clone()
	clone.Right = e.Right.Clone()
	return &clone
}

// WhereEquals reports the literal or placeholder bound to `column = …` at
// the top level of a WHERE clause (a conjunction of equalities), used
// pervasively by the rewrite engine's lowering rules to read out scope
// predicates such as version_id/schema_key.
func (s *Statement) WhereEquals(column string) (*Expr, bool) {
	return findEquals(s.Where, column)
}

func findEquals(e *Expr, column string) (*Expr, bool) {
	if e == nil {
		return nil, false
	}
	switch e.Op {
	case "AND":
		if v, ok := findEquals(e.Left, column); ok {
			return v, true
		}
		return findEquals(e.Right, column)
	case "=":
		if e.Left != nil && e.Left.Op == "column" && e.Left.Column == column {
			return e.Right, true
		}
		if e.Right != nil && e.Right.Op == "column" && e.Right.Column == column {
			return e.Left, true
		}
	}
	return nil, false
}

// Conjuncts flattens a WHERE clause's top-level AND chain into a slice of
// predicate expressions, used by pushdown optimization.
func Conjuncts(e *Expr) []*Expr {
	if e == nil {
		return nil
	}
	if e.Op == "AND" {
		return append(Conjuncts(e.Left), Conjuncts(e.Right)...)
	}
	return []*Expr{e}
}

// AndAll rebuilds a WHERE clause from a list of conjuncts.
func AndAll(exprs []*Expr) *Expr {
	var out *Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if out == nil {
			out = e
			continue
		}
		out = BinOp("AND", out, e)
	}
	return out
}
