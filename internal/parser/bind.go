package parser

import (
	"fmt"

	"github.com/anthropics/lix/internal/sqltext"
	"github.com/anthropics/lix/internal/value"
)

// Bound is a statement after placeholder binding: its serialized SQL text
// in the target dialect, and the parameter slice consumed by that text's
// placeholders, 1:1.
type Bound struct {
	Stmt       *Statement
	SQL        string
	UsedParams []value.Value
}

// BindOnce walks stmts in order substituting params positionally across
// the whole script -- not per statement -- preserving a cross-statement
// placeholder counter so an unnumbered '?' in statement 2 binds the
// correct overall parameter. Numbered placeholders ($1..$n) address
// params directly by that 1-indexed position, and do not advance the
// unnumbered counter.
//
// When params is empty, every statement's SQL is its canonical
// serialization with no substitution, and UsedParams is empty.
func BindOnce(stmts []*Statement, params []value.Value, ph sqltext.Placeholder) ([]Bound, error) {
	if len(params) == 0 {
		out := make([]Bound, len(stmts))
		for i, s := range stmts {
			sql, _, err := serialize(s, ph, nil, new(int))
			if err != nil {
				return nil, err
			}
			out[i] = Bound{Stmt: s, SQL: sql}
		}
		return out, nil
	}

	counter := 0 // count of unnumbered placeholders consumed so far
	highest := 0 // highest numbered placeholder ($n) referenced so far
	var note func(es ...*Expr)
	note = func(es ...*Expr) {
		for _, e := range es {
			if e != nil {
				highest = max(highest, e.Placeholder)
				note(e.Left, e.Right)
			}
		}
	}
	out := make([]Bound, len(stmts))
	for i, s := range stmts {
		sql, used, err := serialize(s, ph, params, &counter)
		if err != nil {
			return nil, fmt.Errorf("bind statement %d: %w", i, err)
		}
		out[i] = Bound{Stmt: s, SQL: sql, UsedParams: used}
		note(append([]*Expr{s.Where}, s.InsertValues...)...)
		for _, a := range s.Assignments {
			note(a.Value)
		}
	}
	if max(counter, highest) != len(params) {
		return nil, fmt.Errorf("placeholder count mismatch: script consumed %d of %d supplied params", max(counter, highest), len(params))
	}
	return out, nil
}

// serialize renders a Statement to dialect SQL text, rendering each
// Placeholder leaf through ph and, when params is non-nil, substituting
// and recording its bound value via the shared counter.
func serialize(s *Statement, ph sqltext.Placeholder, params []value.Value, counter *int) (string, []value.Value, error) {
	var used []value.Value
	nextPlaceholder := 0

	render := func(e *Expr) (string, error) {
		return renderExpr(e, ph, params, counter, &used, &nextPlaceholder)
	}

	switch s.Kind {
	case KindSelect:
		sql := "SELECT " + joinList(s.SelectList) + " FROM " + sqltext.QuoteIdent(s.Table)
		if s.Where != nil {
			w, err := render(s.Where)
			if err != nil {
				return "", nil, err
			}
			sql += " WHERE " + w
		}
		return sql, used, nil
	case KindInsert:
		cols := make([]string, len(s.InsertColumns))
		for i, c := range s.InsertColumns {
			cols[i] = sqltext.QuoteIdent(c)
		}
		vals := make([]string, len(s.InsertValues))
		for i, v := range s.InsertValues {
			rv, err := render(v)
			if err != nil {
				return "", nil, err
			}
			vals[i] = rv
		}
		sql := "INSERT INTO " + sqltext.QuoteIdent(s.Table)
		if len(cols) > 0 {
			sql += " (" + joinQuoted(cols) + ")"
		}
		sql += " VALUES (" + joinQuoted(vals) + ")"
		return sql, used, nil
	case KindUpdate:
		parts := make([]string, len(s.Assignments))
		for i, a := range s.Assignments {
			rv, err := render(a.Value)
			if err != nil {
				return "", nil, err
			}
			parts[i] = sqltext.QuoteIdent(a.Column) + " = " + rv
		}
		sql := "UPDATE " + sqltext.QuoteIdent(s.Table) + " SET " + joinQuoted(parts)
		if s.Where != nil {
			w, err := render(s.Where)
			if err != nil {
				return "", nil, err
			}
			sql += " WHERE " + w
		}
		return sql, used, nil
	case KindDelete:
		sql := "DELETE FROM " + sqltext.QuoteIdent(s.Table)
		if s.Where != nil {
			w, err := render(s.Where)
			if err != nil {
				return "", nil, err
			}
			sql += " WHERE " + w
		}
		return sql, used, nil
	default:
		return s.Raw, nil, nil
	}
}

func renderExpr(e *Expr, ph sqltext.Placeholder, params []value.Value, counter *int, used *[]value.Value, localSeq *int) (string, error) {
	if e == nil {
		return "", nil
	}
	switch e.Op {
	case "AND":
		l, err := renderExpr(e.Left, ph, params, counter, used, localSeq)
		if err != nil {
			return "", err
		}
		r, err := renderExpr(e.Right, ph, params, counter, used, localSeq)
		if err != nil {
			return "", err
		}
		return l + " AND " + r, nil
	case "=", "!=", "<", ">", "<=", ">=":
		l, err := renderExpr(e.Left, ph, params, counter, used, localSeq)
		if err != nil {
			return "", err
		}
		r, err := renderExpr(e.Right, ph, params, counter, used, localSeq)
		if err != nil {
			return "", err
		}
		return l + " " + e.Op + " " + r, nil
	case "column":
		return sqltext.QuoteIdent(e.Column), nil
	case "literal":
		return literalSQL(e.Literal), nil
	case "placeholder":
		*localSeq++
		ordinal := *localSeq
		if params == nil {
			return ph(ordinal), nil
		}
		var idx int
		if e.Placeholder > 0 {
			idx = e.Placeholder - 1
		} else {
			idx = *counter
			*counter++
		}
		if idx < 0 || idx >= len(params) {
			return "", fmt.Errorf("placeholder out of range: position %d, have %d params", idx+1, len(params))
		}
		*used = append(*used, params[idx])
		return ph(len(*used)), nil
	default:
		return "", fmt.Errorf("unhandled expression op %q", e.Op)
	}
}

func literalSQL(v value.Value) string {
	switch v.Kind {
	case value.KindNull:
		return "NULL"
	case value.KindInteger:
		return fmt.Sprintf("%d", v.I)
	case value.KindReal:
		return fmt.Sprintf("%g", v.R)
	case value.KindText:
		return "'" + escapeQuote(v.T) + "'"
	case value.KindBlob:
		return fmt.Sprintf("x'%x'", v.B)
	default:
		return "NULL"
	}
}

func escapeQuote(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func joinList(items []string) string {
	if len(items) == 0 {
		return "*"
	}
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ", "
		}
		if it == "*" {
			out += "*"
		} else {
			out += sqltext.QuoteIdent(it)
		}
	}
	return out
}

func joinQuoted(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ", "
		}
		out += it
	}
	return out
}
