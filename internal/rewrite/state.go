package rewrite

import (
	"context"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/parser"
	"github.com/anthropics/lix/internal/value"
)

// ruleState canonicalizes the state surface (lix_state) to
// state_by_version, the version-parameterized surface it dispatches
// right after in both WriteOrder and ReadOrder (spec.md section 4.C):
// state is exactly state_by_version implicitly scoped to the current
// active version. This is the "collapse chained view rewrites when
// multiple surfaces match" optimization spec.md section 4.D names.
func ruleState(ctx context.Context, b backend.Backend, stmt *parser.Statement) (Outcome, error) {
	if stmt.Table != "lix_state" {
		return NoMatchOutcome(), nil
	}
	canonical, err := canonicalizeState(ctx, b, stmt)
	if err != nil {
		return Outcome{}, err
	}
	return ContinueWith(canonical), nil
}

// canonicalizeState renames stmt to lix_state_by_version, injecting the
// current active version_id when the caller did not already scope the
// statement to one.
func canonicalizeState(ctx context.Context, b backend.Backend, stmt *parser.Statement) (*parser.Statement, error) {
	clone := stmt.Clone()
	clone.Table = "lix_state_by_version"

	switch clone.Kind {
	case parser.KindInsert:
		if hasInsertColumn(clone.InsertColumns, "version_id") {
			return clone, nil
		}
		versionID, err := resolveActiveVersionID(ctx, b)
		if err != nil {
			return nil, err
		}
		clone.InsertColumns = append(clone.InsertColumns, "version_id")
		clone.InsertValues = append(clone.InsertValues, parser.Literal(value.Text(versionID)))
	case parser.KindSelect, parser.KindUpdate, parser.KindDelete:
		if _, ok := clone.WhereEquals("version_id"); ok {
			return clone, nil
		}
		versionID, err := resolveActiveVersionID(ctx, b)
		if err != nil {
			return nil, err
		}
		clone.Where = parser.AndAll(append(parser.Conjuncts(clone.Where),
			parser.BinOp("=", parser.Column("version_id"), parser.Literal(value.Text(versionID)))))
	}
	return clone, nil
}
