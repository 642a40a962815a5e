// Package surface classifies each parsed statement by the Lix logical
// view ("surface") it references, per spec.md section 4.C. Matching is
// a fast, deliberately permissive filter: case-insensitive substring
// matching against the statement's serialized text over a fixed pattern
// list. False positives are resolved downstream when a rewrite rule
// returns NoMatch; all actual rewriting is structural on the AST, never
// on this matcher's text.
package surface

import (
	"strings"

	"github.com/anthropics/lix/internal/parser"
)

// Surface names every logical view Lix exposes.
type Surface string

const (
	Version             Surface = "version"
	ActiveVersion       Surface = "active_version"
	ActiveAccount       Surface = "active_account"
	State               Surface = "state"
	StateByVersion      Surface = "state_by_version"
	StateHistory        Surface = "state_history"
	Entity              Surface = "entity"
	Filesystem          Surface = "filesystem"
	WorkingChanges      Surface = "working_changes"
	StoredSchema        Surface = "stored_schema"
	InternalStateVtable Surface = "internal_state_vtable"
	Passthrough         Surface = "passthrough"
)

// pattern associates a surface with the table-name substrings that imply
// it. Order within a group does not matter; the *group* order
// (write surfaces, then read surfaces, then passthrough) is what rule
// dispatch in the rewrite package follows.
var patterns = []struct {
	surface  Surface
	matchers []string
}{
	{Version, []string{"lix_version"}},
	{ActiveVersion, []string{"lix_active_version"}},
	{ActiveAccount, []string{"lix_active_account"}},
	{StoredSchema, []string{"lix_stored_schema"}},
	{StateByVersion, []string{"lix_state_by_version"}},
	{StateHistory, []string{"lix_state_history"}},
	{State, []string{"lix_state"}},
	{Entity, []string{"lix_entity", "lix_entity_by_version", "lix_entity_history"}},
	{Filesystem, []string{"lix_file", "lix_directory", "lix_file_by_version", "lix_file_history", "lix_directory_by_version", "lix_directory_history"}},
	{WorkingChanges, []string{"lix_working_changes"}},
	{InternalStateVtable, []string{"internal_state_vtable"}},
}

// WriteOrder and ReadOrder are the fixed rule-dispatch orders named in
// spec.md section 4.C.
var WriteOrder = []Surface{Version, ActiveVersion, ActiveAccount, State, StateByVersion, InternalStateVtable, StoredSchema}
var ReadOrder = []Surface{Entity, Filesystem, State, StateByVersion, StateHistory, WorkingChanges}

// Matches reports every surface whose table pattern appears as a
// case-insensitive, word-bounded substring of text. A statement may
// match more than one; ambiguity is resolved by rule order plus each
// rule's own NoMatch/Continue/Emit verdict.
func Matches(text string) []Surface {
	lower := strings.ToLower(text)
	var out []Surface
	for _, p := range patterns {
		for _, m := range p.matchers {
			if containsWord(lower, m) {
				out = append(out, p.surface)
				break
			}
		}
	}
	return out
}

// MatchesAny reports whether text contains any table pattern belonging to
// surface.
func MatchesAny(text string, surface Surface) bool {
	lower := strings.ToLower(text)
	for _, p := range patterns {
		if p.surface != surface {
			continue
		}
		for _, m := range p.matchers {
			if containsWord(lower, m) {
				return true
			}
		}
	}
	return false
}

// containsWord reports whether needle occurs in haystack at a word
// boundary on both sides, so the "lix_state" pattern does not spuriously
// fire on "lix_state_by_version" or "lix_state_history" -- both contain
// "lix_state" as a literal prefix, but neither names the plain state
// surface.
func containsWord(haystack, needle string) bool {
	from := 0
	for {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(needle)
		if (start == 0 || !isIdentByte(haystack[start-1])) && (end == len(haystack) || !isIdentByte(haystack[end])) {
			return true
		}
		from = start + 1
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// ClassifyStatement is a structural convenience built on Statement.Table
// rather than raw text, used once a statement has already been parsed.
// It is not the matcher itself (the matcher works over serialized text
// per the spec's design note), but lets rewrite rules avoid
// re-stringifying a Statement just to look up its own table.
func ClassifyStatement(s *parser.Statement) []Surface {
	return Matches(s.Table)
}

// DispatchOrder returns the fixed sequence of surfaces a statement is
// tried against: write surfaces, then read surfaces, then passthrough.
func DispatchOrder() []Surface {
	order := make([]Surface, 0, len(WriteOrder)+len(ReadOrder)+1)
	order = append(order, WriteOrder...)
	order = append(order, ReadOrder...)
	order = append(order, Passthrough)
	return order
}
