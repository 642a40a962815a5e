package parser

import "testing"

func TestParseScriptSelect(t *testing.T) {
	stmts, err := ParseScript("SELECT entity_id, snapshot_content FROM lix_state_by_version WHERE entity_id = 'e1' AND version_id = 'v1'")
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(stmts))
	}
	s := stmts[0]
	if s.Kind != KindSelect || s.Table != "lix_state_by_version" {
		t.Fatalf("unexpected statement: %+v", s)
	}
	if len(s.SelectList) != 2 || s.SelectList[0] != "entity_id" || s.SelectList[1] != "snapshot_content" {
		t.Fatalf("unexpected select list: %v", s.SelectList)
	}
	if _, ok := s.WhereEquals("entity_id"); !ok {
		t.Error("WhereEquals(entity_id) not found")
	}
	if _, ok := s.WhereEquals("version_id"); !ok {
		t.Error("WhereEquals(version_id) not found")
	}
}

func TestParseScriptInsert(t *testing.T) {
	stmts, err := ParseScript(`INSERT INTO lix_state_by_version (entity_id, schema_key, file_id, version_id, plugin_key, snapshot_content, schema_version) VALUES ('e1','k1','f1','v1','p1','{}','1')`)
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	s := stmts[0]
	if s.Kind != KindInsert || len(s.InsertColumns) != 7 || len(s.InsertValues) != 7 {
		t.Fatalf("unexpected insert statement: %+v", s)
	}
}

func TestParseScriptMultipleStatementsSplitOnSemicolon(t *testing.T) {
	stmts, err := ParseScript("SELECT a FROM lix_version; DELETE FROM lix_version WHERE a = 'x'")
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("got %d statements, want 2", len(stmts))
	}
}

func TestParseScriptSemicolonInsideStringIsNotASplit(t *testing.T) {
	stmts, err := ParseScript(`SELECT a FROM lix_version WHERE a = 'x;y'`)
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("got %d statements, want 1 (semicolon inside a string literal must not split)", len(stmts))
	}
}

func TestParseScriptExpressionOnlySelectFallsThroughAsOther(t *testing.T) {
	stmts, err := ParseScript("SELECT 1 + 1")
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	if stmts[0].Kind != KindOther {
		t.Fatalf("expected KindOther passthrough for an expression-only SELECT, got %v", stmts[0].Kind)
	}
}

func TestParseScriptRejectsUnrecognizedKeyword(t *testing.T) {
	_, err := ParseScript("SLECT 1")
	if err == nil {
		t.Fatal("expected a parse error for a misspelled statement keyword")
	}
}

func TestCloneDoesNotAliasWhere(t *testing.T) {
	stmts, err := ParseScript("DELETE FROM lix_version WHERE a = 'x'")
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	clone := stmts[0].Clone()
	clone.Where.Left.Column = "mutated"
	if stmts[0].Where.Left.Column == "mutated" {
		t.Error("Clone aliased the original Where expression tree")
	}
}
