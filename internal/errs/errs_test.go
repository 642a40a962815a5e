package errs

import "testing"

func TestIsMissingRelationError(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"no such table: x", true},
		{`ERROR: relation "x" does not exist`, true},
		{"undefined table: relation x", true},
		{"CHECK constraint failed", false},
		{"", false},
	}
	for _, c := range cases {
		t.Run(c.msg, func(t *testing.T) {
			err := NewLixError("", "t", c.msg)
			if got := IsMissingRelationError(err); got != c.want {
				t.Errorf("IsMissingRelationError(%q) = %v, want %v", c.msg, got, c.want)
			}
		})
	}
}

func TestIsMissingRelationErrorNil(t *testing.T) {
	if IsMissingRelationError(nil) {
		t.Error("IsMissingRelationError(nil) = true")
	}
}

func TestNewLixErrorDefaultsCode(t *testing.T) {
	e := NewLixError("", "title", "desc")
	if e.Code != defaultCode {
		t.Errorf("Code = %q, want %q", e.Code, defaultCode)
	}
}

func TestNewLixErrorUppercasesAndPrefixesCode(t *testing.T) {
	e := NewLixError("parse", "title", "desc")
	if e.Code != "LIX_ERROR_PARSE" {
		t.Errorf("Code = %q, want LIX_ERROR_PARSE", e.Code)
	}
}

func TestPlannerErrorAsLixError(t *testing.T) {
	pe := NewPlannerError(PlannerInvariant, "boom")
	le := pe.AsLixError()
	if le.Code != "LIX_ERROR_INVARIANT" {
		t.Errorf("Code = %q, want LIX_ERROR_INVARIANT", le.Code)
	}
	if le.Description != "boom" {
		t.Errorf("Description = %q, want boom", le.Description)
	}
}
