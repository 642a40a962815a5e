package parser

import (
	"testing"

	"github.com/anthropics/lix/internal/sqltext"
	"github.com/anthropics/lix/internal/value"
)

func TestBindOnceUnnumberedPlaceholdersAreSequentialAcrossStatements(t *testing.T) {
	stmts, err := ParseScript("SELECT a FROM lix_version WHERE a = ?; SELECT a FROM lix_version WHERE a = ?")
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	params := []value.Value{value.Text("p0"), value.Text("p1")}
	bound, err := BindOnce(stmts, params, sqltext.SqlitePlaceholder)
	if err != nil {
		t.Fatalf("BindOnce: %v", err)
	}
	if len(bound) != 2 {
		t.Fatalf("got %d bound statements, want 2", len(bound))
	}
	if bound[0].UsedParams[0].T != "p0" {
		t.Errorf("statement 0 bound %v, want p0", bound[0].UsedParams)
	}
	if bound[1].UsedParams[0].T != "p1" {
		t.Errorf("statement 1 bound %v, want p1", bound[1].UsedParams)
	}
}

func TestBindOnceIsAssociativeAcrossStatements(t *testing.T) {
	// bind(script, params) == concat(bind(stmt_i, slice_i(params)))
	stmts, err := ParseScript("SELECT a FROM lix_version WHERE a = ?; SELECT a FROM lix_version WHERE a = ?")
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	params := []value.Value{value.Text("p0"), value.Text("p1")}

	whole, err := BindOnce(stmts, params, sqltext.SqlitePlaceholder)
	if err != nil {
		t.Fatalf("BindOnce(whole): %v", err)
	}

	part0, err := BindOnce(stmts[:1], params[:1], sqltext.SqlitePlaceholder)
	if err != nil {
		t.Fatalf("BindOnce(stmt 0): %v", err)
	}
	part1, err := BindOnce(stmts[1:], params[1:], sqltext.SqlitePlaceholder)
	if err != nil {
		t.Fatalf("BindOnce(stmt 1): %v", err)
	}

	if whole[0].SQL != part0[0].SQL || whole[1].SQL != part1[0].SQL {
		t.Errorf("bind(script, params) != concat(bind(stmt_i, slice_i(params))): %q/%q vs %q/%q",
			whole[0].SQL, whole[1].SQL, part0[0].SQL, part1[0].SQL)
	}
}

func TestBindOnceNumberedPlaceholderAddressesDirectly(t *testing.T) {
	stmts, err := ParseScript("SELECT a FROM lix_version WHERE a = $2")
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	params := []value.Value{value.Text("first"), value.Text("second")}
	bound, err := BindOnce(stmts, params, sqltext.PostgresPlaceholder)
	if err != nil {
		t.Fatalf("BindOnce: %v", err)
	}
	if bound[0].UsedParams[0].T != "second" {
		t.Errorf("numbered placeholder $2 bound %v, want second", bound[0].UsedParams)
	}
}

func TestBindOnceMismatchedCountErrors(t *testing.T) {
	stmts, err := ParseScript("SELECT a FROM lix_version WHERE a = ?")
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	_, err = BindOnce(stmts, []value.Value{value.Text("p0"), value.Text("unused")}, sqltext.SqlitePlaceholder)
	if err == nil {
		t.Fatal("expected an error when the script does not consume every supplied param")
	}
}

func TestBindOnceEmptyParamsSerializesWithoutSubstitution(t *testing.T) {
	stmts, err := ParseScript("SELECT a FROM lix_version")
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	bound, err := BindOnce(stmts, nil, sqltext.SqlitePlaceholder)
	if err != nil {
		t.Fatalf("BindOnce: %v", err)
	}
	if len(bound[0].UsedParams) != 0 {
		t.Errorf("UsedParams = %v, want empty", bound[0].UsedParams)
	}
}
