package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// chdir switches the process working directory to dir for the duration
// of the test, restoring the original on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir(%s): %v", dir, err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

func runCLI(t *testing.T, args []string, stdin string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errBuf bytes.Buffer
	code = run(args, strings.NewReader(stdin), &out, &errBuf)
	return code, out.String(), errBuf.String()
}

func TestRunVersionFlag(t *testing.T) {
	code, stdout, _ := runCLI(t, []string{"--version"}, "")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout, "lix v") {
		t.Errorf("stdout = %q, want it to contain the version string", stdout)
	}
}

func TestRunUnrecognizedSubcommandPrintsUsageAndExits2(t *testing.T) {
	code, _, stderr := runCLI(t, []string{"frobnicate"}, "")
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr, "Usage:") {
		t.Errorf("stderr = %q, want usage text", stderr)
	}
}

func TestRunArithmeticSelect(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.lix")
	code, stdout, stderr := runCLI(t, []string{"--path", dbPath, "sql", "execute", "SELECT 1 + 1"}, "")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0; stderr = %q", code, stderr)
	}
	if strings.TrimSpace(stdout) != "2" {
		t.Errorf("stdout = %q, want \"2\"", stdout)
	}
}

func TestRunParseFailureExitsWithLixErrorShape(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.lix")
	code, _, stderr := runCLI(t, []string{"--path", dbPath, "sql", "execute", "SLECT 1"}, "")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "code:") || !strings.Contains(stderr, "title:") || !strings.Contains(stderr, "description:") {
		t.Errorf("stderr = %q, want code:/title:/description: lines", stderr)
	}
}

func TestRunReadsSQLFromStdinWhenArgIsDash(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.lix")
	code, stdout, stderr := runCLI(t, []string{"--path", dbPath, "sql", "execute", "-"}, "SELECT 2 + 2")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0; stderr = %q", code, stderr)
	}
	if strings.TrimSpace(stdout) != "4" {
		t.Errorf("stdout = %q, want \"4\"", stdout)
	}
}

func TestRunInsertThenSelectRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.lix")
	insertSQL := `INSERT INTO lix_state_by_version (entity_id, schema_key, schema_version, file_id, version_id, plugin_key, snapshot_content) VALUES ('e1', 'k1', '1', 'f1', 'v1', 'p1', 'hello')`
	if code, _, stderr := runCLI(t, []string{"--path", dbPath, "sql", "execute", insertSQL}, ""); code != 0 {
		t.Fatalf("insert exit code = %d, want 0; stderr = %q", code, stderr)
	}

	selectSQL := `SELECT snapshot_content FROM lix_state_by_version WHERE schema_key = 'k1' AND entity_id = 'e1'`
	code, stdout, stderr := runCLI(t, []string{"--path", dbPath, "sql", "execute", selectSQL}, "")
	if code != 0 {
		t.Fatalf("select exit code = %d, want 0; stderr = %q", code, stderr)
	}
	if strings.TrimSpace(stdout) != "hello" {
		t.Errorf("stdout = %q, want \"hello\"", stdout)
	}
}

func TestResolvePathRequiresExplicitFlagWithZeroOrMultipleLixFiles(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	if _, err := resolvePath(""); err == nil {
		t.Error("resolvePath(\"\") with zero .lix files should error")
	}

	touch(t, filepath.Join(dir, "a.lix"))
	got, err := resolvePath("")
	if err != nil || got != "a.lix" {
		t.Errorf("resolvePath(\"\") = (%q, %v), want (a.lix, nil) with exactly one .lix file", got, err)
	}

	touch(t, filepath.Join(dir, "b.lix"))
	if _, err := resolvePath(""); err == nil {
		t.Error("resolvePath(\"\") with two .lix files should error")
	}

	if got, err := resolvePath("explicit.lix"); err != nil || got != "explicit.lix" {
		t.Errorf("resolvePath(explicit.lix) = (%q, %v), want (explicit.lix, nil)", got, err)
	}
}
