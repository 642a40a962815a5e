// lix is the command-line front-end for the change-tracking SQL engine:
// `lix [--path <file>] sql execute <sql|->`.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/errs"
	"github.com/anthropics/lix/internal/lix"
	"github.com/anthropics/lix/internal/value"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("lix", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("path", "", "path to the .lix database file")
	showVersion := fs.Bool("version", false, "show version")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: lix [--path <file>] sql execute <sql|->\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "lix v%s\n", version)
		return 0
	}

	rest := fs.Args()
	if len(rest) != 3 || rest[0] != "sql" || rest[1] != "execute" {
		fs.Usage()
		return 2
	}

	dbPath, err := resolvePath(*path)
	if err != nil {
		printLixError(stderr, errs.NewLixError("INVALID_ARGS", "cannot resolve database path", err.Error()))
		return 2
	}

	sqlText, err := readSQLArg(rest[2], stdin)
	if err != nil {
		printLixError(stderr, errs.NewLixError("INVALID_ARGS", "cannot read SQL", err.Error()))
		return 2
	}

	ctx := context.Background()
	b, err := backend.OpenSqlite(dbPath)
	if err != nil {
		printLixError(stderr, errs.Wrap("open backend", err))
		return 1
	}
	defer b.Close()

	engine, err := lix.OpenLix(ctx, lix.OpenLixConfig{Backend: b})
	if err != nil {
		printLixError(stderr, errs.Wrap("open engine", err))
		return 1
	}
	defer engine.Close()

	rows, err := engine.Execute(ctx, sqlText, nil)
	if err != nil {
		printLixError(stderr, asLixError(err))
		return 1
	}

	printRows(stdout, rows)
	return 0
}

// resolvePath honors --path when given; otherwise requires exactly one
// *.lix file in the current directory.
func resolvePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	matches, err := filepath.Glob("*.lix")
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no .lix file found in current directory; pass --path")
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("multiple .lix files found in current directory; pass --path explicitly")
	}
}

func readSQLArg(arg string, stdin io.Reader) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return arg, nil
}

func asLixError(err error) *errs.LixError {
	switch e := err.(type) {
	case *errs.LixError:
		return e
	case *errs.PlannerError:
		return e.AsLixError()
	case *errs.ExecutorError:
		if e.Inner != nil {
			return e.Inner
		}
		return errs.NewLixError("POST_COMMIT", "post-commit effect failed", e.Error())
	default:
		return errs.Wrap("execute", err)
	}
}

func printLixError(w io.Writer, e *errs.LixError) {
	fmt.Fprintf(w, "code: %s\n", e.Code)
	fmt.Fprintf(w, "title: %s\n", e.Title)
	fmt.Fprintf(w, "description: %s\n", e.Description)
}

func printRows(w io.Writer, res value.QueryResult) {
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		fmt.Fprintln(w, strings.Join(cells, "|"))
	}
}
