package backend

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/anthropics/lix/internal/value"
)

// SqliteBackend is the embedded, file-based Backend implementation. It
// opens a modernc.org/sqlite connection in WAL mode, the same pragma set
// the teacher engine used for its own embedded database.
type SqliteBackend struct {
	db   *sql.DB
	mu   sync.Mutex // serializes writer access; backends are single-writer per connection
	path string
}

// OpenSqlite opens (creating if necessary) a SQLite database at path.
// path == ":memory:" opens a private in-memory database.
func OpenSqlite(path string) (*SqliteBackend, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite backend: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite backend: %w", err)
	}
	return &SqliteBackend{db: db, path: path}, nil
}

func (b *SqliteBackend) Dialect() Dialect { return Sqlite }

func (b *SqliteBackend) Execute(ctx context.Context, query string, params []value.Value) (value.QueryResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return runQuery(ctx, b.db, query, params)
}

func (b *SqliteBackend) BeginTransaction(ctx context.Context) (Transaction, error) {
	b.mu.Lock()
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		b.mu.Unlock()
		return nil, fmt.Errorf("begin sqlite transaction: %w", err)
	}
	return &sqliteTx{tx: tx, release: b.mu.Unlock}, nil
}

func (b *SqliteBackend) Close() error {
	if _, err := b.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		// best-effort: still attempt Close
		_ = err
	}
	return b.db.Close()
}

type sqliteTx struct {
	tx      *sql.Tx
	release func()
	done    bool
}

func (t *sqliteTx) Execute(ctx context.Context, query string, params []value.Value) (value.QueryResult, error) {
	return runQueryTx(ctx, t.tx, query, params)
}

func (t *sqliteTx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.release()
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite transaction: %w", err)
	}
	return nil
}

func (t *sqliteTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.release()
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback sqlite transaction: %w", err)
	}
	return nil
}

// querier abstracts over *sql.DB and *sql.Tx for the shared query logic.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func runQuery(ctx context.Context, db *sql.DB, query string, params []value.Value) (value.QueryResult, error) {
	return runQuerier(ctx, db, query, params)
}

func runQueryTx(ctx context.Context, tx *sql.Tx, query string, params []value.Value) (value.QueryResult, error) {
	return runQuerier(ctx, tx, query, params)
}

func runQuerier(ctx context.Context, q querier, query string, params []value.Value) (value.QueryResult, error) {
	args := toDriverArgs(params)
	if looksLikeSelect(query) {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return value.QueryResult{}, err
		}
		defer rows.Close()
		cols, err := rows.Columns()
		if err != nil {
			return value.QueryResult{}, err
		}
		var result value.QueryResult
		for rows.Next() {
			raw := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range raw {
				ptrs[i] = &raw[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return value.QueryResult{}, err
			}
			row := make(value.Row, len(cols))
			for i, v := range raw {
				row[i] = fromDriverValue(v)
			}
			result.Rows = append(result.Rows, row)
		}
		return result, rows.Err()
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return value.QueryResult{}, err
	}
	return value.QueryResult{}, nil
}

func toDriverArgs(params []value.Value) []any {
	args := make([]any, len(params))
	for i, p := range params {
		switch p.Kind {
		case value.KindNull:
			args[i] = nil
		case value.KindInteger:
			args[i] = p.I
		case value.KindReal:
			args[i] = p.R
		case value.KindText:
			args[i] = p.T
		case value.KindBlob:
			args[i] = p.B
		}
	}
	return args
}

func fromDriverValue(v any) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null()
	case int64:
		return value.Integer(t)
	case float64:
		return value.Real(t)
	case string:
		return value.Text(t)
	case []byte:
		return value.Blob(t)
	case bool:
		if t {
			return value.Integer(1)
		}
		return value.Integer(0)
	default:
		return value.Text(fmt.Sprintf("%v", t))
	}
}

// looksLikeSelect decides whether a statement is row-producing for the
// purpose of choosing Query vs Exec against database/sql. This is a plain
// dispatch helper, not the surface matcher; rewrite/surface classification
// happens upstream in the parser and surface packages.
func looksLikeSelect(query string) bool {
	i := 0
	for i < len(query) && (query[i] == ' ' || query[i] == '\n' || query[i] == '\t' || query[i] == '\r') {
		i++
	}
	rest := query[i:]
	if len(rest) >= 6 && equalFold(rest[:6], "select") {
		return true
	}
	if len(rest) >= 7 && equalFold(rest[:7], "explain") {
		return true
	}
	return false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
