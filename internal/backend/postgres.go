package backend

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anthropics/lix/internal/value"
)

// PostgresBackend is the networked Backend implementation, grounded on
// the acquire/begin/exec/commit idiom used for pooled pgx access.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool against connString (a standard
// postgres:// or key=value DSN).
func OpenPostgres(ctx context.Context, connString string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres backend: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres backend: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

func (b *PostgresBackend) Dialect() Dialect { return Postgres }

func (b *PostgresBackend) Execute(ctx context.Context, query string, params []value.Value) (value.QueryResult, error) {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return value.QueryResult{}, err
	}
	defer conn.Release()
	return runPgx(ctx, conn, query, params)
}

func (b *PostgresBackend) BeginTransaction(ctx context.Context) (Transaction, error) {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire postgres connection: %w", err)
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("begin postgres transaction: %w", err)
	}
	return &postgresTx{conn: conn, tx: tx}, nil
}

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}

func runPgx(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
}, query string, params []value.Value) (value.QueryResult, error) {
	args := toPgxArgs(params)
	if looksLikeSelect(query) {
		rows, err := q.Query(ctx, query, args...)
		if err != nil {
			return value.QueryResult{}, err
		}
		defer rows.Close()
		var result value.QueryResult
		for rows.Next() {
			vals, err := rows.Values()
			if err != nil {
				return value.QueryResult{}, err
			}
			row := make(value.Row, len(vals))
			for i, v := range vals {
				row[i] = fromPgxValue(v)
			}
			result.Rows = append(result.Rows, row)
		}
		return result, rows.Err()
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return value.QueryResult{}, err
	}
	return value.QueryResult{}, nil
}

func toPgxArgs(params []value.Value) []any {
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

func fromPgxValue(v any) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null()
	case int64:
		return value.Integer(t)
	case int32:
		return value.Integer(int64(t))
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

type postgresTx struct {
	conn *pgxpool.Conn
	tx   pgx.Tx
	done bool
}

func (t *postgresTx) Execute(ctx context.Context, query string, params []value.Value) (value.QueryResult, error) {
	return runPgx(ctx, t.tx, query, params)
}

func (t *postgresTx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.conn.Release()
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit postgres transaction: %w", err)
	}
	return nil
}

func (t *postgresTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.conn.Release()
	if err := t.tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("rollback postgres transaction: %w", err)
	}
	return nil
}
