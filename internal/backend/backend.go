// Package backend defines the two-method contract Lix requires of a
// relational store, and the two concrete implementations this repository
// ships: an embedded SQLite backend and a networked Postgres backend.
//
// Backends are assumed single-writer per connection; connection pooling
// is external to this package.
package backend

import (
	"context"

	"github.com/anthropics/lix/internal/value"
)

// Dialect tags the SQL text flavor a Backend advertises.
type Dialect int

const (
	Sqlite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "Postgres"
	}
	return "Sqlite"
}

// Backend is the suspending two-operation contract the planner/executor
// drive: execute a statement directly, or begin a transaction.
type Backend interface {
	Dialect() Dialect
	Execute(ctx context.Context, sql string, params []value.Value) (value.QueryResult, error)
	BeginTransaction(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction is owned exclusively by the executor for the duration of
// one execute call; it is never shared across calls.
type Transaction interface {
	Execute(ctx context.Context, sql string, params []value.Value) (value.QueryResult, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
