// Package accountdb defines the narrow Database session contract the
// Account Store (C3) consumes, per spec.md §6: "API consumed is
// {prepare(sql) → Statement, execute(), getAffectedRows(), getSession()},
// plus timer hooks {getInsertTimer, getUpdateTimer, getDeleteTimer,
// getSelectTimer}." Concrete drivers live in the postgres and sqlite
// subpackages, mirroring the teacher's internal/storage/relationaldb
// layout (interface.go / config.go / errors.go / manager.go + one
// subpackage per driver).
package accountdb

import (
	"context"
	"database/sql"
)

// Result reports how many rows a statement affected.
type Result interface {
	AffectedRows() (int64, error)
}

// Statement is a prepared SQL statement bound to a live session.
type Statement interface {
	Exec(ctx context.Context, args ...any) (Result, error)
	Query(ctx context.Context, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, args ...any) *sql.Row
	Close() error
}

// Session is the live database handle a Statement is prepared against.
type Session interface {
	Prepare(ctx context.Context, query string) (Statement, error)
	Exec(ctx context.Context, query string, args ...any) (Result, error)
}

// Timer is acquired at handler entry and its Stop function must be called
// on every exit path (success, early return, or error) so latency samples
// are always recorded (spec.md §5, "Scoped acquisition").
type Timer interface {
	Start() func()
}

// Database is the full collaborator the Account Store depends on.
type Database interface {
	// Session returns the live session handle (getSession).
	Session() Session

	InsertTimer() Timer
	UpdateTimer() Timer
	DeleteTimer() Timer
	SelectTimer() Timer

	Close() error
}
