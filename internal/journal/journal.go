// Package journal records every mutating lc command in a SQLite database so
// that `lc history` can show what was done, where and whether it worked.
package journal

import (
	"database/sql"
	"time"
)

// Operation statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Operation is one recorded command invocation.
type Operation struct {
	ID         int64
	RunID      string
	RepoRoot   string
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
}

// Journal stores operations.
type Journal interface {
	// CreateOperation records the start of an operation with status running.
	CreateOperation(runID, repoRoot, operation, parameters string) (*Operation, error)

	// FinishOperation sets the final status and finish time of an operation.
	FinishOperation(id int64, status string) error

	// ListOperations returns up to limit operations, newest first.
	ListOperations(limit int) ([]*Operation, error)

	// FindOperation returns the operation with the given id, or nil if there is none.
	FindOperation(id int64) (*Operation, error)

	// CheckMigrations verifies the schema is up to date.
	CheckMigrations() error

	Close() error
}
