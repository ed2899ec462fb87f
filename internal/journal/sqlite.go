package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lc-go/internal/journal/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteJournal implements Journal on SQLite.
type SQLiteJournal struct {
	db    *sql.DB
	path  string
	clock func() time.Time
}

// NewSQLiteJournal opens the journal at path, which can be a file path or
// ":memory:". The schema is not touched; see MigrateUp.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteJournal{db: db, path: path, clock: time.Now}, nil
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// An in-memory database lives and dies with its connection, and lc is a
	// single writer anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

// MigrateUp applies pending schema migrations.
func (s *SQLiteJournal) MigrateUp() error {
	return migrations.Up(s.db)
}

func (s *SQLiteJournal) CreateOperation(runID, repoRoot, operation, parameters string) (*Operation, error) {
	op := &Operation{
		RunID:      runID,
		RepoRoot:   repoRoot,
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  s.clock().UTC(),
		Status:     StatusRunning,
	}
	res, err := s.db.ExecContext(context.Background(),
		`INSERT INTO operations (run_id, repo_root, operation, parameters, started_at, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		op.RunID, op.RepoRoot, op.Operation, op.Parameters, op.StartedAt, op.Status)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	op.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return op, nil
}

func (s *SQLiteJournal) FinishOperation(id int64, status string) error {
	res, err := s.db.ExecContext(context.Background(),
		`UPDATE operations SET finished_at = ?, status = ? WHERE id = ?`,
		s.clock().UTC(), status, id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finishing operation: no operation with id %d", id)
	}
	return nil
}

func (s *SQLiteJournal) ListOperations(limit int) ([]*Operation, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT id, run_id, repo_root, operation, parameters, started_at, finished_at, status
		 FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		var op Operation
		if err := rows.Scan(&op.ID, &op.RunID, &op.RepoRoot, &op.Operation, &op.Parameters,
			&op.StartedAt, &op.FinishedAt, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// FindOperation returns the operation with the given id, or nil if there is none.
func (s *SQLiteJournal) FindOperation(id int64) (*Operation, error) {
	var op Operation
	err := s.db.QueryRowContext(context.Background(),
		`SELECT id, run_id, repo_root, operation, parameters, started_at, finished_at, status
		 FROM operations WHERE id = ?`, id).
		Scan(&op.ID, &op.RunID, &op.RepoRoot, &op.Operation, &op.Parameters,
			&op.StartedAt, &op.FinishedAt, &op.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding operation: %w", err)
	}
	return &op, nil
}

// Path returns the journal file path (or ":memory:" for in-memory journals).
func (s *SQLiteJournal) Path() string {
	return s.path
}

func (s *SQLiteJournal) CheckMigrations() error {
	return migrations.Check(s.db)
}

func (s *SQLiteJournal) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteJournal implements Journal.
var _ Journal = (*SQLiteJournal)(nil)
