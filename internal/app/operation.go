package app

import "lc-go/internal/journal"

// Operation tracks a CLI command that may mutate a repository.
// Operations are created in memory with ID=0. Only mutating commands persist
// them to the journal, which gives them an auto-increment ID.
type Operation struct {
	ID         int64
	RunID      string
	RepoRoot   string
	Operation  string
	Parameters string
	Status     string
}

// NewOperation creates a new in-memory operation that succeeds unless marked failed.
func NewOperation(runID, operation string) *Operation {
	return &Operation{
		RunID:     runID,
		Operation: operation,
		Status:    journal.StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the journal.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Fail marks the operation failed.
func (op *Operation) Fail() {
	op.Status = journal.StatusFailed
}
