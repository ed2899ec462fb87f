package journal

import (
	"testing"
	"time"
)

// newTestJournal creates an in-memory journal with the schema applied.
func newTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()

	j, err := NewJournalFromConfig(configMemory())
	if err != nil {
		t.Fatalf("failed to create journal: %v", err)
	}
	t.Cleanup(func() {
		j.Close()
	})
	return j
}

func TestSQLiteJournal_Operations(t *testing.T) {
	t.Run("create and list operations", func(t *testing.T) {
		j := newTestJournal(t)

		op1, err := j.CreateOperation("run-1", "/work/demo", "init", "demo")
		if err != nil {
			t.Fatalf("CreateOperation() error = %v", err)
		}
		if op1.ID == 0 {
			t.Error("operation ID should be non-zero")
		}
		if op1.Status != StatusRunning {
			t.Errorf("Status = %q, want %q", op1.Status, StatusRunning)
		}

		op2, err := j.CreateOperation("run-2", "/work/demo", "stage add", "a.txt b.txt")
		if err != nil {
			t.Fatalf("CreateOperation() error = %v", err)
		}

		ops, err := j.ListOperations(10)
		if err != nil {
			t.Fatalf("ListOperations() error = %v", err)
		}
		if len(ops) != 2 {
			t.Fatalf("got %d operations, want 2", len(ops))
		}

		// Newest first
		if ops[0].ID != op2.ID {
			t.Errorf("expected newest first: got ID %d, want %d", ops[0].ID, op2.ID)
		}
		got := ops[0]
		if got.RunID != "run-2" || got.RepoRoot != "/work/demo" || got.Operation != "stage add" || got.Parameters != "a.txt b.txt" {
			t.Errorf("operation = %+v", got)
		}
		if got.FinishedAt.Valid {
			t.Error("FinishedAt should not be set yet")
		}
	})

	t.Run("limit", func(t *testing.T) {
		j := newTestJournal(t)
		for i := 0; i < 5; i++ {
			if _, err := j.CreateOperation("run", "", "stage add", ""); err != nil {
				t.Fatalf("CreateOperation() error = %v", err)
			}
		}
		ops, err := j.ListOperations(3)
		if err != nil {
			t.Fatalf("ListOperations() error = %v", err)
		}
		if len(ops) != 3 {
			t.Errorf("got %d operations, want 3", len(ops))
		}
	})

	t.Run("finish operation sets status and time", func(t *testing.T) {
		j := newTestJournal(t)
		start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
		now := start
		j.clock = func() time.Time { return now }

		op, err := j.CreateOperation("run-1", "/work/demo", "commit add", "first")
		if err != nil {
			t.Fatalf("CreateOperation() error = %v", err)
		}
		now = start.Add(time.Minute)
		if err := j.FinishOperation(op.ID, StatusSuccess); err != nil {
			t.Fatalf("FinishOperation() error = %v", err)
		}

		found, err := j.FindOperation(op.ID)
		if err != nil {
			t.Fatalf("FindOperation() error = %v", err)
		}
		if found.Status != StatusSuccess {
			t.Errorf("Status = %q, want %q", found.Status, StatusSuccess)
		}
		if !found.StartedAt.Equal(start) {
			t.Errorf("StartedAt = %v, want %v", found.StartedAt, start)
		}
		if !found.FinishedAt.Valid || !found.FinishedAt.Time.Equal(now) {
			t.Errorf("FinishedAt = %v, want %v", found.FinishedAt, now)
		}
	})

	t.Run("finish unknown operation", func(t *testing.T) {
		j := newTestJournal(t)
		if err := j.FinishOperation(42, StatusFailed); err == nil {
			t.Error("FinishOperation() expected error")
		}
	})

	t.Run("find missing operation", func(t *testing.T) {
		j := newTestJournal(t)
		op, err := j.FindOperation(7)
		if err != nil {
			t.Fatalf("FindOperation() error = %v", err)
		}
		if op != nil {
			t.Errorf("FindOperation() = %+v, want nil", op)
		}
	})
}

func TestSQLiteJournal_CheckMigrations(t *testing.T) {
	j := newTestJournal(t)
	if err := j.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() error = %v", err)
	}

	raw, err := NewSQLiteJournal(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteJournal() error = %v", err)
	}
	defer raw.Close()
	if err := raw.CheckMigrations(); err == nil {
		t.Error("CheckMigrations() on unmigrated journal expected error")
	}
}
