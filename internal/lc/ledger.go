package lc

import (
	"fmt"
	"path/filepath"
)

// LedgerExt is the extension of ledger and descriptor files.
const LedgerExt = ".conf"

// ledgerBody is the persisted part of a Ledger.
type ledgerBody struct {
	Name          string   `toml:"name"`
	CurrentCommit int      `toml:"current_commit"`
	Commits       []Commit `toml:"commits"`
}

// Ledger is the ordered commit history of one branch. Insertion order is
// history order. Ids are derived from the commit count, so after a removal an
// id may be handed out again.
//
// A Ledger is never cached: each load yields an independent copy, and changes
// reach disk only through Finalize.
type Ledger struct {
	lifecycle
	path string
	body ledgerBody
}

// LedgerPath returns where the ledger for branch lives under dataRoot.
func LedgerPath(dataRoot, branch string) string {
	return filepath.Join(dataRoot, branch, branch+LedgerExt)
}

// NewLedger creates an empty ledger for branch, marked modified so that
// Finalize writes it.
func NewLedger(branch, dataRoot string) *Ledger {
	return &Ledger{
		lifecycle: lifecycle{modified: true},
		path:      LedgerPath(dataRoot, branch),
		body:      ledgerBody{Name: branch},
	}
}

// LoadLedger reads a ledger file.
func LoadLedger(path string) (*Ledger, error) {
	var body ledgerBody
	if err := readVersioned(path, &body); err != nil {
		return nil, err
	}

	want := 0
	if n := len(body.Commits); n > 0 {
		want = body.Commits[n-1].ID
	}
	if body.CurrentCommit != want {
		return nil, newError("load", path, ErrLoad,
			fmt.Errorf("current_commit is %d but last commit is %d", body.CurrentCommit, want))
	}

	return &Ledger{path: path, body: body}, nil
}

// Name returns the branch the ledger belongs to.
func (l *Ledger) Name() string { return l.body.Name }

// Path returns the ledger file location.
func (l *Ledger) Path() string { return l.path }

// CurrentCommit returns the id of the last commit, or 0 if the ledger is empty.
func (l *Ledger) CurrentCommit() int { return l.body.CurrentCommit }

// CommitCount returns the number of commits. This is not an id.
func (l *Ledger) CommitCount() int { return len(l.body.Commits) }

// PushCommit appends c to the history.
func (l *Ledger) PushCommit(c Commit) error {
	if err := l.checkOpen("push commit", l.path); err != nil {
		return err
	}
	l.body.Commits = append(l.body.Commits, c.clone())
	l.body.CurrentCommit = c.ID
	l.markModified()
	return nil
}

// RemoveCommit removes the first commit with the given id.
func (l *Ledger) RemoveCommit(id int) error {
	if err := l.checkOpen("remove commit", l.path); err != nil {
		return err
	}
	if len(l.body.Commits) == 0 {
		return newError("remove commit", l.path, ErrNotFound, fmt.Errorf("branch %s is empty", l.body.Name))
	}

	for i, c := range l.body.Commits {
		if c.ID != id {
			continue
		}
		l.body.Commits = append(l.body.Commits[:i], l.body.Commits[i+1:]...)
		l.body.CurrentCommit = 0
		if n := len(l.body.Commits); n > 0 {
			l.body.CurrentCommit = l.body.Commits[n-1].ID
		}
		l.markModified()
		return nil
	}

	return newError("remove commit", l.path, ErrNotFound, fmt.Errorf("commit %d on branch %s", id, l.body.Name))
}

// Commit returns the first commit with the given id.
func (l *Ledger) Commit(id int) (Commit, bool) {
	for _, c := range l.body.Commits {
		if c.ID == id {
			return c.clone(), true
		}
	}
	return Commit{}, false
}

// Commits returns a copy of the full history, oldest first.
func (l *Ledger) Commits() []Commit {
	out := make([]Commit, len(l.body.Commits))
	for i, c := range l.body.Commits {
		out[i] = c.clone()
	}
	return out
}

// Finalize writes the ledger if it was modified and closes it for mutation.
// Calling it again is a no-op. On a write failure the ledger stays open.
func (l *Ledger) Finalize() error {
	if l.Finalized() {
		return nil
	}
	if l.modified {
		if err := writeVersioned(l.path, l.body); err != nil {
			return err
		}
		l.modified = false
	}
	l.state = stateFinalized
	return nil
}
