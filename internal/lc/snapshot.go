package lc

import (
	"fmt"
	"path/filepath"
	"unicode/utf8"
)

// NextCommitID returns the id the next commit on the current branch will get.
// Ids are count+1, so an id freed by a removal can be handed out again.
func (r *Repo) NextCommitID() (int, error) {
	l, err := r.GetBranch(r.body.CurrentBranch)
	if err != nil {
		return 0, err
	}
	return l.CommitCount() + 1, nil
}

// Commit snapshots the staged set into a new commit on the current branch and
// clears the staged set. Returns the number of files committed.
//
// The snapshot directory must not exist yet. A copy failure leaves the files
// copied so far in place and the staged set untouched.
func (r *Repo) Commit(message string) (int, error) {
	if err := r.checkOpen("commit", r.descPath); err != nil {
		return 0, err
	}
	if len(r.body.StagedFiles) == 0 {
		return 0, newError("commit", r.root, ErrNoStagedFiles, nil)
	}
	if !utf8.ValidString(message) {
		r.deps.Logger.Warn("commit message is not valid UTF-8, replacing invalid bytes")
	}

	branch := r.body.CurrentBranch
	var committed Commit
	err := r.withLedger(branch, func(l *Ledger) error {
		id := l.CommitCount() + 1
		c := NewCommit(id, message, r.body.StagedFiles, r.deps.Clock.Now())

		dir := r.SnapshotDir(branch, id)
		if err := r.deps.Collector.Mkdir(dir); err != nil {
			return newError("commit", dir, ErrIO, fmt.Errorf("creating snapshot directory: %w", err))
		}

		for _, rel := range c.ModifiedFiles {
			src := r.workPath(rel)
			dst := filepath.Join(dir, filepath.FromSlash(rel))
			if err := r.deps.Collector.CopyFile(src, dst); err != nil {
				r.deps.Logger.Error("commit aborted", "commit", id, "path", rel, "error", err)
				return newError("commit", src, ErrCommitAborted, err)
			}
			r.deps.Logger.Debug("file committed", "commit", id, "path", rel)
		}

		if err := l.PushCommit(c); err != nil {
			return err
		}
		if err := l.Finalize(); err != nil {
			return fmt.Errorf("saving branch %s: %w", branch, err)
		}
		committed = c
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.body.StagedFiles = nil
	r.markModified()
	r.deps.Logger.Info("commit created", "branch", branch, "commit", committed.ID, "files", len(committed.ModifiedFiles))
	return len(committed.ModifiedFiles), nil
}

// RemoveCommit deletes the snapshot directory of commit id on the current
// branch, then its ledger entry. If the ledger entry is missing after the
// directory was deleted, the two are left inconsistent.
func (r *Repo) RemoveCommit(id int) error {
	if err := r.checkOpen("remove commit", r.descPath); err != nil {
		return err
	}

	branch := r.body.CurrentBranch
	err := r.withLedger(branch, func(l *Ledger) error {
		dir := r.SnapshotDir(branch, id)
		exists, err := r.deps.Collector.Exists(dir)
		if err != nil {
			return newError("remove commit", dir, ErrIO, err)
		}
		if !exists {
			return newError("remove commit", dir, ErrNotFound, fmt.Errorf("commit %d on branch %s", id, branch))
		}
		if err := r.deps.Collector.RemoveAll(dir); err != nil {
			return newError("remove commit", dir, ErrIO, err)
		}
		if err := l.RemoveCommit(id); err != nil {
			r.deps.Logger.Error("snapshot removed but ledger entry missing", "branch", branch, "commit", id)
			return err
		}
		return l.Finalize()
	})
	if err != nil {
		return err
	}

	r.markModified()
	r.deps.Logger.Info("commit removed", "branch", branch, "commit", id)
	return nil
}

// RestoreCommit copies every file of commit id on the current branch back into
// the working directory at its relative path. Files not in the snapshot are left
// alone. A copy failure stops the restore with the files copied so far in place.
// Returns the number of files restored.
func (r *Repo) RestoreCommit(id int) (int, error) {
	branch := r.body.CurrentBranch
	restored := 0
	err := r.withLedger(branch, func(l *Ledger) error {
		if _, ok := l.Commit(id); !ok {
			return newError("restore commit", l.Path(), ErrNotFound, fmt.Errorf("commit %d on branch %s", id, branch))
		}

		dir := r.SnapshotDir(branch, id)
		exists, err := r.deps.Collector.Exists(dir)
		if err != nil {
			return newError("restore commit", dir, ErrIO, err)
		}
		if !exists {
			return newError("restore commit", dir, ErrNotFound, fmt.Errorf("snapshot directory of commit %d", id))
		}

		files, err := r.deps.Collector.Expand(dir, nil)
		if err != nil {
			return newError("restore commit", dir, ErrIO, err)
		}
		for _, f := range files {
			rel, err := filepath.Rel(dir, f)
			if err != nil {
				return newError("restore commit", f, ErrIO, err)
			}
			dst := filepath.Join(r.root, rel)
			if err := r.deps.Collector.CopyFile(f, dst); err != nil {
				return newError("restore commit", dst, ErrIO, err)
			}
			restored++
			r.deps.Logger.Debug("file restored", "commit", id, "path", filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return restored, err
	}

	r.deps.Logger.Info("commit restored", "branch", branch, "commit", id, "files", restored)
	return restored, nil
}
