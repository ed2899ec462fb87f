package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"lc-go/internal/config"
	"lc-go/internal/fs"
	"lc-go/internal/journal"
	"lc-go/internal/lc"
)

// RunIDGenerator produces the id shared by one invocation's log lines and journal row.
type RunIDGenerator interface {
	New() string
}

// UUIDGenerator generates random UUIDs.
type UUIDGenerator struct{}

// New returns a random version 4 UUID.
func (UUIDGenerator) New() string { return uuid.New().String() }

// Options control how an LCApp is built.
type Options struct {
	// Dir is the repository working directory. Empty means the current directory.
	Dir string

	// Verbose mirrors log lines to stderr.
	Verbose bool
}

// LCApp is the application layer between the CLI and the lc engine.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw CLI arguments, records mutating commands in the journal and
// releases everything on Close.
type LCApp struct {
	cfg     *config.Config
	journal journal.Journal
	fsmgr   *fs.OSFilesystemManager
	logger  *slog.Logger
	clock   lc.Clock
	root    string
	op      *Operation
	logFile *os.File
}

// NewLCApp creates a fully wired LCApp from the given config.
// operation identifies the CLI command being run (e.g. "init", "commit add").
// The caller must call Close when done.
func NewLCApp(cfg *config.Config, operation string, opts Options) (*LCApp, error) {
	return newLCApp(cfg, operation, opts, UUIDGenerator{}, lc.RealClock{})
}

func newLCApp(cfg *config.Config, operation string, opts Options, ids RunIDGenerator, clock lc.Clock) (*LCApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	root := opts.Dir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting current directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving repository directory: %w", err)
	}

	j, err := journal.NewJournalFromConfig(cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if err := j.CheckMigrations(); err != nil {
		j.Close()
		return nil, fmt.Errorf("journal schema out of date: %w", err)
	}

	runID := ids.New()
	logger, logFile, err := newLogger(cfg.LogDir, runID, parseLevel(cfg.LogLevel), opts.Verbose)
	if err != nil {
		j.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger.Debug("journal opened", "path", j.Path())

	return &LCApp{
		cfg:     cfg,
		journal: j,
		fsmgr:   fs.NewOSFilesystemManager(),
		logger:  logger,
		clock:   clock,
		root:    root,
		op:      NewOperation(runID, operation),
		logFile: logFile,
	}, nil
}

// Root returns the repository working directory this app operates on.
func (a *LCApp) Root() string { return a.root }

// persistOperation saves the operation to the journal, giving it an auto-increment ID.
// This should only be called for mutating commands.
func (a *LCApp) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.RepoRoot = a.root
	a.op.Parameters = parameters
	jop, err := a.journal.CreateOperation(a.op.RunID, a.op.RepoRoot, a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = jop.ID
	a.logger.Info("operation started", "id", a.op.ID, "operation", a.op.Operation, "root", a.root)
	return nil
}

func (a *LCApp) deps() (lc.Deps, error) {
	patterns, err := fs.LoadIgnoreMatcher(a.root, a.cfg.Filesystem.Ignore)
	if err != nil {
		return lc.Deps{}, fmt.Errorf("loading ignore patterns: %w", err)
	}
	return lc.Deps{
		Collector: a.fsmgr,
		Patterns:  patterns,
		Clock:     a.clock,
		Logger:    &slogAdapter{l: a.logger},
	}, nil
}

func (a *LCApp) withRepo(fn func(*lc.Repo) error) error {
	deps, err := a.deps()
	if err != nil {
		return err
	}
	return lc.WithRepo(a.root, deps, fn)
}

// mutate records the operation, then runs fn against the repository. The
// operation is marked failed if anything goes wrong.
func (a *LCApp) mutate(parameters string, fn func(*lc.Repo) error) error {
	if err := a.persistOperation(parameters); err != nil {
		return err
	}
	if err := a.withRepo(fn); err != nil {
		a.op.Fail()
		a.logger.Error("operation failed", "operation", a.op.Operation, "error", err)
		return err
	}
	return nil
}

// Init creates a repository named name in the working directory.
func (a *LCApp) Init(name string) error {
	if err := a.persistOperation(name); err != nil {
		return err
	}
	err := a.initRepo(name)
	if err != nil {
		a.op.Fail()
		a.logger.Error("operation failed", "operation", a.op.Operation, "error", err)
	}
	return err
}

func (a *LCApp) initRepo(name string) error {
	deps, err := a.deps()
	if err != nil {
		return err
	}
	r, err := lc.Create(name, a.root, deps)
	if err != nil {
		return err
	}
	return r.Finalize()
}

// BranchSummary describes one branch for listing.
type BranchSummary struct {
	Name    string
	Current bool
	Commits int
	// LastUpdated is the local creation time of the newest commit, or empty.
	LastUpdated string
}

// RepoSummary describes a repository for listing.
type RepoSummary struct {
	Name          string
	Root          string
	CurrentBranch string
	Branches      []BranchSummary
	Staged        []string
}

// Describe summarizes the repository.
func (a *LCApp) Describe() (*RepoSummary, error) {
	var s *RepoSummary
	err := a.withRepo(func(r *lc.Repo) error {
		ledgers, err := r.GetBranches()
		if err != nil {
			return err
		}
		s = &RepoSummary{
			Name:          r.Name(),
			Root:          r.Root(),
			CurrentBranch: r.CurrentBranch(),
			Staged:        r.StagedFiles(),
		}
		for _, l := range ledgers {
			b := BranchSummary{
				Name:    l.Name(),
				Current: l.Name() == r.CurrentBranch(),
				Commits: l.CommitCount(),
			}
			if last, ok := l.Commit(l.CurrentCommit()); ok {
				b.LastUpdated = last.FormattedTime()
			}
			s.Branches = append(s.Branches, b)
		}
		return nil
	})
	return s, err
}

// Stage adds paths to the staged set and returns how many files were added.
func (a *LCApp) Stage(paths []string) (int, error) {
	var n int
	err := a.mutate(strings.Join(paths, " "), func(r *lc.Repo) error {
		var err error
		n, err = r.Stage(paths)
		return err
	})
	return n, err
}

// Unstage removes paths from the staged set and returns how many files were removed.
func (a *LCApp) Unstage(paths []string) (int, error) {
	var n int
	err := a.mutate(strings.Join(paths, " "), func(r *lc.Repo) error {
		var err error
		n, err = r.Unstage(paths)
		return err
	})
	return n, err
}

// UnstageAll clears the staged set and returns how many files it held.
func (a *LCApp) UnstageAll() (int, error) {
	var n int
	err := a.mutate("", func(r *lc.Repo) error {
		var err error
		n, err = r.UnstageAll()
		return err
	})
	return n, err
}

// Commit snapshots the staged set and returns the new commit.
func (a *LCApp) Commit(message string) (*lc.Commit, error) {
	var committed *lc.Commit
	err := a.mutate(message, func(r *lc.Repo) error {
		if _, err := r.Commit(message); err != nil {
			return err
		}
		l, err := r.GetBranch(r.CurrentBranch())
		if err != nil {
			return err
		}
		c, ok := l.Commit(l.CurrentCommit())
		if !ok {
			return fmt.Errorf("commit %d missing after commit: %w", l.CurrentCommit(), lc.ErrNotFound)
		}
		committed = &c
		return nil
	})
	return committed, err
}

// RemoveCommit deletes commit id from the current branch.
func (a *LCApp) RemoveCommit(id int) error {
	return a.mutate(strconv.Itoa(id), func(r *lc.Repo) error {
		return r.RemoveCommit(id)
	})
}

// RestoreCommit copies commit id of the current branch back into the working
// directory. An id of 0 means the branch's current commit. Returns the commit
// restored and the number of files copied.
func (a *LCApp) RestoreCommit(id int) (int, int, error) {
	var restored int
	err := a.mutate(strconv.Itoa(id), func(r *lc.Repo) error {
		if id == 0 {
			l, err := r.GetBranch(r.CurrentBranch())
			if err != nil {
				return err
			}
			if l.CurrentCommit() == 0 {
				return fmt.Errorf("branch %s has no commits to restore: %w", l.Name(), lc.ErrNotFound)
			}
			id = l.CurrentCommit()
		}
		var err error
		restored, err = r.RestoreCommit(id)
		return err
	})
	return id, restored, err
}

// ListCommits returns the current branch name and either every commit on it,
// oldest first, or only commit id when id is not 0.
func (a *LCApp) ListCommits(id int) (string, []lc.Commit, error) {
	var branch string
	var commits []lc.Commit
	err := a.withRepo(func(r *lc.Repo) error {
		branch = r.CurrentBranch()
		l, err := r.GetBranch(branch)
		if err != nil {
			return err
		}
		if id == 0 {
			commits = l.Commits()
			return nil
		}
		c, ok := l.Commit(id)
		if !ok {
			return fmt.Errorf("commit %d on branch %s: %w", id, branch, lc.ErrNotFound)
		}
		commits = []lc.Commit{c}
		return nil
	})
	return branch, commits, err
}

// History returns the most recent journal operations, newest first.
func (a *LCApp) History(limit int) ([]*journal.Operation, error) {
	return a.journal.ListOperations(limit)
}

// Operation returns the journal operation with the given id.
func (a *LCApp) Operation(id int64) (*journal.Operation, error) {
	op, err := a.journal.FindOperation(id)
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, fmt.Errorf("operation %d: %w", id, lc.ErrNotFound)
	}
	return op, nil
}

// Close finishes the operation record for mutating commands and closes all resources.
func (a *LCApp) Close() error {
	var errs []error

	if a.op.Persisted() {
		if err := a.journal.FinishOperation(a.op.ID, a.op.Status); err != nil {
			errs = append(errs, fmt.Errorf("finishing operation: %w", err))
		}
		a.logger.Info("operation finished", "id", a.op.ID, "status", a.op.Status)
	}

	if err := a.journal.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing journal: %w", err))
	}
	if a.logFile != nil {
		a.logFile.Close()
	}

	return errors.Join(errs...)
}
