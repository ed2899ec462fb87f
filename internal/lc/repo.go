package lc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	// DescriptorFile is the repository descriptor, relative to the repository root.
	DescriptorFile = ".lc.conf"

	// DataDir holds one subdirectory per branch, relative to the repository root.
	DataDir = ".lc"

	// DefaultBranch is the branch seeded by Create.
	DefaultBranch = "master"
)

// Deps are the collaborators a Repo delegates to.
// Collector is required. Patterns may be nil. A nil Clock or Logger falls back to
// RealClock and NopLogger.
type Deps struct {
	Collector FilesystemManager
	Patterns  PathMatcher
	Clock     Clock
	Logger    Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = RealClock{}
	}
	if d.Logger == nil {
		d.Logger = NewNopLogger()
	}
	return d
}

// descriptorBody is the persisted part of a Repo.
type descriptorBody struct {
	Name          string   `toml:"name"`
	CurrentBranch string   `toml:"current_branch"`
	Branches      []string `toml:"branches"`
	IgnoredFiles  []string `toml:"ignored_files,omitempty"`
	IgnoredDirs   []string `toml:"ignored_dirs,omitempty"`
	StagedFiles   []string `toml:"staged_files,omitempty"`
}

// Repo is an open handle on a repository descriptor. It owns the staged set and
// the branch list, and orchestrates staging, committing, removing and restoring.
//
// Changes to the descriptor are held in memory until Finalize. There is no
// locking: two processes working on the same root race and the last writer wins.
type Repo struct {
	lifecycle
	root     string
	descPath string
	dataRoot string
	body     descriptorBody
	ignore   *IgnoreSet
	deps     Deps
}

// Create prepares a new repository named name at root. Nothing is written
// until Finalize.
func Create(name, root string, deps Deps) (*Repo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, newError("create", root, ErrIO, err)
	}
	deps = deps.withDefaults()

	r := &Repo{
		lifecycle: lifecycle{modified: true},
		root:      root,
		descPath:  filepath.Join(root, DescriptorFile),
		dataRoot:  filepath.Join(root, DataDir),
		deps:      deps,
	}

	for _, p := range []string{r.descPath, r.dataRoot} {
		exists, err := deps.Collector.Exists(p)
		if err != nil {
			return nil, newError("create", p, ErrIO, err)
		}
		if exists {
			return nil, newError("create", p, ErrAlreadyExists, nil)
		}
	}

	r.body = descriptorBody{
		Name:          name,
		CurrentBranch: DefaultBranch,
		Branches:      []string{DefaultBranch},
		IgnoredFiles:  []string{DescriptorFile},
		IgnoredDirs:   []string{DataDir},
	}
	r.ignore = NewIgnoreSet(r.body.IgnoredFiles, r.body.IgnoredDirs)

	deps.Logger.Info("repository created", "name", name, "root", root)
	return r, nil
}

// Load opens the repository rooted at dir. An empty dir means the current
// working directory.
func Load(dir string, deps Deps) (*Repo, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, newError("load", dir, ErrIO, err)
		}
		dir = wd
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, newError("load", dir, ErrIO, err)
	}

	r := &Repo{
		root:     root,
		descPath: filepath.Join(root, DescriptorFile),
		dataRoot: filepath.Join(root, DataDir),
		deps:     deps.withDefaults(),
	}
	if err := readVersioned(r.descPath, &r.body); err != nil {
		return nil, err
	}
	if !slices.Contains(r.body.Branches, r.body.CurrentBranch) {
		return nil, newError("load", r.descPath, ErrLoad,
			fmt.Errorf("current branch %q is not a known branch", r.body.CurrentBranch))
	}
	r.ignore = NewIgnoreSet(r.body.IgnoredFiles, r.body.IgnoredDirs)

	r.deps.Logger.Debug("repository loaded", "root", root, "branch", r.body.CurrentBranch)
	return r, nil
}

// WithRepo loads the repository at dir, runs fn and finalizes the repository on
// every exit path. A finalize failure is joined with fn's error.
func WithRepo(dir string, deps Deps, fn func(*Repo) error) (err error) {
	r, err := Load(dir, deps)
	if err != nil {
		return err
	}
	defer func() {
		if ferr := r.Finalize(); ferr != nil {
			err = errors.Join(err, fmt.Errorf("finalizing repository: %w", ferr))
		}
	}()
	return fn(r)
}

// Name returns the repository name given at Create.
func (r *Repo) Name() string { return r.body.Name }

// Root returns the absolute path of the working directory the repository tracks.
func (r *Repo) Root() string { return r.root }

// CurrentBranch returns the branch that commits, removals and restores act on.
func (r *Repo) CurrentBranch() string { return r.body.CurrentBranch }

// Branches returns the branch names in descriptor order.
func (r *Repo) Branches() []string { return slices.Clone(r.body.Branches) }

// StagedFiles returns the staged set in insertion order.
func (r *Repo) StagedFiles() []string { return slices.Clone(r.body.StagedFiles) }

// IgnoredFiles returns the root-relative files that are never staged.
func (r *Repo) IgnoredFiles() []string { return slices.Clone(r.body.IgnoredFiles) }

// IgnoredDirs returns the root-relative directories whose contents are never staged.
func (r *Repo) IgnoredDirs() []string { return slices.Clone(r.body.IgnoredDirs) }

// GetBranch loads a fresh copy of the named branch's ledger.
func (r *Repo) GetBranch(name string) (*Ledger, error) {
	if !slices.Contains(r.body.Branches, name) {
		return nil, newError("get branch", name, ErrNotFound, nil)
	}
	l, err := LoadLedger(LedgerPath(r.dataRoot, name))
	if err != nil {
		return nil, fmt.Errorf("loading branch %s: %w", name, err)
	}
	return l, nil
}

// GetBranches loads a fresh copy of every branch's ledger, in descriptor order.
func (r *Repo) GetBranches() ([]*Ledger, error) {
	ledgers := make([]*Ledger, 0, len(r.body.Branches))
	for _, name := range r.body.Branches {
		l, err := r.GetBranch(name)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, l)
	}
	return ledgers, nil
}

// Finalize writes the descriptor if it was modified, creates the data directory
// and an empty ledger for every branch that has no directory yet, and closes the
// handle for mutation. Calling it again is a no-op. On failure the handle stays open.
func (r *Repo) Finalize() error {
	if r.Finalized() {
		return nil
	}
	if r.modified {
		if err := writeVersioned(r.descPath, r.body); err != nil {
			return err
		}
		if err := r.ensureDir(r.dataRoot); err != nil {
			return err
		}
		for _, b := range r.body.Branches {
			branchDir := filepath.Join(r.dataRoot, b)
			exists, err := r.deps.Collector.Exists(branchDir)
			if err != nil {
				return newError("finalize", branchDir, ErrIO, err)
			}
			if exists {
				continue
			}
			if err := r.deps.Collector.Mkdir(branchDir); err != nil {
				return newError("finalize", branchDir, ErrIO, err)
			}
			if err := NewLedger(b, r.dataRoot).Finalize(); err != nil {
				return fmt.Errorf("initializing branch %s: %w", b, err)
			}
			r.deps.Logger.Debug("branch initialized", "branch", b)
		}
		r.modified = false
	}
	r.state = stateFinalized
	return nil
}

func (r *Repo) ensureDir(dir string) error {
	exists, err := r.deps.Collector.Exists(dir)
	if err != nil {
		return newError("finalize", dir, ErrIO, err)
	}
	if exists {
		return nil
	}
	if err := r.deps.Collector.Mkdir(dir); err != nil {
		return newError("finalize", dir, ErrIO, err)
	}
	return nil
}

// withLedger loads the named branch's ledger, runs fn and finalizes the ledger
// on every exit path.
func (r *Repo) withLedger(branch string, fn func(*Ledger) error) (err error) {
	l, err := r.GetBranch(branch)
	if err != nil {
		return err
	}
	defer func() {
		if ferr := l.Finalize(); ferr != nil {
			err = errors.Join(err, fmt.Errorf("finalizing branch %s: %w", branch, ferr))
		}
	}()
	return fn(l)
}

// SnapshotDir returns the snapshot directory of commit id on branch.
func (r *Repo) SnapshotDir(branch string, id int) string {
	return filepath.Join(r.dataRoot, branch, branch+"-commit-"+strconv.Itoa(id))
}

// workPath turns a staged, slash-separated path into a host path under the root.
func (r *Repo) workPath(rel string) string {
	return filepath.Join(r.root, filepath.FromSlash(rel))
}

// relative returns abs relative to the root in staged form, and false if abs
// lies outside the root.
func (r *Repo) relative(abs string) (string, bool) {
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (r *Repo) fileIgnored(rel string) bool {
	if r.ignore.IgnoresFile(rel) {
		return true
	}
	return r.deps.Patterns != nil && r.deps.Patterns.Match(rel)
}

func (r *Repo) dirIgnored(rel string) bool {
	if rel == "." {
		return false
	}
	if r.ignore.IgnoresDir(rel) {
		return true
	}
	return r.deps.Patterns != nil && r.deps.Patterns.Match(rel)
}
