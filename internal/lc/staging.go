package lc

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Stage adds files to the staged set. Each path is absolute or relative to the
// repository root. Directories are expanded recursively, skipping ignored
// directories. Paths that are already staged, ignored, missing, outside the
// root or not valid UTF-8 are skipped. Every path is resolved before the staged
// set changes, so a failure leaves it untouched. Returns the number of newly
// staged files.
func (r *Repo) Stage(paths []string) (int, error) {
	if err := r.checkOpen("stage", r.descPath); err != nil {
		return 0, err
	}

	var candidates []string
	for _, p := range paths {
		files, missing, err := r.collect(p)
		if err != nil {
			return 0, err
		}
		if missing {
			r.deps.Logger.Warn("path does not exist, skipping", "path", p)
			continue
		}
		candidates = append(candidates, files...)
	}

	staged := make(map[string]struct{}, len(r.body.StagedFiles))
	for _, f := range r.body.StagedFiles {
		staged[f] = struct{}{}
	}

	added := 0
	for _, rel := range candidates {
		if !utf8.ValidString(rel) {
			r.deps.Logger.Warn("path is not valid UTF-8, skipping", "path", strings.ToValidUTF8(rel, "?"))
			continue
		}
		if _, ok := staged[rel]; ok {
			r.deps.Logger.Debug("already staged", "path", rel)
			continue
		}
		if r.fileIgnored(rel) {
			r.deps.Logger.Debug("ignored, not staging", "path", rel)
			continue
		}
		staged[rel] = struct{}{}
		r.body.StagedFiles = append(r.body.StagedFiles, rel)
		added++
	}

	r.markModified()
	r.deps.Logger.Info("files staged", "count", added)
	return added, nil
}

// Unstage removes files from the staged set, expanding directories the same way
// Stage does. A path that no longer exists is matched literally, along with
// anything staged under it. Returns the number of files removed.
func (r *Repo) Unstage(paths []string) (int, error) {
	if err := r.checkOpen("unstage", r.descPath); err != nil {
		return 0, err
	}

	drop := make(map[string]struct{})
	var dropDirs []string
	for _, p := range paths {
		files, missing, err := r.collect(p)
		if err != nil {
			return 0, err
		}
		if missing {
			rel, ok := r.relative(r.absolute(p))
			if !ok {
				continue
			}
			drop[rel] = struct{}{}
			dropDirs = append(dropDirs, rel+"/")
			continue
		}
		for _, rel := range files {
			drop[rel] = struct{}{}
		}
	}

	kept := r.body.StagedFiles[:0]
	removed := 0
	for _, f := range r.body.StagedFiles {
		if _, ok := drop[f]; ok || hasAnyPrefix(f, dropDirs) {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	r.body.StagedFiles = kept

	r.markModified()
	r.deps.Logger.Info("files unstaged", "count", removed)
	return removed, nil
}

// UnstageAll clears the staged set and returns how many files it held.
func (r *Repo) UnstageAll() (int, error) {
	if err := r.checkOpen("unstage all", r.descPath); err != nil {
		return 0, err
	}
	n := len(r.body.StagedFiles)
	r.body.StagedFiles = nil
	r.markModified()
	r.deps.Logger.Info("staged set cleared", "count", n)
	return n, nil
}

func (r *Repo) absolute(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(r.root, p)
}

// collect resolves p to the staged-form paths of the files it names. missing is
// true when nothing exists at p. Paths outside the root resolve to nothing.
func (r *Repo) collect(p string) (files []string, missing bool, err error) {
	abs := r.absolute(p)
	rel, ok := r.relative(abs)
	if !ok {
		r.deps.Logger.Warn("path is outside the repository, skipping", "path", p, "root", r.root)
		return nil, false, nil
	}

	info, err := r.deps.Collector.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, true, nil
		}
		return nil, false, newError("stat", abs, ErrIO, err)
	}

	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			r.deps.Logger.Warn("not a regular file, skipping", "path", p)
			return nil, false, nil
		}
		return []string{rel}, false, nil
	}

	found, err := r.deps.Collector.Expand(abs, func(dir string) bool {
		rel, ok := r.relative(dir)
		return !ok || r.dirIgnored(rel)
	})
	if err != nil {
		return nil, false, newError("expand", abs, ErrIO, err)
	}
	for _, f := range found {
		if rel, ok := r.relative(f); ok {
			files = append(files, rel)
		}
	}
	return files, false, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
