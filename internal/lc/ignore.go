package lc

import (
	"path"
	"path/filepath"
	"strings"
)

// IgnoreSet holds the descriptor's exclusions: an exact set of file paths and a
// set of directory prefixes. All entries are cleaned, slash-separated and
// relative to the repository root.
type IgnoreSet struct {
	files map[string]struct{}
	dirs  []string
}

// NewIgnoreSet builds an IgnoreSet from the descriptor's ignored_files and ignored_dirs.
func NewIgnoreSet(files, dirs []string) *IgnoreSet {
	s := &IgnoreSet{files: make(map[string]struct{}, len(files))}
	for _, f := range files {
		s.files[cleanRel(f)] = struct{}{}
	}
	for _, d := range dirs {
		s.dirs = append(s.dirs, cleanRel(d))
	}
	return s
}

// IgnoresFile reports whether rel is an ignored file or lies under an ignored directory.
func (s *IgnoreSet) IgnoresFile(rel string) bool {
	rel = cleanRel(rel)
	if _, ok := s.files[rel]; ok {
		return true
	}
	return s.underIgnoredDir(rel)
}

// IgnoresDir reports whether the directory rel is ignored or lies under an ignored directory.
func (s *IgnoreSet) IgnoresDir(rel string) bool {
	return s.underIgnoredDir(cleanRel(rel))
}

func (s *IgnoreSet) underIgnoredDir(rel string) bool {
	for _, d := range s.dirs {
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}

// cleanRel normalizes a root-relative path: forward slashes, no "./" prefix, no trailing slash.
func cleanRel(p string) string {
	return path.Clean(filepath.ToSlash(p))
}
