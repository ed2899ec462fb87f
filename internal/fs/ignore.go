package fs

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"lc-go/internal/lc"
)

// IgnoreFile is the per-repository pattern file, read from the repository root.
const IgnoreFile = ".lcignore"

// defaultIgnorePatterns are always applied regardless of config or .lcignore.
var defaultIgnorePatterns = []string{IgnoreFile}

type ignorePattern struct {
	pattern   string
	matchPath bool // match against the whole relative path instead of the basename
}

// IgnoreMatcher checks repository-relative paths against glob patterns.
// Patterns without '/' match any path whose basename matches, so "build" skips
// every directory named build. Patterns with '/' match the full relative path
// from the repository root. A trailing '/' is dropped.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines, lines starting with '#' and malformed globs are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		raw = strings.TrimPrefix(strings.TrimSuffix(raw, "/"), "/")
		if raw == "" {
			continue
		}
		if _, err := path.Match(raw, ""); err != nil {
			continue
		}
		patterns = append(patterns, ignorePattern{
			pattern:   raw,
			matchPath: strings.Contains(raw, "/"),
		})
	}
	return &IgnoreMatcher{patterns: patterns}
}

// LoadIgnoreMatcher builds the matcher for the repository at root from the
// default patterns, the configured patterns and the root's .lcignore file.
func LoadIgnoreMatcher(root string, configured []string) (*IgnoreMatcher, error) {
	fromFile, err := ParseIgnoreFile(filepath.Join(root, IgnoreFile))
	if err != nil {
		return nil, err
	}
	raw := make([]string, 0, len(defaultIgnorePatterns)+len(configured)+len(fromFile))
	raw = append(raw, defaultIgnorePatterns...)
	raw = append(raw, configured...)
	raw = append(raw, fromFile...)
	return NewIgnoreMatcher(raw), nil
}

// Match reports whether relativePath should be ignored. The path is relative to
// the repository root; either separator is accepted.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if len(m.patterns) == 0 || relativePath == "" {
		return false
	}

	normalized := path.Clean(filepath.ToSlash(relativePath))
	basename := path.Base(normalized)

	for _, p := range m.patterns {
		subject := basename
		if p.matchPath {
			subject = normalized
		}
		if matched, _ := path.Match(p.pattern, subject); matched {
			return true
		}
	}
	return false
}

// Patterns returns the effective patterns in the order they are checked.
func (m *IgnoreMatcher) Patterns() []string {
	out := make([]string, len(m.patterns))
	for i, p := range m.patterns {
		out[i] = p.pattern
	}
	return out
}

// ParseIgnoreFile reads an ignore file and returns its raw lines.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}

// Compile-time check that IgnoreMatcher implements lc.PathMatcher.
var _ lc.PathMatcher = (*IgnoreMatcher)(nil)
