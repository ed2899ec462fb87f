package lc

import "io/fs"

// FilesystemManager is the path collector and file mover the engine delegates to.
// All paths are absolute host paths.
type FilesystemManager interface {
	// Stat returns file info for a path, following symlinks.
	Stat(path string) (fs.FileInfo, error)

	// Exists reports whether anything exists at path.
	Exists(path string) (bool, error)

	// Expand returns every file under dir, recursively. Symlinks to regular
	// files count as files; symlinked directories below dir are not entered.
	// A directory for which skipDir returns true is not entered; this includes
	// dir itself. skipDir may be nil.
	Expand(dir string, skipDir func(path string) bool) ([]string, error)

	// Mkdir creates a single directory. It fails if the directory already exists.
	Mkdir(path string) error

	// RemoveAll removes path and everything below it.
	RemoveAll(path string) error

	// CopyFile copies src to dst, creating dst's parent directories as needed.
	CopyFile(src, dst string) error
}

// PathMatcher reports whether a slash-separated, root-relative path is excluded
// by user supplied ignore patterns.
type PathMatcher interface {
	Match(relativePath string) bool
}
