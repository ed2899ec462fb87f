package fs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"lc-go/internal/lc"
)

// OSFilesystemManager is the real filesystem implementation of lc.FilesystemManager.
type OSFilesystemManager struct{}

// NewOSFilesystemManager creates a new filesystem manager that operates on the real filesystem.
func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{}
}

// Stat returns file info for a path, following symlinks.
func (m *OSFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Exists reports whether anything exists at path.
func (m *OSFilesystemManager) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

// ListFiles returns the files directly inside dir, sorted by name. A symlink
// counts as a file when it resolves to a regular file.
func (m *OSFilesystemManager) ListFiles(dir string) ([]string, error) {
	return listEntries(dir, func(p string, d fs.DirEntry) bool {
		if d.Type().IsRegular() {
			return true
		}
		if d.Type()&fs.ModeSymlink == 0 {
			return false
		}
		info, err := os.Stat(p)
		return err == nil && info.Mode().IsRegular()
	})
}

// ListDirs returns the subdirectories directly inside dir, sorted by name.
// Symlinks to directories are not included.
func (m *OSFilesystemManager) ListDirs(dir string) ([]string, error) {
	return listEntries(dir, func(_ string, d fs.DirEntry) bool { return d.IsDir() })
}

func listEntries(dir string, keep func(path string, d fs.DirEntry) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		p := filepath.Join(dir, entry.Name())
		if keep(p, entry) {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// Expand returns every file under dir that ListFiles reports, in lexical order.
// Directories for which skipDir returns true, dir included, are not entered.
// dir itself may be a symlink; symlinked directories below it are not entered.
func (m *OSFilesystemManager) Expand(dir string, skipDir func(path string) bool) ([]string, error) {
	var paths []string
	if err := m.expand(dir, skipDir, &paths); err != nil {
		return nil, err
	}
	return paths, nil
}

func (m *OSFilesystemManager) expand(dir string, skipDir func(path string) bool, paths *[]string) error {
	if skipDir != nil && skipDir(dir) {
		return nil
	}
	files, err := m.ListFiles(dir)
	if err != nil {
		return err
	}
	dirs, err := m.ListDirs(dir)
	if err != nil {
		return err
	}

	// Both lists share the dir prefix and are sorted by name.
	for len(files) > 0 || len(dirs) > 0 {
		if len(dirs) == 0 || (len(files) > 0 && files[0] < dirs[0]) {
			*paths = append(*paths, files[0])
			files = files[1:]
			continue
		}
		if err := m.expand(dirs[0], skipDir, paths); err != nil {
			return err
		}
		dirs = dirs[1:]
	}
	return nil
}

// Mkdir creates a single directory. It fails if path already exists.
func (m *OSFilesystemManager) Mkdir(path string) error {
	return os.Mkdir(path, 0755)
}

// RemoveAll removes path and everything below it.
func (m *OSFilesystemManager) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// CopyFile copies the contents and permission bits of src to dst, creating
// dst's parent directories as needed. An existing dst is overwritten.
func (m *OSFilesystemManager) CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating parent directories: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing destination: %w", err)
	}
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	return nil
}

// Compile-time check that OSFilesystemManager implements lc.FilesystemManager.
var _ lc.FilesystemManager = (*OSFilesystemManager)(nil)
