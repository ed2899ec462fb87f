package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"lc-go/internal/lc"
)

// WriteFiles creates each file under root, keyed by slash-separated relative path.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("creating parent of %s: %v", rel, err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", rel, err)
		}
	}
}

// ReadFile returns the content of a slash-separated path under root.
func ReadFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("reading %s: %v", rel, err)
	}
	return string(data)
}

// ErrInjected is returned by the failing filesystem managers below.
var ErrInjected = errors.New("injected failure")

// FailingFilesystemManager wraps a FilesystemManager and makes CopyFile fail
// once a set number of copies have succeeded.
type FailingFilesystemManager struct {
	lc.FilesystemManager

	mu        sync.Mutex
	copiesOK  int
	succeeded int
}

// NewFailingFilesystemManager lets copiesOK copies through before failing every later one.
func NewFailingFilesystemManager(inner lc.FilesystemManager, copiesOK int) *FailingFilesystemManager {
	return &FailingFilesystemManager{FilesystemManager: inner, copiesOK: copiesOK}
}

func (m *FailingFilesystemManager) CopyFile(src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.succeeded >= m.copiesOK {
		return ErrInjected
	}
	if err := m.FilesystemManager.CopyFile(src, dst); err != nil {
		return err
	}
	m.succeeded++
	return nil
}

// ExpandFailingFilesystemManager wraps a FilesystemManager and makes every
// Expand fail.
type ExpandFailingFilesystemManager struct {
	lc.FilesystemManager
}

func (m *ExpandFailingFilesystemManager) Expand(string, func(string) bool) ([]string, error) {
	return nil, ErrInjected
}
