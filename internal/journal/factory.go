package journal

import (
	"fmt"
	"os"
	"path/filepath"

	"lc-go/internal/config"
)

// FileName is the journal database name inside the configured data_dir.
const FileName = "lc.db"

// NewJournalFromConfig opens the journal described by cfg and brings its
// schema up to date.
func NewJournalFromConfig(cfg config.JournalConfig) (*SQLiteJournal, error) {
	var path string
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite journal")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
		path = filepath.Join(cfg.DataDir, FileName)
	case "memory":
		path = ":memory:"
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}

	j, err := NewSQLiteJournal(path)
	if err != nil {
		return nil, err
	}
	if err := j.MigrateUp(); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}
