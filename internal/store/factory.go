package store

import (
	"fmt"
	"os"
	"path/filepath"

	"docdesk/internal/config"
	"docdesk/internal/desk"
)

// CacheFileName is the name of the SQLite cache inside the data directory.
const CacheFileName = "docdesk.db"

// NewStoreFromConfig creates a Store implementation based on the store config type.
func NewStoreFromConfig(cfg config.StoreConfig, clock desk.Clock) (*SQLiteStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite store")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, CacheFileName), clock)
	case "memory":
		return NewSQLiteStore(":memory:", clock)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
