package session

import (
	"fmt"

	"docdesk/internal/config"
	"docdesk/internal/desk"
)

// NewSessionStoreFromConfig creates a SessionStore. An empty path keeps the
// session in memory only.
func NewSessionStoreFromConfig(cfg config.SessionConfig) (desk.SessionStore, error) {
	if cfg.Path == "" {
		return NewMemoryStore(), nil
	}
	if !cfg.Unencrypted && cfg.KeyPath == "" {
		return nil, fmt.Errorf("encrypted session requires key_path to be set")
	}
	return NewFileStore(cfg.Path, cfg.KeyPath, cfg.Unencrypted), nil
}
