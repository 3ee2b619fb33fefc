package database

import (
	"fmt"
	"os"
	"path/filepath"

	"roster-go/internal/config"
	"roster-go/internal/roster"
)

// NewStoreFromConfig creates a roster.Store based on the database config type.
func NewStoreFromConfig(cfg config.DatabaseConfig) (roster.Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for sqlite database")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		return NewSQLiteStore(cfg.Path)
	case "memory":
		return NewSQLiteStore(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
