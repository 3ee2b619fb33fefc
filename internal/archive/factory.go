package archive

import (
	"context"
	"fmt"

	"roster-go/internal/config"
	"roster-go/internal/roster"
)

// NewArchiveFromConfig creates a roster.Archive based on the archive
// config type.
func NewArchiveFromConfig(ctx context.Context, cfg config.ArchiveConfig) (roster.Archive, error) {
	switch cfg.Type {
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("fs_root required for filesystem archive")
		}
		return NewFileSystemArchive(cfg.FSRoot)
	case "memory":
		return NewMemoryArchive(), nil
	case "s3":
		return NewS3Archive(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}
