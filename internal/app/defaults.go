package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns where roster keeps its config and data. Both
// locations can be overridden through the environment:
//
//	ROSTER_CONFIG_PATH  config file (default ~/.config/roster.toml)
//	ROSTER_HOME         data directory (default ~/.local/share/roster)
func GetDefaults() (map[string]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	configPath := envOr("ROSTER_CONFIG_PATH", filepath.Join(home, ".config", "roster.toml"))
	baseDir := envOr("ROSTER_HOME", filepath.Join(home, ".local", "share", "roster"))

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
