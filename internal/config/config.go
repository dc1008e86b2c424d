// Package config handles loading and managing mboxidx configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ArchiveConfig holds archive location configuration.
type ArchiveConfig struct {
	Mbox string `toml:"mbox"` // Path to the mbox archive
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// OutputConfig holds rendering defaults for the CLI.
type OutputConfig struct {
	Format string `toml:"format"` // text, json, yaml
}

// Config represents the mboxidx configuration.
type Config struct {
	Archive ArchiveConfig `toml:"archive"`
	Log     LogConfig     `toml:"log"`
	Output  OutputConfig  `toml:"output"`

	// Computed path (not from config file)
	HomeDir string `toml:"-"`
}

// DefaultHome returns the default mboxidx home directory.
// Respects the MBOXIDX_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("MBOXIDX_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mboxidx"
	}
	return filepath.Join(home, ".mboxidx")
}

// Load reads the configuration from the specified file.
// If path is empty, uses the default location (~/.mboxidx/config.toml).
// A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	homeDir := DefaultHome()

	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
		Log:     LogConfig{Level: "info"},
		Output:  OutputConfig{Format: "text"},
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Archive.Mbox = expandPath(cfg.Archive.Mbox)
	if cfg.Output.Format == "" {
		cfg.Output.Format = "text"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return cfg, nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
