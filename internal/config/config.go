package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/gerunddev/wikibridge/internal/convert"
)

// Config represents the wikibridge configuration
type Config struct {
	WorkspaceDir      string `json:"workspace_dir"`
	SnapshotDir       string `json:"snapshot_dir"`
	LogFile           string `json:"log_file"`
	LogLevel          string `json:"log_level"`
	ImageWidth        int    `json:"image_width"`
	AllowFullFallback bool   `json:"allow_full_fallback"`
}

// DefaultImageWidth is the converter's default width for new images
const DefaultImageWidth = convert.DefaultImageWidth

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		WorkspaceDir:      filepath.Join(home, "wiki"),
		SnapshotDir:       filepath.Join(xdg.CacheHome, "wikibridge", "snapshots"),
		LogFile:           filepath.Join(os.TempDir(), "wikibridge.log"),
		LogLevel:          "info",
		ImageWidth:        DefaultImageWidth,
		AllowFullFallback: true,
	}
}

// ConfigPath returns the path to the config file
// Uses ~/.config on all platforms for consistency
// Can be overridden for testing
var ConfigPath = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(xdg.ConfigHome, "wikibridge", "config.json")
	}
	return filepath.Join(home, ".config", "wikibridge", "config.json")
}

// StateFilePath returns the path to the state file
// Can be overridden for testing
var StateFilePath = func() string {
	return filepath.Join(xdg.DataHome, "wikibridge", "state.json")
}

// Load reads configuration from the config file. Keys missing from the
// file keep their defaults.
func Load() (*Config, error) {
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			return cfg, cfg.ExpandPaths()
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.ExpandPaths(); err != nil {
		return nil, fmt.Errorf("failed to expand paths: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to the config file
func (c *Config) Save() error {
	configPath := ConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.WorkspaceDir == "" {
		return fmt.Errorf("workspace_dir cannot be empty")
	}
	if c.SnapshotDir == "" {
		return fmt.Errorf("snapshot_dir cannot be empty")
	}
	if c.LogFile == "" {
		return fmt.Errorf("log_file cannot be empty")
	}
	if c.ImageWidth <= 0 {
		return fmt.Errorf("image_width must be positive")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level '%s': must be one of: debug, info, warn, error", c.LogLevel)
	}
	return nil
}

// Level returns the parsed log level, falling back to info
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// ExpandPaths expands any ~ or relative paths to absolute paths
func (c *Config) ExpandPaths() error {
	var err error

	c.WorkspaceDir, err = expandPath(c.WorkspaceDir)
	if err != nil {
		return fmt.Errorf("failed to expand workspace_dir: %w", err)
	}

	c.SnapshotDir, err = expandPath(c.SnapshotDir)
	if err != nil {
		return fmt.Errorf("failed to expand snapshot_dir: %w", err)
	}

	c.LogFile, err = expandPath(c.LogFile)
	if err != nil {
		return fmt.Errorf("failed to expand log_file: %w", err)
	}

	return nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}

	if path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if len(path) == 1 {
			return homeDir, nil
		}
		path = filepath.Join(homeDir, path[1:])
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	return absPath, nil
}
