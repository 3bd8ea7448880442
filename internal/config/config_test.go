package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gerunddev/wikibridge/internal/convert"
)

func useConfigPath(t *testing.T, path string) {
	t.Helper()
	original := ConfigPath
	ConfigPath = func() string {
		return path
	}
	t.Cleanup(func() {
		ConfigPath = original
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.WorkspaceDir == "" {
		t.Error("Expected WorkspaceDir to be set")
	}
	if cfg.SnapshotDir == "" {
		t.Error("Expected SnapshotDir to be set")
	}
	if cfg.LogFile == "" {
		t.Error("Expected LogFile to be set")
	}
	if cfg.ImageWidth != convert.DefaultImageWidth {
		t.Errorf("Expected ImageWidth to be %d, got %d", convert.DefaultImageWidth, cfg.ImageWidth)
	}
	if !cfg.AllowFullFallback {
		t.Error("Expected AllowFullFallback to default to true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			WorkspaceDir: "/path/to/wiki",
			SnapshotDir:  "/path/to/cache",
			LogFile:      "/tmp/test.log",
			LogLevel:     "info",
			ImageWidth:   600,
		}
	}

	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty workspace_dir",
			modify:  func(c *Config) { c.WorkspaceDir = "" },
			wantErr: true,
		},
		{
			name:    "empty snapshot_dir",
			modify:  func(c *Config) { c.SnapshotDir = "" },
			wantErr: true,
		},
		{
			name:    "empty log_file",
			modify:  func(c *Config) { c.LogFile = "" },
			wantErr: true,
		},
		{
			name:    "zero image width",
			modify:  func(c *Config) { c.ImageWidth = 0 },
			wantErr: true,
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.LogLevel = "chatty" },
			wantErr: true,
		},
		{
			name:    "uppercase log level",
			modify:  func(c *Config) { c.LogLevel = "DEBUG" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	testConfigPath := filepath.Join(tmpDir, "config.json")
	useConfigPath(t, testConfigPath)

	testCfg := &Config{
		WorkspaceDir:      filepath.Join(tmpDir, "wiki"),
		SnapshotDir:       filepath.Join(tmpDir, "snapshots"),
		LogFile:           filepath.Join(tmpDir, "wikibridge.log"),
		LogLevel:          "debug",
		ImageWidth:        800,
		AllowFullFallback: false,
	}

	if err := testCfg.Save(); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(testConfigPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}

	loadedCfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if *loadedCfg != *testCfg {
		t.Errorf("Loaded config mismatch: got %+v, want %+v", loadedCfg, testCfg)
	}
	if loadedCfg.Level() != log.DebugLevel {
		t.Errorf("Expected debug level, got %v", loadedCfg.Level())
	}
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	testConfigPath := filepath.Join(tmpDir, "config.json")
	useConfigPath(t, testConfigPath)

	if err := os.WriteFile(testConfigPath, []byte(`{"workspace_dir": "/srv/wiki"}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.WorkspaceDir != "/srv/wiki" {
		t.Errorf("Expected workspace_dir from file, got %s", cfg.WorkspaceDir)
	}
	if cfg.ImageWidth != DefaultImageWidth {
		t.Errorf("Expected default image width, got %d", cfg.ImageWidth)
	}
	if !cfg.AllowFullFallback {
		t.Error("Expected default allow_full_fallback")
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "malformed json", content: `{"workspace_dir": `},
		{name: "bad level", content: `{"log_level": "loud"}`},
		{name: "negative width", content: `{"image_width": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			useConfigPath(t, path)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(); err == nil {
				t.Error("Expected Load() to fail")
			}
		})
	}
}

func TestLoadNonExistentConfig(t *testing.T) {
	useConfigPath(t, filepath.Join(t.TempDir(), "nonexistent.json"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() should not error on missing file: %v", err)
	}
	if cfg.ImageWidth != DefaultImageWidth {
		t.Errorf("Expected default image width, got %d", cfg.ImageWidth)
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, _ := os.UserHomeDir()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "tilde expansion", input: "~/test", expected: filepath.Join(homeDir, "test")},
		{name: "tilde only", input: "~", expected: homeDir},
		{name: "absolute path", input: "/tmp/test", expected: "/tmp/test"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := expandPath(tt.input)
			if err != nil {
				t.Fatalf("expandPath() error = %v", err)
			}
			if result != tt.expected {
				t.Errorf("expandPath(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestConfigPathsExpanded(t *testing.T) {
	useConfigPath(t, filepath.Join(t.TempDir(), "config.json"))

	testCfg := &Config{
		WorkspaceDir: "~/wiki",
		SnapshotDir:  "~/.cache/wikibridge",
		LogFile:      "~/wikibridge.log",
		LogLevel:     "info",
		ImageWidth:   600,
	}

	if err := testCfg.Save(); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loadedCfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loadedCfg.WorkspaceDir[0] == '~' {
		t.Error("WorkspaceDir was not expanded")
	}
	if loadedCfg.SnapshotDir[0] == '~' {
		t.Error("SnapshotDir was not expanded")
	}
	if loadedCfg.LogFile[0] == '~' {
		t.Error("LogFile was not expanded")
	}
}
