// Package config loads and saves the muxbar user configuration
// (~/.muxbar/config.toml).
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	dark "github.com/thiagokokada/dark-mode-go"

	"github.com/leoustc/muxbar/internal/platform"
)

// FileName is the TOML config file for user preferences.
const FileName = "config.toml"

// Config represents user-facing configuration in TOML format.
type Config struct {
	// Backend selects the multiplexer: "tmux" (default) or "screen"
	Backend string `toml:"backend"`

	// Shell is the shell sessions exec into: "bash" (default, login
	// shell) or "sh"
	Shell string `toml:"shell"`

	// PreloadEnvFile is sourced before a session's initial command.
	// Supports a leading ~ and workspace-relative paths.
	PreloadEnvFile string `toml:"preload_env_file"`

	// Tools are the commands shown as launchable groups in the sidebar.
	// Each derives one group from its sanitized basename.
	Tools []string `toml:"tools"`

	// TmuxMouse enables tmux mouse mode on new sessions (default: false)
	TmuxMouse bool `toml:"tmux_mouse"`

	// AutoCloseFrontends closes tracked terminal frontends when their
	// session disappears from the backend (default: false)
	AutoCloseFrontends bool `toml:"auto_close_frontends"`

	// Theme sets the color scheme: "dark" (default), "light", or "system"
	Theme string `toml:"theme"`

	// Sandbox runs tool commands inside a managed Docker container.
	Sandbox SandboxSettings `toml:"sandbox"`

	// Logs configures the debug log.
	Logs LogSettings `toml:"logs"`
}

// SandboxSettings defines Docker sandbox configuration.
type SandboxSettings struct {
	// Enabled runs tool session commands inside a container (default: false)
	Enabled bool `toml:"enabled"`

	// Image is the container image (default: "ubuntu:24.04")
	Image string `toml:"image"`
}

// LogSettings defines debug log configuration.
type LogSettings struct {
	// Level sets the minimum log level: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `toml:"level"`

	// Format sets the log format: "json" (default) or "text"
	Format string `toml:"format"`

	// MaxSizeMB is the max size in MB before rotation (default: 10)
	MaxSizeMB int `toml:"max_size_mb"`

	// Backups is the number of rotated files to keep (default: 5)
	Backups int `toml:"backups"`

	// RetentionDays is days to keep rotated files (default: 10)
	RetentionDays int `toml:"retention_days"`

	// Debug enables file logging even without MUXBAR_DEBUG (default: false)
	Debug bool `toml:"debug"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Backend: "tmux",
		Shell:   "bash",
		Tools:   []string{"codex"},
		Theme:   "dark",
		Sandbox: SandboxSettings{Image: "ubuntu:24.04"},
	}
}

// Path returns the config file path (~/.muxbar/config.toml).
func Path() string {
	return filepath.Join(platform.DataDir(), FileName)
}

// Load reads the config file, applying defaults for missing values. A
// missing file is not an error: defaults are returned. A malformed file
// returns defaults plus the parse error so the caller can surface it once.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads a config file from an explicit path (used by tests).
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return Default(), fmt.Errorf("%s parse error: %w", FileName, err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills zero values that decoding may have cleared.
func applyDefaults(cfg *Config) {
	switch cfg.Backend {
	case "tmux", "screen":
	default:
		cfg.Backend = "tmux"
	}
	switch cfg.Shell {
	case "bash", "sh":
	default:
		cfg.Shell = "bash"
	}
	switch cfg.Theme {
	case "dark", "light", "system":
	default:
		cfg.Theme = "dark"
	}
	if cfg.Tools == nil {
		cfg.Tools = []string{"codex"}
	}
	if cfg.Sandbox.Image == "" {
		cfg.Sandbox.Image = "ubuntu:24.04"
	}
}

// Save writes the config atomically (temp file + rename) so a crash never
// leaves a truncated config behind.
func Save(cfg *Config) error {
	return SaveTo(cfg, Path())
}

// SaveTo writes the config to an explicit path (used by tests).
func SaveTo(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# muxbar configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

// ResolvedEnvFile expands the preload env file path: leading ~ resolves to
// the home directory, relative paths resolve against workspaceDir.
func (c *Config) ResolvedEnvFile(workspaceDir string) string {
	return platform.ExpandPath(c.PreloadEnvFile, workspaceDir)
}

// ResolveTheme resolves the configured theme to "dark" or "light". Theme
// "system" asks the OS; detection failure falls back to "dark".
func (c *Config) ResolveTheme() string {
	if c.Theme != "system" {
		return c.Theme
	}
	isDark, err := dark.IsDarkMode()
	if err != nil || isDark {
		return "dark"
	}
	return "light"
}
