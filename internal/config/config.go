package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full kvmon configuration. Defaults apply for anything
// the file leaves out.
type Config struct {
	Target   TargetConfig  `yaml:"target"`
	Listen   ListenConfig  `yaml:"listen"`
	Capture  CaptureConfig `yaml:"capture"`
	Strict   bool          `yaml:"strict"`
	LogLevel string        `yaml:"log_level"`

	path string
}

// TargetConfig describes the server whose command stream is monitored.
type TargetConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	Database int    `yaml:"database"`
}

// ListenConfig describes the local dashboard listener.
type ListenConfig struct {
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

// CaptureConfig controls sqlite persistence of the stream.
type CaptureConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// PruneAfter is a duration string ("24h", "30m"). Captured events
	// older than this are dropped on startup. Empty disables pruning.
	PruneAfter string `yaml:"prune_after"`
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "kvmon.yaml"
	}
	return filepath.Join(homeDir, ".config", "kvmon", "config.yaml")
}

// Defaults returns a config that works against a local server.
func Defaults() *Config {
	cfg := &Config{}
	cfg.Target.Addr = "127.0.0.1:6379"
	cfg.Listen.Port = 8765
	cfg.Capture.Enabled = true
	cfg.Capture.PruneAfter = "168h"
	cfg.LogLevel = "info"
	if homeDir, err := os.UserHomeDir(); err == nil {
		cfg.Capture.Path = filepath.Join(homeDir, ".local", "share", "kvmon", "kvmon.db")
	} else {
		cfg.Capture.Path = "kvmon.db"
	}
	return cfg
}

// Load reads the config file at path (DefaultPath when empty), applies
// it over the defaults and validates the result. A missing file is not
// an error. Load never writes: commands that serve call EnsureToken
// when they need a listen token.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Defaults()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnsureToken generates and persists a listen token when none is
// configured, so reconnecting clients keep working across restarts.
// Read-only commands never call it and never touch the config file.
func (c *Config) EnsureToken() error {
	if c.Listen.Token != "" {
		return nil
	}
	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	c.Listen.Token = token
	if err := c.Save(); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// Validate checks the fields that would otherwise fail deep inside a
// run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Target.Addr) == "" {
		return fmt.Errorf("target.addr is required")
	}
	if c.Target.Database < 0 {
		return fmt.Errorf("target.database %d must not be negative", c.Target.Database)
	}
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return fmt.Errorf("invalid listen.port %d: must be between 1 and 65535", c.Listen.Port)
	}
	if c.Capture.Enabled && strings.TrimSpace(c.Capture.Path) == "" {
		return fmt.Errorf("capture.path is required when capture is enabled")
	}
	if _, err := c.PruneAge(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// PruneAge returns the capture prune cutoff, zero when pruning is off.
func (c *Config) PruneAge() (time.Duration, error) {
	if strings.TrimSpace(c.Capture.PruneAfter) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Capture.PruneAfter)
	if err != nil {
		return 0, fmt.Errorf("invalid capture.prune_after %q: %w", c.Capture.PruneAfter, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("capture.prune_after must not be negative")
	}
	return d, nil
}

// Save writes the config back to the file it was loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		return nil
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o600)
}

func generateToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
