package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"nanlog/internal/logging"
)

// DefaultPath is where the CLI looks for a config file when --config is unset.
const DefaultPath = ".nan.yaml"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all nan tool configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Replay  ReplayConfig  `yaml:"replay"`
	Archive ArchiveConfig `yaml:"archive"`
	Batch   BatchConfig   `yaml:"batch"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ReplayConfig controls how replay log entries become pseudo log lines.
type ReplayConfig struct {
	// Log entries from this user carry no actor line.
	SystemUser string `yaml:"system_user"`
	// Actor used when an entry has no user field at all.
	DefaultUser string `yaml:"default_user"`
	// Replays do not carry wall-clock timestamps; this stands in for them.
	PlaceholderTimestamp string `yaml:"placeholder_timestamp"`
}

// ArchiveConfig configures the SQLite game archive.
type ArchiveConfig struct {
	Path string `yaml:"path" env:"NAN_ARCHIVE_PATH"`
}

// BatchConfig configures `nan batch`.
type BatchConfig struct {
	Workers   int    `yaml:"workers" env:"NAN_BATCH_WORKERS"`
	OutputDir string `yaml:"output_dir" env:"NAN_BATCH_OUTPUT_DIR"` // empty = next to each input
}

// WatchConfig configures --watch.
type WatchConfig struct {
	Debounce string `yaml:"debounce" env:"NAN_WATCH_DEBOUNCE"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Replay: ReplayConfig{
			SystemUser:           "__system__",
			DefaultUser:          "Unknown",
			PlaceholderTimestamp: "[00:00:00]",
		},
		Archive: ArchiveConfig{
			Path: "nan-archive.db",
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Watch: WatchConfig{
			Debounce: "300ms",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			logging.BootDebug("no config at %s, using defaults", path)
			if err := cfg.applyEnvOverrides(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// YAML renders the configuration.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// applyEnvOverrides applies NAN_* environment variables on top of the
// file values. Unset or empty variables leave the field alone.
func (c *Config) applyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks the configuration for values the tools cannot run with.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalid, err)
	}
	switch c.Logging.Format {
	case "", "console", "text", "json":
	default:
		return fmt.Errorf("%w: logging.format must be console or json, got %q", ErrInvalid, c.Logging.Format)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("%w: batch.workers must be >= 1", ErrInvalid)
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("%w: watch.debounce: %v", ErrInvalid, err)
	}
	if c.Replay.PlaceholderTimestamp == "" || c.Replay.PlaceholderTimestamp[0] != '[' {
		// The tokenizer only recognizes action triplets whose middle line starts with "[".
		return fmt.Errorf("%w: replay.placeholder_timestamp must start with '['", ErrInvalid)
	}
	return nil
}

// GetWatchDebounce returns the watch debounce as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 300 * time.Millisecond
	}
	return d
}
