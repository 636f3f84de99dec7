package config

import "nanlog/internal/logging"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level,omitempty" env:"NAN_LOG_LEVEL"`    // debug, info, warn, error
	Format string `yaml:"format" json:"format,omitempty" env:"NAN_LOG_FORMAT"` // json, console
	File   string `yaml:"file" json:"file,omitempty" env:"NAN_LOG_FILE"`       // empty = stderr
}

// Options converts the section into logging package options.
func (c LoggingConfig) Options() logging.Options {
	return logging.Options{Level: c.Level, Format: c.Format, File: c.File}
}
