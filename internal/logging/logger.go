// Package logging provides categorized structured logging for the nan tools.
// Every category shares one zap core; the category travels as a field so a
// single log stream can be filtered per pipeline stage. Until Initialize is
// called all loggers are no-ops, which keeps library code and tests silent.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/pipeline stage
type Category string

const (
	CategoryBoot     Category = "boot"     // CLI startup, config
	CategoryReplay   Category = "replay"   // Replay loading and history fold
	CategoryPatch    Category = "patch"    // Structural diff application
	CategoryTokenize Category = "tokenize" // Raw log line scanning
	CategoryAssemble Category = "assemble" // NAN assembly from events
	CategoryParse    Category = "parse"    // NAN line parsing
	CategoryRender   Category = "render"   // Board reconstruction
	CategoryArchive  Category = "archive"  // SQLite archive
	CategoryWatch    Category = "watch"    // File watching
	CategoryCheck    Category = "check"    // Regression comparison
	CategoryBatch    Category = "batch"    // Batch conversion
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	File   string // empty = stderr
}

// Logger is a category-bound printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	loggers = make(map[Category]*Logger)
)

// Initialize builds the shared zap core from options.
func Initialize(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	switch strings.ToLower(opts.Format) {
	case "", "console", "text":
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	case "json":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if opts.File != "" {
		cfg.OutputPaths = []string{opts.File}
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	SetBase(l)
	return l, nil
}

// ParseLevel maps a config level name onto a zap level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
}

// SetBase swaps the shared core, dropping cached category loggers.
func SetBase(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	base = l
	loggers = make(map[Category]*Logger)
}

// Base returns the shared zap logger.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Sync flushes the shared core.
func Sync() error {
	return Base().Sync()
}

// Get returns (or creates) the logger for a category.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{
		category: category,
		sugar:    base.With(zap.String("category", string(category))).Sugar(),
	}
	loggers[category] = l
	return l
}

// With returns a child logger carrying extra key/value fields.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Debug(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...any) { l.sugar.Errorf(format, args...) }

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

func Boot(format string, args ...any)          { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...any)     { Get(CategoryBoot).Debug(format, args...) }
func Replay(format string, args ...any)        { Get(CategoryReplay).Info(format, args...) }
func ReplayDebug(format string, args ...any)   { Get(CategoryReplay).Debug(format, args...) }
func PatchDebug(format string, args ...any)    { Get(CategoryPatch).Debug(format, args...) }
func TokenizeDebug(format string, args ...any) { Get(CategoryTokenize).Debug(format, args...) }
func AssembleDebug(format string, args ...any) { Get(CategoryAssemble).Debug(format, args...) }
func ParseWarn(format string, args ...any)     { Get(CategoryParse).Warn(format, args...) }
func RenderDebug(format string, args ...any)   { Get(CategoryRender).Debug(format, args...) }
func Archive(format string, args ...any)       { Get(CategoryArchive).Info(format, args...) }
func ArchiveDebug(format string, args ...any)  { Get(CategoryArchive).Debug(format, args...) }
func Watch(format string, args ...any)         { Get(CategoryWatch).Info(format, args...) }
func WatchDebug(format string, args ...any)    { Get(CategoryWatch).Debug(format, args...) }

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}
