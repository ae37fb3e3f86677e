// Package logging builds the zap loggers used by the skills CLI.
// Every subsystem logs through a named child logger so output can be
// filtered by category (build, lint, board, ...).
package logging

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // CLI startup, config loading
	CategoryLint       Category = "lint"       // Skill document validation
	CategoryWatch      Category = "watch"      // File watching for lint --watch
	CategoryBuild      Category = "build"      // Archive packaging
	CategoryPublish    Category = "publish"    // S3 uploads
	CategoryServe      Category = "serve"      // Catalog HTTP server
	CategoryBoard      Category = "board"      // Agile board setup wizard
	CategoryLintSetup  Category = "lint_setup" // Pre-commit / linter installation
	CategorySharePoint Category = "sharepoint" // Microsoft Graph access
	CategoryConvert    Category = "convert"    // Document conversion
	CategoryTactile    Category = "tactile"    // External command execution
)

// Options controls logger construction.
type Options struct {
	// Verbose forces debug level regardless of Level.
	Verbose bool
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Format is "json" (default) or "console".
	Format string
	// OutputPaths defaults to stderr so command output stays clean.
	OutputPaths []string
}

// New builds a zap logger from options.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(opts.Format) {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console", "text":
		cfg = zap.NewDevelopmentConfig()
		cfg.Development = false
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if len(opts.OutputPaths) > 0 {
		cfg.OutputPaths = opts.OutputPaths
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// ParseLevel maps a config string to a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Named returns the category logger. A nil parent yields a no-op logger so
// packages can be used without wiring logging.
func Named(parent *zap.Logger, category Category) *zap.Logger {
	if parent == nil {
		return zap.NewNop()
	}
	return parent.Named(string(category))
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Timer measures an operation and logs its duration at debug level.
type Timer struct {
	logger    *zap.Logger
	operation string
	start     time.Time
}

// StartTimer begins timing an operation.
func StartTimer(l *zap.Logger, operation string) *Timer {
	return &Timer{logger: OrNop(l), operation: operation, start: time.Now()}
}

// Stop logs the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	t.logger.Debug("operation finished",
		zap.String("operation", t.operation),
		zap.Duration("elapsed", elapsed))
	return elapsed
}

// StopWithThreshold logs at warn level when elapsed exceeds threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		t.logger.Warn("slow operation",
			zap.String("operation", t.operation),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", threshold))
		return elapsed
	}
	t.logger.Debug("operation finished",
		zap.String("operation", t.operation),
		zap.Duration("elapsed", elapsed))
	return elapsed
}
