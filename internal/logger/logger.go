// Package logger provides the process-wide structured logger.
//
// It is a thin wrapper over log/slog with a runtime-adjustable level and
// text/json output formats. All packages log through the package-level
// functions so that output destination and verbosity are controlled in one
// place by the configuration.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config holds logger configuration.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

var (
	mu      sync.RWMutex
	level   = new(slog.LevelVar)
	output  io.Writer = os.Stdout
	format            = "text"
	slogger           = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
)

// Init initializes the logger with the given configuration.
// Output can be "stdout", "stderr", or a file path.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(cfg.Output) {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
		}
		output = f
	}

	if cfg.Level != "" {
		setLevelLocked(cfg.Level)
	}
	if cfg.Format != "" {
		f := strings.ToLower(cfg.Format)
		if f == "text" || f == "json" {
			format = f
		}
	}

	rebuildLocked()
	return nil
}

// InitWithWriter initializes the logger with a custom io.Writer.
// This is primarily useful for testing.
func InitWithWriter(w io.Writer, lvl, fmt string) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	if lvl != "" {
		setLevelLocked(lvl)
	}
	if fmt == "text" || fmt == "json" {
		format = fmt
	}
	rebuildLocked()
}

// SetLevel sets the minimum log level. Invalid levels are ignored.
func SetLevel(lvl string) {
	mu.Lock()
	defer mu.Unlock()
	setLevelLocked(lvl)
}

func setLevelLocked(lvl string) {
	switch strings.ToUpper(lvl) {
	case "DEBUG":
		level.Set(slog.LevelDebug)
	case "INFO":
		level.Set(slog.LevelInfo)
	case "WARN":
		level.Set(slog.LevelWarn)
	case "ERROR":
		level.Set(slog.LevelError)
	}
}

func rebuildLocked() {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		slogger = slog.New(slog.NewJSONHandler(output, opts))
	} else {
		slogger = slog.New(slog.NewTextHandler(output, opts))
	}
}

func getLogger() *slog.Logger {
	mu.RLock()
	l := slogger
	mu.RUnlock()
	return l
}

// Debug logs at debug level with structured fields.
// Usage: Debug("message", "key1", value1, "key2", value2)
func Debug(msg string, args ...any) { getLogger().Debug(msg, args...) }

// Info logs at info level with structured fields.
func Info(msg string, args ...any) { getLogger().Info(msg, args...) }

// Warn logs at warn level with structured fields.
func Warn(msg string, args ...any) { getLogger().Warn(msg, args...) }

// Error logs at error level with structured fields.
func Error(msg string, args ...any) { getLogger().Error(msg, args...) }

// With returns a slog.Logger with pre-bound attributes.
func With(args ...any) *slog.Logger { return getLogger().With(args...) }
