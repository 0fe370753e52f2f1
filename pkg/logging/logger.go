// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()

	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL)
//   - Page merge results (added, duplicates, rows)
//   - Stale response discards (epoch mismatch)
//   - Skipped fetches (single-flight)
//
// Info: Normal operation events
//   - Session starts (filter changes)
//   - Successful retries
//   - Dashboard startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Duplicate orders dropped during merge (boundary contract violation)
//   - Page fetch failures (continuation halted)
//   - Retry attempts and exhaustion
//   - Cache errors (fallback to direct fetch)
//
// Error: Error conditions requiring attention
//   - Configuration errors
//   - Metrics server failures
//
// Context Fields:
//   - component: engine component (sync-coordinator, fetch-client, dashboard)
//   - epoch: sync session generation
//   - key: registry key (epoch/page key) or cache key
//   - filters: canonical filter snapshot string
//   - duplicates / added / rows: merge statistics
//   - error_class: fetch error classification (client, server, rate_limit, network)
//   - has_more: continuation eligibility after a merge
