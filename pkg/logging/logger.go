// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a level name as accepted by --log-level and LOG_LEVEL.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config selects level and format. A nil Output writes to stderr.
type Config struct {
	Level  LogLevel
	Pretty bool
	Output io.Writer
}

// DefaultConfig logs JSON at info level to stderr.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Output: os.Stderr}
}

// Setup replaces the global zerolog logger and returns it. Loggers taken
// from NewLogger afterwards write to cfg.Output.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var w io.Writer = os.Stderr
	if cfg.Output != nil {
		w = cfg.Output
	}
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return log.Logger
}

// parseLevel maps a level name case-insensitively. "warning" is accepted;
// empty and unknown names mean info.
func parseLevel(level LogLevel) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(string(level)))
	if name == "warning" {
		name = "warn"
	}
	switch l, err := zerolog.ParseLevel(name); {
	case err != nil, l == zerolog.NoLevel, l < zerolog.DebugLevel, l > zerolog.ErrorLevel:
		return zerolog.InfoLevel
	default:
		return l
	}
}

// NewLogger returns a sub-logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: request URLs, cache hit/miss, retry backoff, per-file writes
//
// Info: page fetched (rows, offset), build/site/publish summaries,
// server startup
//
// Warn: cache errors (fallback to network), retry attempts
//
// Error: failed requests after retries, aborted builds
//
// Context Fields:
//   - dataset, config, split: dataset identifiers
//   - page, offset, length: pagination position
//   - rows: number of rows returned
//   - status: HTTP status code
//   - error_class: client, rate_limit, server, network
//   - path: file written or uploaded
