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
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Component names used in the "component" field.
const (
	ComponentClient   = "satcat-client"
	ComponentEndpoint = "endpoint-selector"
	ComponentLoader   = "loader"
	ComponentOrigin   = "origin-server"
	ComponentCatalog  = "catalog-store"
	ComponentUpstream = "upstream"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Service is attached to every entry as "service" when set.
	Service string

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

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(string(cfg.Level)))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger
	return logger
}

// ParseLevel converts a level name to a zerolog.Level. Unknown names yield info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
//   - Cache hits and page loads
//   - Origin request start/finish with request_id
//   - Caller cancellations (never logged above debug)
//
// Info: Normal operation events
//   - Re-dispatch to the secondary origin
//   - Origin cache refreshes
//   - Incremental load start/complete
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Origin request failures (timeout, remote, transport)
//   - Failover to the secondary origin (logged once)
//   - Upstream retry attempts
//   - Partial loads
//
// Error: Error conditions requiring attention
//   - Upstream feed unavailable after retries
//   - Catalog store failures
//   - Configuration errors
//
// Context Fields:
//   - component: one of the Component* constants
//   - origin: primary or secondary
//   - request_id: X-Request-ID sent with the origin call
//   - group, limit, offset: page coordinates
//   - status_code: HTTP status code
//   - error_class: cancelled, timeout, remote, transport, not_found
//   - duration: request or load duration
