// Package logging provides structured logging with secret redaction for
// the wallet and mapping servers.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger with the level helpers and secret
// redaction the command handlers rely on.
type Logger struct {
	base  zerolog.Logger
	debug bool
}

// New creates a logger writing to stderr, colorized unless noColor is set.
func New(debug, noColor bool) *Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339, NoColor: noColor}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	base := zerolog.New(writer).With().Timestamp().Logger().Level(level)
	return &Logger{base: base, debug: debug}
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.base.Info().Msgf(format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.base.Warn().Msgf(format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.base.Error().Msgf(format, args...)
}

// Debug logs a debug message if debug mode is enabled.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.base.Debug().Msgf(format, args...)
}

// With returns a child logger carrying a structured field, e.g. for
// attaching a server name or portfolio to every subsequent line.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{base: l.base.With().Str(key, value).Logger(), debug: l.debug}
}

// Secret represents a value that must never reach a log line in the
// clear. Its String/GoString always render as redacted, so passing a
// Secret into a format string (even accidentally) never leaks it.
type Secret string

// String implements fmt.Stringer, always returning a redacted value.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret) GoString() string { return "[REDACTED]" }

// Redact replaces any occurrence of a known secret value in s with
// "[REDACTED]". Used when a log line must echo back request context that
// might itself contain a secret (e.g. a raw command argument).
func Redact(s string, secrets []string) string {
	result := s
	for _, secret := range secrets {
		if secret != "" && len(secret) > 3 {
			result = strings.ReplaceAll(result, secret, "[REDACTED]")
		}
	}
	return result
}
