// Package diag provides the compiler's diagnostic sink: structured
// logging, the three-tier error taxonomy of an internal/fatal/recoverable
// split, and the per-warning-kind configurable severity described in
// spec.md §7.
package diag

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// VerboseMode mirrors the teacher's package-level debug gate: when false,
// Debug is a no-op.
var VerboseMode = false

// SetVerboseMode enables or disables debug-level log output.
func SetVerboseMode(verbose bool) {
	VerboseMode = verbose
}

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: false}).With().Timestamp().Logger()

// SetOutput redirects the underlying structured logger, primarily for
// tests that want to capture output.
func SetOutput(w io.Writer) {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).With().Timestamp().Logger()
}

// Info logs an informational message with optional structured fields.
func Info(message string, fields map[string]any) {
	ev := logger.Info()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(message)
}

// Warn logs a warning message with optional structured fields.
func Warn(message string, fields map[string]any) {
	ev := logger.Warn()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(message)
}

// Error logs an error message with optional structured fields.
func Error(message string, fields map[string]any) {
	ev := logger.Error()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(message)
}

// Debug logs a debug message, only when VerboseMode is enabled.
func Debug(message string, fields map[string]any) {
	if !VerboseMode {
		return
	}
	ev := logger.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(message)
}
