// Package log provides a thin per-package wrapper around zerolog.
//
// Components take a *log.Logger at construction time instead of reaching
// for a package global, so tests can inject a logger that writes to a
// buffer.
package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Out is the log output writer. Tests may swap this before calling New.
var Out io.Writer = os.Stderr

// Mode is "dev" for console-formatted output or "prod" for JSON.
var Mode = "dev"

// Logger wraps a zerolog.Logger scoped to a package name.
type Logger struct {
	zl zerolog.Logger
}

// New returns a new Logger tagged with pkg.
func New(pkg string) *Logger {
	var w io.Writer = Out
	if Mode == "dev" {
		w = zerolog.ConsoleWriter{Out: Out, TimeFormat: "15:04:05"}
	}
	zl := zerolog.New(w).With().Timestamp().Str("pkg", pkg).Logger()
	return &Logger{zl: zl}
}

// Nop returns a Logger that discards everything, for tests that don't care.
func Nop() *Logger {
	nop := zerolog.Nop()
	return &Logger{zl: nop}
}

// With returns a child logger with tenant/scope context attached. Call sites
// use this to annotate every log line within one tenant-scoped operation,
// mirroring how the teacher attaches "tenant"/"env" fields to a span.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

// Debug starts a debug-level event.
func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }

// Info starts an info-level event.
func (l *Logger) Info() *zerolog.Event { return l.zl.Info() }

// Warn starts a warn-level event.
func (l *Logger) Warn() *zerolog.Event { return l.zl.Warn() }

// Error starts an error-level event.
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }
