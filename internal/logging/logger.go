// Package logging defines the structured-logging interface used across
// continu and its slog-backed implementation.
//
// Records are rendered as single lines, "[2006-01-02 15:04:05] message k=v",
// to the console and to a log file named after the current date. Work running
// in the background marks its context with FileOnly so it never writes over
// the interactive dashboard.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "uploaded", "name", name, "bytes", n)
type Logger interface {
	// Debug logs diagnostic detail that is hidden unless debug output is on.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}
