// Package logging is the structured logger every GophAuth component takes
// through its constructor, plus the slog backend and LogError, which
// flattens coded errors into attributes.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// Args are alternating keys and values:
//
//	log.Info(ctx, "user signed up", "userId", id)
type Logger interface {
	// Debug logs diagnostic detail that is off in production.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger carrying args on every record, e.g.
	// With("module", "auth_service").
	With(args ...any) Logger
}
