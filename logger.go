package socket

import "log/slog"

// Logger is the structured logger used by servers, connections and
// monitoring. *slog.Logger satisfies it.
type Logger interface {
	// Debug logs per-message detail such as read errors and dropped events.
	Debug(msg string, args ...any)
	// Info logs lifecycle changes: server start, connection open and close.
	Info(msg string, args ...any)
	// Warn logs recoverable problems.
	Warn(msg string, args ...any)
	// Error logs failures that end a Serve loop.
	Error(msg string, args ...any)
}

func defaultLogger() Logger {
	return slog.Default()
}
