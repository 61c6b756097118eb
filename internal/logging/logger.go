package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a thin wrapper over slog.Logger that adds map-based field helpers.
type Logger struct {
	*slog.Logger
}

// NewLogger returns a text logger at debug level for development and a JSON
// logger at info level otherwise. Output goes to stdout.
func NewLogger(isDev bool) *Logger {
	return NewLoggerWithWriter(os.Stdout, isDev)
}

func NewLoggerWithWriter(w io.Writer, isDev bool) *Logger {
	var handler slog.Handler
	if isDev {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// WithFields returns a child logger carrying the given attributes.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{Logger: l.Logger.With(args...)}
}

// Audit records a security-relevant action.
func (l *Logger) Audit(action string, args ...any) {
	l.Info(action, append([]any{"audit", true}, args...)...)
}
