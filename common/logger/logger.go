package logger

import (
	"context"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Logger wraps slog.Logger with contextual fields
type Logger struct {
	*slog.Logger
}

// New creates a new logger
func New(level, format string) *Logger {
	var handler slog.Handler

	logLevel := parseLevel(level)

	switch format {
	case "json":
		opts := &slog.HandlerOptions{
			Level: logLevel,
		}
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		// Use tint for beautiful colored console output
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.TimeOnly, // HH:MM:SS
			AddSource:  false,          // Don't show source file by default
		})
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with trace_id from context
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if traceID := ctx.Value("trace_id"); traceID != nil {
		return &Logger{
			Logger: l.With("trace_id", traceID),
		}
	}
	return l
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{
		Logger: l.With(args...),
	}
}

// WithTransaction adds transaction_id to logger context
func (l *Logger) WithTransaction(transactionID string) *Logger {
	return &Logger{
		Logger: l.With("transaction_id", transactionID),
	}
}

// WithOp adds the op index and canonical op name to logger context
func (l *Logger) WithOp(index int, canonicalOp string) *Logger {
	return &Logger{
		Logger: l.With("op_index", index, "op", canonicalOp),
	}
}

// Error logs an error with a truncated stack trace
func (l *Logger) Error(msg string, args ...any) {
	args = append(args, "stack", truncatedStack())
	l.Logger.Error(msg, args...)
}

// ErrorContext logs an error with context and a truncated stack trace
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	args = append(args, "stack", truncatedStack())
	l.Logger.ErrorContext(ctx, msg, args...)
}

// truncatedStack keeps only the first six lines of the stack, matching the
// shape expected in OpResult.error.stack.
func truncatedStack() string {
	stack := string(debug.Stack())
	lines := strings.SplitN(stack, "\n", 7)
	if len(lines) > 6 {
		lines = lines[:6]
	}
	return strings.Join(lines, "\n")
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}