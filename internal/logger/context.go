package logger

import (
	"context"
	"fmt"
	"log/slog"
)

type ctxKey struct{}

var defaultLogger = NewLogger()

// WithLogger attaches l to ctx, for retrieval by FromContext and the
// package-level Debug/Info/Warn/Error helpers below.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the Logger attached to ctx, or a package default
// if none was attached.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return defaultLogger
}

// ctxSkip accounts for the one extra frame a package-level helper below
// adds over a direct Logger method call, so the reported source is
// still the helper's caller rather than this file.
const ctxSkip = sourceSkip + 1

func emitFromContext(ctx context.Context, level slog.Level, msg string, args ...any) {
	if l, ok := FromContext(ctx).(*slogLogger); ok {
		l.emit(ctxSkip, level, msg, args...)
		return
	}
	// A custom Logger implementation: source attribution is its own concern.
	l := FromContext(ctx)
	switch level {
	case slog.LevelDebug:
		l.Debug(msg, args...)
	case slog.LevelWarn:
		l.Warn(msg, args...)
	case slog.LevelError:
		l.Error(msg, args...)
	default:
		l.Info(msg, args...)
	}
}

func Debug(ctx context.Context, msg string, args ...any) { emitFromContext(ctx, slog.LevelDebug, msg, args...) }
func Info(ctx context.Context, msg string, args ...any)  { emitFromContext(ctx, slog.LevelInfo, msg, args...) }
func Warn(ctx context.Context, msg string, args ...any)  { emitFromContext(ctx, slog.LevelWarn, msg, args...) }
func Error(ctx context.Context, msg string, args ...any) { emitFromContext(ctx, slog.LevelError, msg, args...) }

func Debugf(ctx context.Context, format string, args ...any) {
	emitFromContext(ctx, slog.LevelDebug, fmt.Sprintf(format, args...))
}
func Infof(ctx context.Context, format string, args ...any) {
	emitFromContext(ctx, slog.LevelInfo, fmt.Sprintf(format, args...))
}
func Warnf(ctx context.Context, format string, args ...any) {
	emitFromContext(ctx, slog.LevelWarn, fmt.Sprintf(format, args...))
}
func Errorf(ctx context.Context, format string, args ...any) {
	emitFromContext(ctx, slog.LevelError, fmt.Sprintf(format, args...))
}
