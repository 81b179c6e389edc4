// Package logger wraps log/slog behind a small interface so callers log
// without depending on slog directly, and so every call site reports its
// own source location rather than a frame inside this package.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// Logger is the logging surface every package in this module depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

type config struct {
	debug   bool
	format  string
	writer  io.Writer
	quiet   bool
	logFile *os.File
}

// Option configures a Logger built by NewLogger.
type Option func(*config)

// WithDebug lowers the minimum level to Debug and enables source attribution.
func WithDebug() Option { return func(c *config) { c.debug = true } }

// WithFormat selects "text" (the default) or "json" output.
func WithFormat(format string) Option { return func(c *config) { c.format = format } }

// WithWriter sets the primary destination; defaults to os.Stdout.
func WithWriter(w io.Writer) Option { return func(c *config) { c.writer = w } }

// WithQuiet suppresses the primary writer when a log file is also set,
// so output goes only to the file.
func WithQuiet() Option { return func(c *config) { c.quiet = true } }

// WithLogFile adds a second destination; combined with the primary
// writer via slog-multi unless WithQuiet is also set.
func WithLogFile(f *os.File) Option { return func(c *config) { c.logFile = f } }

type slogLogger struct {
	h slog.Handler
}

// NewLogger builds a Logger from opts. With no options it logs text at
// Info level and above to os.Stdout.
func NewLogger(opts ...Option) Logger {
	cfg := &config{format: "text", writer: os.Stdout}
	for _, opt := range opts {
		opt(cfg)
	}

	level := slog.LevelInfo
	if cfg.debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level, AddSource: cfg.debug}

	var targets []io.Writer
	if cfg.logFile != nil {
		targets = append(targets, cfg.logFile)
		if !cfg.quiet {
			targets = append(targets, cfg.writer)
		}
	} else {
		targets = append(targets, cfg.writer)
	}

	handlers := make([]slog.Handler, 0, len(targets))
	for _, w := range targets {
		handlers = append(handlers, newFormatHandler(w, cfg.format, handlerOpts))
	}

	var h slog.Handler
	if len(handlers) == 1 {
		h = handlers[0]
	} else {
		h = slogmulti.Fanout(handlers...)
	}
	return &slogLogger{h: h}
}

func newFormatHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// sourceSkip accounts for the frames between runtime.Callers and the
// external caller of a direct (non-context) Logger method: Callers
// itself (0), emit (1), the public method e.g. Debug (2), caller (3).
const sourceSkip = 3

func (l *slogLogger) emit(skip int, level slog.Level, msg string, args ...any) {
	ctx := context.Background()
	if !l.h.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(skip, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.h.Handle(ctx, r)
}

func (l *slogLogger) Debug(msg string, args ...any) { l.emit(sourceSkip, slog.LevelDebug, msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.emit(sourceSkip, slog.LevelInfo, msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.emit(sourceSkip, slog.LevelWarn, msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.emit(sourceSkip, slog.LevelError, msg, args...) }

func (l *slogLogger) Debugf(format string, args ...any) {
	l.emit(sourceSkip, slog.LevelDebug, fmt.Sprintf(format, args...))
}
func (l *slogLogger) Infof(format string, args ...any) {
	l.emit(sourceSkip, slog.LevelInfo, fmt.Sprintf(format, args...))
}
func (l *slogLogger) Warnf(format string, args ...any) {
	l.emit(sourceSkip, slog.LevelWarn, fmt.Sprintf(format, args...))
}
func (l *slogLogger) Errorf(format string, args ...any) {
	l.emit(sourceSkip, slog.LevelError, fmt.Sprintf(format, args...))
}

func (l *slogLogger) With(args ...any) Logger {
	h := slog.New(l.h).With(args...).Handler()
	return &slogLogger{h: h}
}

func (l *slogLogger) WithGroup(name string) Logger {
	h := slog.New(l.h).WithGroup(name).Handler()
	return &slogLogger{h: h}
}
