// Package logger provides structured logging for proctree.
//
// It wraps log/slog with JSON output by default, automatic redaction
// of sensitive values (ptas_-prefixed API key secrets and
// credential-looking keys), and context-aware request ID propagation.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the application logger interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is the output format (json, text).
	Format string
	// Output is the output writer (defaults to os.Stderr).
	Output io.Writer
	// AddSource adds source file information to log entries.
	AddSource bool
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stderr,
	}
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

func parseLevel(level string) slog.Level {
	if lvl, ok := levelNames[strings.ToLower(level)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// globalLevel backs every handler, so SetLevel takes effect on all
// loggers at once.
var globalLevel = new(slog.LevelVar)

// SetLevel dynamically sets the global log level, e.g. on config
// reload.
func SetLevel(level string) {
	globalLevel.Set(parseLevel(level))
}

// GetLevel returns the current log level as a string.
func GetLevel() string {
	for name, lvl := range levelNames {
		if name != "warning" && lvl == globalLevel.Level() {
			return name
		}
	}
	return "info"
}

// ptLogger routes through slog, carrying the context it was bound to.
type ptLogger struct {
	sl  *slog.Logger
	ctx context.Context
}

// New creates a logger from cfg. Every attribute passes through the
// redaction filter before it is written.
func New(cfg Config) (Logger, error) {
	globalLevel.Set(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     globalLevel,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text", "console":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	return &ptLogger{sl: slog.New(handler), ctx: context.Background()}, nil
}

func (l *ptLogger) log(level slog.Level, msg string, args ...any) {
	l.sl.Log(l.ctx, level, msg, args...)
}

func (l *ptLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }
func (l *ptLogger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args...) }
func (l *ptLogger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args...) }
func (l *ptLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

func (l *ptLogger) With(args ...any) Logger {
	return &ptLogger{sl: l.sl.With(args...), ctx: l.ctx}
}

func (l *ptLogger) WithContext(ctx context.Context) Logger {
	return &ptLogger{sl: l.sl, ctx: ctx}
}

// Slog exposes the underlying *slog.Logger for libraries that take
// one directly (Badger, the storage layer).
func Slog(l Logger) *slog.Logger {
	if pl, ok := l.(*ptLogger); ok {
		return pl.sl
	}
	return slog.Default()
}

var defaultLogger atomic.Pointer[ptLogger]

func init() {
	l, _ := New(DefaultConfig())
	defaultLogger.Store(l.(*ptLogger))
}

// SetDefault sets the default global logger.
func SetDefault(l Logger) {
	if pl, ok := l.(*ptLogger); ok {
		defaultLogger.Store(pl)
	}
}

// Default returns the default global logger.
func Default() Logger {
	return defaultLogger.Load()
}

// Debug logs at debug level using the default logger.
func Debug(msg string, args ...any) { defaultLogger.Load().Debug(msg, args...) }

// Info logs at info level using the default logger.
func Info(msg string, args ...any) { defaultLogger.Load().Info(msg, args...) }

// Warn logs at warn level using the default logger.
func Warn(msg string, args ...any) { defaultLogger.Load().Warn(msg, args...) }

// Error logs at error level using the default logger.
func Error(msg string, args ...any) { defaultLogger.Load().Error(msg, args...) }
