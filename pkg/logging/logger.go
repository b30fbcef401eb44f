// Package logging is the JSON slog setup shared by the API and the worker.
// Every record carries the service identity plus whatever request scope
// the HTTP middleware stored in the context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

var slogLevels = map[LogLevel]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

// ParseLevel reads a configured level name. Unknown names mean info.
func ParseLevel(s string) LogLevel {
	level := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := slogLevels[level]; ok {
		return level
	}
	return LevelInfo
}

type Config struct {
	Level       LogLevel
	ServiceName string
	Environment string
	Version     string
	Output      io.Writer
	AddSource   bool
}

func DefaultConfig(serviceName string) *Config {
	return &Config{
		Level:       LevelInfo,
		ServiceName: serviceName,
		Environment: "local",
		Version:     "dev",
		Output:      os.Stdout,
	}
}

// Logger is a slog.Logger whose derived loggers keep the helper methods
type Logger struct {
	*slog.Logger
}

func New(config *Config) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	level, ok := slogLevels[config.Level]
	if !ok {
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:       level,
		AddSource:   config.AddSource,
		ReplaceAttr: utcTimestamps,
	})
	return &Logger{Logger: slog.New(handler).With(
		"service", config.ServiceName,
		"environment", config.Environment,
		"version", config.Version,
	)}
}

// NewNop discards everything
func NewNop() *Logger {
	return New(&Config{ServiceName: "nop", Output: io.Discard, Level: LevelError})
}

func utcTimestamps(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
	}
	return a
}

// With returns a derived *Logger rather than a bare *slog.Logger
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithContext adds the request scope stored by the HTTP middleware
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if attrs := scopeAttrs(ctx); len(attrs) > 0 {
		return l.With(attrs...)
	}
	return l
}

func (l *Logger) WithFields(fields map[string]any) *Logger {
	return l.With(flatten(fields)...)
}

func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.With("error", err.Error())
}

func (l *Logger) WithComponent(component string) *Logger {
	return l.With("component", component)
}

func (l *Logger) WithBooking(bookingID, warehouseID string) *Logger {
	return l.With("bookingId", bookingID, "warehouseId", warehouseID)
}

// SetDefault routes package level slog calls, including library logs, here
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

func flatten(fields map[string]any, prefix ...any) []any {
	args := append(make([]any, 0, len(prefix)+2*len(fields)), prefix...)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
