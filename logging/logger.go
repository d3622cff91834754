package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds logging configuration
type Config struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"json"`
	Output string `env:"LOG_OUTPUT" default:"stdout"`
}

// DefaultConfig returns the default logging configuration
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

// Logger wraps slog.Logger with additional context methods
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new structured logger from configuration
func NewLogger(cfg *Config) *Logger {
	var writer io.Writer = os.Stdout

	switch strings.ToLower(cfg.Output) {
	case "stderr":
		writer = os.Stderr
	case "stdout", "":
		writer = os.Stdout
	default:
		// Default to stdout for unrecognized output targets
		writer = os.Stdout
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize timestamp format
			if a.Key == slog.TimeKey {
				return slog.String("timestamp", a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text", "console":
		handler = slog.NewTextHandler(writer, handlerOpts)
	case "json", "":
		handler = slog.NewJSONHandler(writer, handlerOpts)
	default:
		handler = slog.NewJSONHandler(writer, handlerOpts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithComponent adds component context to logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", component),
	}
}

// Database logs database-specific events
func (l *Logger) Database(msg string, args ...any) {
	finalArgs := []any{"subsystem", "database"}
	finalArgs = append(finalArgs, args...)
	l.Logger.Debug(msg, finalArgs...)
}

// Engine logs audit-engine-specific events
func (l *Logger) Engine(msg string, args ...any) {
	finalArgs := []any{"subsystem", "engine"}
	finalArgs = append(finalArgs, args...)
	l.Logger.Info(msg, finalArgs...)
}

// Reconcile logs reconciliation events
func (l *Logger) Reconcile(msg string, args ...any) {
	finalArgs := []any{"subsystem", "reconcile"}
	finalArgs = append(finalArgs, args...)
	l.Logger.Debug(msg, finalArgs...)
}

var defaultLogger *Logger

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}

// Default returns the default logger instance
func Default() *Logger {
	if defaultLogger == nil {
		defaultLogger = NewLogger(DefaultConfig())
	}
	return defaultLogger
}

// Convenience functions using default logger
func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

func Debug(msg string, args ...any) {
	Default().Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	Default().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Default().Error(msg, args...)
}
