// Package logger builds the structured loggers shared by every component.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module provides *slog.Logger and *zap.Logger.
var Module = fx.Module("logger",
	fx.Provide(NewLogger),
	fx.Provide(NewZapLogger),
)

// NewLogger creates the process logger. The level comes from LOG_LEVEL
// (debug, info, warn, error; default info). GO_ENV=production switches to
// JSON output. Logs go to stderr so command output on stdout stays clean.
func NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(os.Getenv("LOG_LEVEL"))}

	var handler slog.Handler
	if isProduction() {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// NewZapLogger creates a zap logger at the same level as NewLogger.
func NewZapLogger() (*zap.Logger, error) {
	var cfg zap.Config
	if isProduction() {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(toZapLevel(parseLevel(os.Getenv("LOG_LEVEL"))))
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Scope returns the attribute that tags log lines with their component.
func Scope(name string) slog.Attr {
	return slog.String("scope", name)
}

// Error returns an attribute holding err.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

func isProduction() bool {
	return strings.EqualFold(os.Getenv("GO_ENV"), "production")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func toZapLevel(l slog.Level) zapcore.Level {
	switch {
	case l <= slog.LevelDebug:
		return zapcore.DebugLevel
	case l >= slog.LevelError:
		return zapcore.ErrorLevel
	case l >= slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
