package logging

import (
	"context"
	"log/slog"
	"os"
)

type ctxKey struct{}

var key = ctxKey{}

// Init sets up the process-wide default logger. Level comes from
// PST_LOG_LEVEL, format ("json" or "text") from PST_LOG_FORMAT.
func Init() *slog.Logger {
	logLevel := os.Getenv("PST_LOG_LEVEL")
	var level slog.Leveler

	switch logLevel {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if os.Getenv("PST_LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With(slog.String("app", "pst-analyzer"))
	slog.SetDefault(logger)
	return logger
}

// Inject stores a logger in ctx
func Inject(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, key, l)
}

// From returns the request scoped logger if present, else the global default
func From(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if l, ok := ctx.Value(key).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
