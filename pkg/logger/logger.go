package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// New returns a production-friendly structured logger.
// level comes from LOG_LEVEL; an empty or unknown value falls back to
// debug for local/dev environments and info otherwise.
func New(appEnv, level string) *slog.Logger {
	lvl, ok := parseLevel(level)
	if !ok {
		lvl = slog.LevelInfo
		if appEnv == "local" || appEnv == "dev" {
			lvl = slog.LevelDebug
		}
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
