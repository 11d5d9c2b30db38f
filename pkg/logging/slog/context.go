package slog

import (
	"context"
	"log/slog"
)

type pinnedLevelKey struct{}

// PinLevel makes every record logged with ctx (or a context derived from it)
// pass or fail on lvl alone, ignoring per-package overrides.
func PinLevel(ctx context.Context, lvl slog.Level) context.Context {
	return context.WithValue(ctx, pinnedLevelKey{}, lvl)
}

func pinnedLevel(ctx context.Context) (slog.Level, bool) {
	if ctx == nil {
		return 0, false
	}
	lvl, ok := ctx.Value(pinnedLevelKey{}).(slog.Level)
	return lvl, ok
}
