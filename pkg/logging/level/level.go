// Package level parses textual log levels shared by the logging modules.
package level

import (
	"log/slog"
	"strings"
)

// Parse converts a level name into a slog.Level. Unknown names fall back to debug.
func Parse(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// ParseAll converts a map of package prefix -> level name.
func ParseAll(levels map[string]string) map[string]slog.Level {
	if len(levels) == 0 {
		return nil
	}

	parsed := make(map[string]slog.Level, len(levels))
	for pkg, lvl := range levels {
		parsed[pkg] = Parse(lvl)
	}
	return parsed
}
