package slog

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

var _ slog.Handler = (*levelFilter)(nil)

type levelRule struct {
	prefix string
	level  slog.Level
}

type ruleSet struct {
	defaultLevel slog.Level
	rules        []levelRule // longest prefix first
	minLevel     slog.Level  // lowest of default and all overrides
}

// levelFilter drops records below the level configured for the package that
// produced them.
type levelFilter struct {
	upstream slog.Handler
	state    *atomic.Pointer[ruleSet]
	cache    *sync.Map // function name -> slog.Level
}

func buildRules(defaultLevel slog.Level, levels map[string]slog.Level) *ruleSet {
	rules := make([]levelRule, 0, len(levels))
	minLevel := defaultLevel

	for prefix, level := range levels {
		rules = append(rules, levelRule{prefix: prefix, level: level})
		minLevel = min(minLevel, level)
	}

	sort.Slice(rules, func(i, j int) bool {
		return len(rules[i].prefix) > len(rules[j].prefix)
	})

	return &ruleSet{
		defaultLevel: defaultLevel,
		rules:        rules,
		minLevel:     minLevel,
	}
}

func newLevelFilter(upstream slog.Handler, defaultLevel slog.Level, levels map[string]slog.Level) *levelFilter {
	f := &levelFilter{
		upstream: upstream,
		state:    &atomic.Pointer[ruleSet]{},
		cache:    &sync.Map{},
	}
	f.state.Store(buildRules(defaultLevel, levels))
	return f
}

// Update atomically swaps the level rules and clears the resolution cache.
// Handlers derived through WithAttrs/WithGroup share the rules and see the update.
func (f *levelFilter) Update(defaultLevel slog.Level, levels map[string]slog.Level) {
	f.state.Store(buildRules(defaultLevel, levels))
	f.cache.Clear()
}

// Enabled has no PC to resolve a package, so it only rejects levels below every rule.
func (f *levelFilter) Enabled(ctx context.Context, level slog.Level) bool {
	if override, ok := pinnedLevel(ctx); ok {
		return level >= override && f.upstream.Enabled(ctx, level)
	}

	return level >= f.state.Load().minLevel && f.upstream.Enabled(ctx, level)
}

func (f *levelFilter) Handle(ctx context.Context, record slog.Record) error {
	threshold, ok := pinnedLevel(ctx)
	if !ok {
		threshold = f.resolveLevel(record.PC)
	}

	if record.Level < threshold {
		return nil
	}

	return f.upstream.Handle(ctx, record) //nolint:wrapcheck
}

func (f *levelFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelFilter{upstream: f.upstream.WithAttrs(attrs), state: f.state, cache: f.cache}
}

func (f *levelFilter) WithGroup(name string) slog.Handler {
	return &levelFilter{upstream: f.upstream.WithGroup(name), state: f.state, cache: f.cache}
}

func (f *levelFilter) resolveLevel(pc uintptr) slog.Level {
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	funcName := frame.Function

	if cached, ok := f.cache.Load(funcName); ok {
		level, _ := cached.(slog.Level)
		return level
	}

	level := matchLevel(f.state.Load(), extractPackagePath(funcName))
	f.cache.Store(funcName, level)

	return level
}

// extractPackagePath returns the package import path from a fully qualified function name.
// e.g. "github.com/org/repo/pkg.(*Type).Method" -> "github.com/org/repo/pkg"
func extractPackagePath(funcName string) string {
	if funcName == "" {
		return ""
	}

	lastSlash := strings.LastIndex(funcName, "/")
	rest := funcName[lastSlash+1:]

	before, _, found := strings.Cut(rest, ".")
	if !found {
		return funcName
	}

	return funcName[:lastSlash+1+len(before)]
}

func matchLevel(s *ruleSet, pkgPath string) slog.Level {
	for _, rule := range s.rules {
		if strings.HasPrefix(pkgPath, rule.prefix) {
			return rule.level
		}
	}
	return s.defaultLevel
}

// prefixMatchesAnyModule reports whether a configured package prefix can match
// code from any of the given modules.
func prefixMatchesAnyModule(prefix string, modules []string) bool {
	for _, module := range modules {
		if strings.HasPrefix(prefix, module) || strings.HasPrefix(module, prefix) {
			return true
		}
	}
	return false
}
