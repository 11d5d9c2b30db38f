package slog

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
)

const DefaultDepth = 32

const sloxPackage = "github.com/Vilsol/slox"

var _ slog.Handler = stackRewriter{}

// stackRewriter moves record.PC past slox helper frames so that the reported
// source (and the per-package level filter) see the real caller.
type stackRewriter struct {
	upstream slog.Handler
}

func newStackRewriter(upstream slog.Handler) stackRewriter {
	return stackRewriter{upstream: upstream}
}

func (t stackRewriter) Enabled(ctx context.Context, level slog.Level) bool {
	return t.upstream.Enabled(ctx, level)
}

func (t stackRewriter) Handle(ctx context.Context, record slog.Record) error {
	if record.PC != 0 && isSloxFrame(record.PC) {
		if pc := callerPast(record.PC); pc != 0 {
			record.PC = pc
		}
	}

	return t.upstream.Handle(ctx, record) //nolint:wrapcheck
}

func (t stackRewriter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return stackRewriter{upstream: t.upstream.WithAttrs(attrs)}
}

func (t stackRewriter) WithGroup(name string) slog.Handler {
	return stackRewriter{upstream: t.upstream.WithGroup(name)}
}

func isSloxFrame(pc uintptr) bool {
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	return isSloxFunction(frame.Function)
}

func isSloxFunction(funcName string) bool {
	return extractPackagePath(funcName) == sloxPackage
}

// callerPast walks the current stack from the frame at pc outwards and returns
// the first frame outside slox, or 0 if pc is not on the current stack.
func callerPast(pc uintptr) uintptr {
	var pcs [DefaultDepth]uintptr
	n := runtime.Callers(0, pcs[:])

	start := -1
	for i := range n {
		if pcs[i] == pc {
			start = i
			break
		}
	}

	if start == -1 {
		return 0
	}

	frames := runtime.CallersFrames(pcs[start:n])
	for {
		frame, more := frames.Next()
		if !isSloxFunction(frame.Function) && !strings.HasPrefix(frame.Function, "log/slog.") {
			return frame.PC + 1
		}
		if !more {
			return 0
		}
	}
}
