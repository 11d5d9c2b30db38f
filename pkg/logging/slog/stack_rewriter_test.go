package slog

import (
	"context"
	"log/slog"
	"runtime"
	"testing"

	"github.com/MarvinJWendt/testza"
)

func TestIsSloxFunction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		funcName string
		expected bool
	}{
		{"slox helper", "github.com/Vilsol/slox.Info", true},
		{"slox closure", "github.com/Vilsol/slox.log.func1", true},
		{"kiln package", "github.com/Vilsol/kiln/pkg/build.(*Builder).Build", false},
		{"main", "main.main", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			testza.AssertEqual(t, tt.expected, isSloxFunction(tt.funcName))
		})
	}
}

func TestStackRewriter_KeepsNonSloxPC(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{}
	rewriter := newStackRewriter(handler)

	var pcs [1]uintptr
	runtime.Callers(1, pcs[:])

	record := slog.Record{}
	record.Level = slog.LevelInfo
	record.Message = "direct"
	record.PC = pcs[0]

	testza.AssertNil(t, rewriter.Handle(context.Background(), record))
	testza.AssertEqual(t, 1, len(handler.records))
	testza.AssertEqual(t, pcs[0], handler.records[0].PC)
}

func TestCallerPast_UnknownPC(t *testing.T) {
	t.Parallel()

	testza.AssertEqual(t, uintptr(0), callerPast(1))
}
