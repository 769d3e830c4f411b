package filter

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// captureHandler records log entries for assertions.
type captureHandler struct {
	mu      sync.Mutex
	entries []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, r)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) count(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.entries {
		if r.Level == level {
			n++
		}
	}
	return n
}

// testEvaluator returns an evaluator fixed at 2024-03-15 10:30 UTC that
// logs into the returned handler.
func testEvaluator() (*Evaluator, *captureHandler) {
	h := &captureHandler{}
	now := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)
	e := NewEvaluator(&EvaluatorOptions{
		Logger:   slog.New(h),
		Now:      func() time.Time { return now },
		Location: time.UTC,
	})
	return e, h
}

func mustParse(t testing.TB, s string) FilterSet {
	t.Helper()
	fs, err := Parse([]byte(s))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return fs
}
