package trace

import (
	"testing"
	"time"
)

func TestNilTracerIsSafeNoOp(t *testing.T) {
	var tr *Tracer

	runID := tr.StartRun()
	if runID != "" {
		t.Errorf("StartRun() on nil tracer = %q, want empty", runID)
	}

	// These must not panic even though tr.ch/tr.store are nil.
	tr.EndRun("run-1", 12.5, "hi", "hello", "ok")
	tr.RecordSpan("run-1", "asr", time.Now(), 3.2, "in", "out", "ok", "")
	tr.Close()
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"under limit unchanged", "short", 10, "short"},
		{"exact limit unchanged", "exact", 5, "exact"},
		{"over limit cut", "this is too long", 7, "this is"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.in, tt.max); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}
