package pipeline

import "testing"

func TestSegmenterTryEmitWaitsForBoundary(t *testing.T) {
	s := NewSegmenter()
	s.Push("hello there")
	segment, cut := s.TryEmit()
	if cut {
		t.Fatalf("TryEmit() cut = true before any boundary, segment=%q", segment)
	}
}

func TestSegmenterTryEmitCutsOnPunctuation(t *testing.T) {
	s := NewSegmenter()
	s.Push("hello there. more text")
	segment, cut := s.TryEmit()
	if !cut {
		t.Fatalf("TryEmit() cut = false, want true")
	}
	if segment != "hello there" {
		t.Errorf("TryEmit() segment = %q, want %q", segment, "hello there")
	}
}

func TestSegmenterTryEmitLeftmostCut(t *testing.T) {
	s := NewSegmenter()
	s.Push("one, two. three")
	segment, cut := s.TryEmit()
	if !cut || segment != "one" {
		t.Fatalf("TryEmit() = (%q, %v), want (%q, true)", segment, cut, "one")
	}
	segment, cut = s.TryEmit()
	if !cut || segment != "two" {
		t.Fatalf("second TryEmit() = (%q, %v), want (%q, true)", segment, cut, "two")
	}
}

func TestSegmenterSkipsEllipsisAsBoundary(t *testing.T) {
	s := NewSegmenter()
	s.Push("wait... let me think. ok")
	segment, cut := s.TryEmit()
	if !cut {
		t.Fatalf("TryEmit() cut = false, want true")
	}
	if segment != "wait... let me think" {
		t.Errorf("TryEmit() segment = %q, want %q", segment, "wait... let me think")
	}
}

func TestSegmenterAbsorbsBracketedAside(t *testing.T) {
	s := NewSegmenter()
	s.Push("hello (")
	if _, cut := s.TryEmit(); cut {
		t.Fatalf("TryEmit() cut = true with unclosed bracket")
	}
	s.Push("quietly)")
	segment, cut := s.TryEmit()
	if cut {
		t.Fatalf("TryEmit() cut = true right after bracket closes, segment=%q", segment)
	}
	s.Push("done. next")
	segment, cut = s.TryEmit()
	if !cut || segment != "hello done" {
		t.Fatalf("TryEmit() after bracket = (%q, %v), want (%q, true)", segment, cut, "hello done")
	}
}

func TestSegmenterWaitsOnUnclosedBracket(t *testing.T) {
	s := NewSegmenter()
	s.Push("hello (still talking")
	segment, cut := s.TryEmit()
	if cut {
		t.Fatalf("TryEmit() cut = true with unclosed bracket, segment=%q", segment)
	}
	s.Push(")")
	if _, cut := s.TryEmit(); cut {
		t.Fatalf("TryEmit() cut = true right after bracket closes")
	}
	s.Push("done. next")
	segment, cut = s.TryEmit()
	if !cut || segment != "hello done" {
		t.Fatalf("TryEmit() after close = (%q, %v), want (%q, true)", segment, cut, "hello done")
	}
}

func TestSegmenterDrainFlushesResidual(t *testing.T) {
	s := NewSegmenter()
	s.Push("no boundary yet")
	segment, cut := s.Drain()
	if !cut || segment != "no boundary yet" {
		t.Fatalf("Drain() = (%q, %v), want (%q, true)", segment, cut, "no boundary yet")
	}
}

func TestSegmenterDrainEmptyBufferStaysUncut(t *testing.T) {
	s := NewSegmenter()
	segment, cut := s.Drain()
	if cut {
		t.Fatalf("Drain() on empty buffer cut = true, segment=%q", segment)
	}
}

func TestSegmenterResetClearsState(t *testing.T) {
	s := NewSegmenter()
	s.Push("partial (open")
	s.TryEmit()
	s.Reset()
	s.Push("fresh turn. done")
	segment, cut := s.TryEmit()
	if !cut || segment != "fresh turn" {
		t.Fatalf("TryEmit() after Reset = (%q, %v), want (%q, true)", segment, cut, "fresh turn")
	}
}
