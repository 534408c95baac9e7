package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/outlinevoice/gateway/internal/audio"
)

func writeTestWAV(t *testing.T, path string, samples []int, sampleRate int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav file: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav samples: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav encoder: %v", err)
	}
}

func newTestTTSWorker(t *testing.T, synth SynthesizeFunc, wireFormat audio.WireFormat, abort func() bool) (*TTSWorker, chan AudioBatch) {
	t.Helper()
	out := make(chan AudioBatch, 16)
	cfg := TTSWorkerConfig{
		Synthesize: synth,
		Voice:      "default",
		WireFormat: wireFormat,
		SampleRate: 16000,
		OutputDir:  t.TempDir(),
	}
	if abort == nil {
		abort = func() bool { return false }
	}
	return NewTTSWorker(cfg, abort, out), out
}

func TestTTSWorkerRetriesSynthesisUpToMaxAttempts(t *testing.T) {
	attempts := 0
	synth := func(ctx context.Context, text, voice, outPath string) error {
		attempts++
		if attempts < maxSynthesisAttempts {
			return os.ErrInvalid
		}
		writeTestWAV(t, outPath, []int{0, 1, 2, 3}, 16000)
		return nil
	}
	w, out := newTestTTSWorker(t, synth, audio.WireFormatPCM, nil)
	w.synthesizeAndEnqueue(context.Background(), SentenceMiddle, "hello there")

	if attempts != maxSynthesisAttempts {
		t.Fatalf("attempts = %d, want %d (succeeds on the last allowed try)", attempts, maxSynthesisAttempts)
	}
	select {
	case batch := <-out:
		if len(batch.Frames) == 0 {
			t.Error("expected non-empty frames on eventual success")
		}
	default:
		t.Fatal("expected a batch on out after eventual synthesis success")
	}
}

func TestTTSWorkerDropsSegmentAfterExhaustingRetries(t *testing.T) {
	attempts := 0
	synth := func(ctx context.Context, text, voice, outPath string) error {
		attempts++
		return os.ErrInvalid
	}
	w, out := newTestTTSWorker(t, synth, audio.WireFormatPCM, nil)
	w.synthesizeAndEnqueue(context.Background(), SentenceMiddle, "hello there")

	if attempts != maxSynthesisAttempts {
		t.Fatalf("attempts = %d, want %d", attempts, maxSynthesisAttempts)
	}
	select {
	case batch := <-out:
		t.Fatalf("expected no batch after exhausting retries, got %+v", batch)
	default:
	}
}

func TestTTSWorkerDecodesPCMWireFormat(t *testing.T) {
	samples := make([]int, 960)
	for i := range samples {
		samples[i] = i % 100
	}
	synth := func(ctx context.Context, text, voice, outPath string) error {
		writeTestWAV(t, outPath, samples, 16000)
		return nil
	}
	w, out := newTestTTSWorker(t, synth, audio.WireFormatPCM, nil)
	w.synthesizeAndEnqueue(context.Background(), SentenceMiddle, "hello")

	select {
	case batch := <-out:
		if len(batch.Frames) == 0 {
			t.Fatal("expected at least one PCM frame")
		}
		wantFrameBytes := audio.FrameSamples(16000) * 2
		if len(batch.Frames[0].Data) != wantFrameBytes {
			t.Errorf("frame size = %d bytes, want %d (raw PCM16)", len(batch.Frames[0].Data), wantFrameBytes)
		}
	default:
		t.Fatal("expected a batch on out")
	}
}

func TestTTSWorkerDecodeToWireFormatRejectsInvalidWAV(t *testing.T) {
	w, _ := newTestTTSWorker(t, nil, audio.WireFormatPCM, nil)
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("not a wav file"), 0o644); err != nil {
		t.Fatalf("write bad wav: %v", err)
	}
	if _, err := w.decodeToWireFormat(path); err == nil {
		t.Error("decodeToWireFormat(invalid wav) err = nil, want error")
	}
}

func TestTTSWorkerSplitPreEncodedContainerByLengthPrefix(t *testing.T) {
	w, _ := newTestTTSWorker(t, nil, audio.WireFormatOpus, nil)

	// Two frames, 3 and 2 bytes, each preceded by a big-endian uint16 length.
	data := []byte{0x00, 0x03, 'a', 'b', 'c', 0x00, 0x02, 'd', 'e'}
	path := filepath.Join(t.TempDir(), "pre-encoded.p3")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write container: %v", err)
	}

	frames, err := w.decodeToWireFormat(path)
	if err != nil {
		t.Fatalf("decodeToWireFormat(.p3) error: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("len(frames) = %d, want 2", len(frames))
	}
	if string(frames[0].Data) != "abc" || string(frames[1].Data) != "de" {
		t.Errorf("frames = %q, %q, want %q, %q", frames[0].Data, frames[1].Data, "abc", "de")
	}
}

// abortFlag is a mutex-guarded bool standing in for the connection's
// client_abort state, read concurrently by TTSWorker.Run's poll loop.
type abortFlag struct {
	mu sync.Mutex
	v  bool
}

func (a *abortFlag) get() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.v
}

func (a *abortFlag) set(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.v = v
}

// TestTTSWorkerDiscardsQueuedSegmentsAfterAbortUntilNextFirst covers scenario
// 6 of the abort-safety table: once client_abort is set, remaining
// mid-turn segments must never reach the pacer queue, and normal output
// resumes only once a fresh FIRST starts the next turn.
func TestTTSWorkerDiscardsQueuedSegmentsAfterAbortUntilNextFirst(t *testing.T) {
	var aborted abortFlag
	synth := func(ctx context.Context, text, voice, outPath string) error {
		writeTestWAV(t, outPath, []int{0, 1, 2, 3}, 16000)
		return nil
	}
	w, out := newTestTTSWorker(t, synth, audio.WireFormatPCM, aborted.get)

	in := make(chan Message, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx, in)
		close(done)
	}()

	in <- Message{SentenceType: SentenceFirst}
	in <- Message{SentenceType: SentenceMiddle, ContentType: ContentText, ContentDetail: "segment two. "}
	drainBatch(t, out) // "segment two"

	aborted.set(true)
	// These must never produce output: Run's abort check discards any
	// non-FIRST message outright, before the segmenter ever sees them.
	in <- Message{SentenceType: SentenceMiddle, ContentType: ContentText, ContentDetail: "segment three. "}
	in <- Message{SentenceType: SentenceLast}

	expectNoBatch(t, out, 100*time.Millisecond)

	aborted.set(false)
	in <- Message{SentenceType: SentenceFirst}
	in <- Message{SentenceType: SentenceLast}

	stop := drainBatch(t, out)
	if stop.SentenceType != SentenceLast {
		t.Errorf("SentenceType = %v, want SentenceLast (stop only after the next LAST)", stop.SentenceType)
	}

	cancel()
	<-done
}

func drainBatch(t *testing.T, out <-chan AudioBatch) AudioBatch {
	t.Helper()
	select {
	case b := <-out:
		return b
	case <-time.After(time.Second):
		t.Fatal("expected a batch on out, got none")
		return AudioBatch{}
	}
}

func expectNoBatch(t *testing.T, out <-chan AudioBatch, wait time.Duration) {
	t.Helper()
	select {
	case batch := <-out:
		t.Fatalf("expected no batch, got %+v", batch)
	case <-time.After(wait):
	}
}
