package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/outlinevoice/gateway/internal/audio"
	"github.com/outlinevoice/gateway/internal/metrics"
)

// maxSynthesisAttempts bounds the retry loop for a single segment.
const maxSynthesisAttempts = 5

// SynthesizeFunc writes a synthesized audio file to outPath for text,
// matching the providers.Synthesizer capability without importing the
// providers package (which would create an import cycle, since providers
// imports pipeline for NewPooledHTTPClient).
type SynthesizeFunc func(ctx context.Context, text, voice, outPath string) error

// TTSWorkerConfig configures a TTSWorker.
type TTSWorkerConfig struct {
	Synthesize  SynthesizeFunc
	Voice       string
	WireFormat  audio.WireFormat
	SampleRate  int
	OutputDir   string
	DeleteAudio bool
	Logger      *slog.Logger
}

// TTSWorker consumes pipeline messages from the text queue, drives the
// segmenter, synthesizes each emitted segment, decodes it to the
// connection's wire format, and enqueues frame batches for the pacer.
type TTSWorker struct {
	cfg       TTSWorkerConfig
	segmenter *Segmenter
	abort     func() bool
	out       chan<- AudioBatch
}

// NewTTSWorker creates a worker writing completed batches to out. abort
// reports the connection's current barge-in state; the worker consults it
// on every queue poll.
func NewTTSWorker(cfg TTSWorkerConfig, abort func() bool, out chan<- AudioBatch) *TTSWorker {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &TTSWorker{
		cfg:       cfg,
		segmenter: NewSegmenter(),
		abort:     abort,
		out:       out,
	}
}

// Run drains in until ctx is cancelled or in is closed.
func (w *TTSWorker) Run(ctx context.Context, in <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			if w.abort() && msg.SentenceType != SentenceFirst {
				continue
			}
			w.handle(ctx, msg)
		}
	}
}

func (w *TTSWorker) handle(ctx context.Context, msg Message) {
	switch {
	case msg.SentenceType == SentenceFirst:
		w.segmenter.Reset()

	case msg.SentenceType == SentenceMiddle && msg.ContentType == ContentText:
		w.segmenter.Push(msg.ContentDetail)
		for {
			segment, cut := w.segmenter.TryEmit()
			if !cut {
				break
			}
			if segment != "" {
				w.synthesizeAndEnqueue(ctx, SentenceMiddle, segment)
			}
		}

	case msg.SentenceType == SentenceMiddle && msg.ContentType == ContentFile:
		if segment, cut := w.segmenter.Drain(); cut && segment != "" {
			w.synthesizeAndEnqueue(ctx, SentenceMiddle, segment)
		}
		w.enqueueFile(msg.ContentFile)

	case msg.SentenceType == SentenceLast:
		if segment, cut := w.segmenter.Drain(); cut && segment != "" {
			w.synthesizeAndEnqueue(ctx, SentenceMiddle, segment)
		}
		w.out <- AudioBatch{SentenceType: SentenceLast}
	}
}

func (w *TTSWorker) synthesizeAndEnqueue(ctx context.Context, sentenceType SentenceType, text string) {
	outPath := filepath.Join(w.cfg.OutputDir, uuid.New().String()+".wav")

	var lastErr error
	for attempt := 1; attempt <= maxSynthesisAttempts; attempt++ {
		if attempt > 1 {
			metrics.SynthesisRetries.Inc()
		}
		lastErr = w.cfg.Synthesize(ctx, text, w.cfg.Voice, outPath)
		if lastErr == nil {
			break
		}
		os.Remove(outPath)
	}
	if lastErr != nil {
		metrics.SegmentsDropped.Inc()
		w.cfg.Logger.Error("synthesis exhausted retries", "error", lastErr, "text", text)
		return
	}

	frames, err := w.decodeToWireFormat(outPath)
	if err != nil {
		w.cfg.Logger.Error("decode synthesized audio", "error", err, "path", outPath)
		return
	}

	w.out <- AudioBatch{SentenceType: sentenceType, Frames: frames, Text: text}

	if w.cfg.DeleteAudio && strings.HasPrefix(outPath, w.cfg.OutputDir) {
		os.Remove(outPath)
	}
}

// decodeToWireFormat decodes a synthesized file into the connection's wire
// format. A pre-encoded Opus/P3 container (by extension) is split into
// frames directly without re-encoding.
func (w *TTSWorker) decodeToWireFormat(path string) ([]Frame, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".opus" || ext == ".p3" {
		return w.splitPreEncodedContainer(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synthesized file: %w", err)
	}

	samples, rate, err := audio.DecodeWAVToPCM16(data)
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}

	var raw [][]byte
	if w.cfg.WireFormat == audio.WireFormatOpus {
		raw, err = audio.EncodeOpusFrames(samples, rate)
		if err != nil {
			return nil, fmt.Errorf("encode opus: %w", err)
		}
	} else {
		raw = audio.EncodePCMFrames(samples, rate)
	}

	frames := make([]Frame, len(raw))
	for i, f := range raw {
		frames[i] = Frame{Data: f}
	}
	return frames, nil
}

// splitPreEncodedContainer splits an already-framed container into discrete
// 60ms-ish chunks by a simple length-prefix convention: each frame is
// preceded by a uint16 big-endian length, matching the common
// .p3/streamed-opus container shape used by embedded TTS sidecars.
func (w *TTSWorker) splitPreEncodedContainer(path string) ([]Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pre-encoded file: %w", err)
	}

	var frames []Frame
	for i := 0; i+2 <= len(data); {
		frameLen := int(data[i])<<8 | int(data[i+1])
		i += 2
		if frameLen <= 0 || i+frameLen > len(data) {
			break
		}
		frames = append(frames, Frame{Data: data[i : i+frameLen]})
		i += frameLen
	}
	return frames, nil
}

func (w *TTSWorker) enqueueFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.cfg.Logger.Error("read content file", "error", err, "path", path)
		return
	}
	samples, rate, err := audio.DecodeWAVToPCM16(data)
	if err != nil {
		w.cfg.Logger.Error("decode content file", "error", err, "path", path)
		return
	}

	var raw [][]byte
	if w.cfg.WireFormat == audio.WireFormatOpus {
		raw, err = audio.EncodeOpusFrames(samples, rate)
	} else {
		raw = audio.EncodePCMFrames(samples, rate)
	}
	if err != nil {
		w.cfg.Logger.Error("encode content file", "error", err, "path", path)
		return
	}

	frames := make([]Frame, len(raw))
	for i, f := range raw {
		frames[i] = Frame{Data: f}
	}
	w.out <- AudioBatch{SentenceType: SentenceMiddle, Frames: frames}
}
