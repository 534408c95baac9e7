package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/outlinevoice/gateway/internal/metrics"
)

// preBufferFrames is how many frames are flushed immediately (no pacing
// delay) at the start of a segment to absorb first-frame network jitter.
const preBufferFrames = 3

// keepaliveInterval is how often a long-running play() invokes the
// connection's keepalive reset so idle timers don't kill a long synthesis.
const keepaliveInterval = 60 * time.Second

// StatusFrame is one client-visible JSON status message emitted by the
// pacer and upstream ASR/session hooks.
type StatusFrame struct {
	Type      string `json:"type"`
	State     string `json:"state,omitempty"`
	Text      string `json:"text,omitempty"`
	Emotion   string `json:"emotion,omitempty"`
	SessionID string `json:"session_id"`
}

// PacerSink is the connection-facing surface the pacer drives. SendStatus
// writes one JSON status frame and SendFrame one raw audio frame to the
// peer; Abort reports barge-in state; ResetKeepalive extends the
// connection's idle timer; ClosePeer is invoked for close_after_chat.
type PacerSink interface {
	SendStatus(StatusFrame) error
	SendFrame(Frame) error
	Abort() bool
	ResetKeepalive()
	ClosePeer() error
}

// PacerConfig configures a Pacer for one connection.
type PacerConfig struct {
	SessionID        string
	EmotionStyle     EmotionStyle
	EnableStopNotify bool
	StopNotifyAudio  []byte
	CloseAfterChat   bool
	Logger           *slog.Logger
}

// Pacer consumes AudioBatch tuples from the TTS worker and delivers them to
// the client under a fixed per-frame wall-clock schedule.
type Pacer struct {
	cfg               PacerConfig
	sink              PacerSink
	isFirstSentence   bool
	lastKeepaliveSent time.Time
}

// NewPacer creates a Pacer writing to sink.
func NewPacer(cfg PacerConfig, sink PacerSink) *Pacer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pacer{
		cfg:             cfg,
		sink:            sink,
		isFirstSentence: true,
	}
}

// Run drains in until ctx is cancelled or in is closed.
func (p *Pacer) Run(ctx context.Context, in <-chan AudioBatch) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-in:
			if !ok {
				return
			}
			p.handle(ctx, batch)
		}
	}
}

func (p *Pacer) handle(ctx context.Context, batch AudioBatch) {
	text, _ := Filter(batch.Text)

	if text != "" {
		label := AnalyzeEmotion(text)
		symbol := EmotionSymbol(label, p.cfg.EmotionStyle)
		p.sendStatus(StatusFrame{Type: "llm", Text: symbol, Emotion: string(label)})
	}

	preBuffer := false
	if p.isFirstSentence {
		preBuffer = true
		p.isFirstSentence = false
	}

	if batch.SentenceType != SentenceLast {
		p.sendStatus(StatusFrame{Type: "tts", State: "sentence_start", Text: text})
		p.play(ctx, batch.Frames, preBuffer)
		p.sendStatus(StatusFrame{Type: "tts", State: "sentence_end", Text: text})
		return
	}

	p.sendStatus(StatusFrame{Type: "tts", State: "stop"})
	if p.cfg.EnableStopNotify && len(p.cfg.StopNotifyAudio) > 0 {
		if err := p.sink.SendFrame(Frame{Data: p.cfg.StopNotifyAudio}); err != nil {
			p.cfg.Logger.Error("send stop notification", "error", err)
		}
	}
	p.isFirstSentence = true
	if p.cfg.CloseAfterChat {
		if err := p.sink.ClosePeer(); err != nil {
			p.cfg.Logger.Error("close after chat", "error", err)
		}
	}
}

// play sends frames under a fixed per-frame wall-clock schedule anchored to
// the start of the segment, so accumulated synthesis jitter never skews
// playback. When preBuffer is set, the first preBufferFrames are sent
// immediately with no delay to smooth cold-start network variance.
func (p *Pacer) play(ctx context.Context, frames []Frame, preBuffer bool) {
	start := time.Now()
	playPosition := 0 * time.Millisecond
	frameDuration := FrameDuration * time.Millisecond

	i := 0
	if preBuffer {
		for ; i < len(frames) && i < preBufferFrames; i++ {
			if err := p.sink.SendFrame(frames[i]); err != nil {
				p.cfg.Logger.Error("send pre-buffered frame", "error", err)
				return
			}
			metrics.FramesSent.Inc()
		}
	}

	for ; i < len(frames); i++ {
		if p.sink.Abort() {
			metrics.PacerAbortsTotal.Inc()
			return
		}
		if time.Since(p.lastKeepaliveSent) > keepaliveInterval {
			p.sink.ResetKeepalive()
			p.lastKeepaliveSent = time.Now()
		}

		expected := start.Add(playPosition)
		if delay := time.Until(expected); delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}

		if err := p.sink.SendFrame(frames[i]); err != nil {
			p.cfg.Logger.Error("send audio frame", "error", err)
			return
		}
		metrics.FramesSent.Inc()
		playPosition += frameDuration
	}
}

func (p *Pacer) sendStatus(frame StatusFrame) {
	frame.SessionID = p.cfg.SessionID
	if err := p.sink.SendStatus(frame); err != nil {
		p.cfg.Logger.Error("send status frame", "error", err, "state", frame.State)
	}
}
