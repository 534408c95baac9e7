// Package session owns the per-connection Connection context: the peer
// channel, identifiers, wire format, barge-in/abort state, and the status
// protocol senders the pacer and upstream ASR hooks use to talk to the
// client.
package session

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/outlinevoice/gateway/internal/audio"
	"github.com/outlinevoice/gateway/internal/pipeline"
	"github.com/outlinevoice/gateway/internal/store"
	"github.com/outlinevoice/gateway/internal/trace"
)

// Peer is the transport-facing surface a Connection sends frames through.
// internal/transport's websocket wrapper satisfies this.
type Peer interface {
	WriteText(data []byte) error
	WriteBinary(data []byte) error
	Close() error
}

// Connection owns everything one WebSocket call needs across its
// lifetime: identifiers, wire format, abort/close state, device identity,
// the resolved voice binding, the tracer and a session-scoped logger.
type Connection struct {
	Peer      Peer
	SessionID string
	AgentID   string

	WireFormat     audio.WireFormat
	CloseAfterChat bool

	Voice  *store.VoiceBinding
	Tracer *trace.Tracer
	Logger *slog.Logger

	DeviceHeaders map[string]string

	sentenceSeq   int64
	abortFlag     atomic.Bool
	lastKeepalive atomic.Int64 // unix nanos
}

// New creates a Connection for a freshly accepted peer. agentID is the
// trailing path segment of the WebSocket URL.
func New(peer Peer, agentID string, format audio.WireFormat, voice *store.VoiceBinding, tracer *trace.Tracer) *Connection {
	sessionID := uuid.NewString()
	c := &Connection{
		Peer:          peer,
		SessionID:     sessionID,
		AgentID:       agentID,
		WireFormat:    format,
		Voice:         voice,
		Tracer:        tracer,
		Logger:        slog.Default().With("session_id", sessionID, "agent_id", agentID),
		DeviceHeaders: map[string]string{},
	}
	c.lastKeepalive.Store(time.Now().UnixNano())
	return c
}

// NextSentenceID returns a sentence identifier from a sequence that rises
// monotonically over the whole connection (it is not reset per turn).
func (c *Connection) NextSentenceID() string {
	seq := atomic.AddInt64(&c.sentenceSeq, 1)
	return c.SessionID + "-" + strconv.FormatInt(seq, 10)
}

// SetAbort raises or clears the barge-in flag. Every pipeline stage
// consults Abort() on its next poll/send.
func (c *Connection) SetAbort(v bool) {
	c.abortFlag.Store(v)
}

// Abort satisfies pipeline.PacerSink and is polled by the TTS worker and
// pacer on every queue iteration.
func (c *Connection) Abort() bool {
	return c.abortFlag.Load()
}

// ResetKeepalive satisfies pipeline.PacerSink; called by the pacer when a
// long synthesis would otherwise trip the transport's idle timer.
func (c *Connection) ResetKeepalive() {
	c.lastKeepalive.Store(time.Now().UnixNano())
}

// LastKeepalive reports when the keepalive was last reset.
func (c *Connection) LastKeepalive() time.Time {
	return time.Unix(0, c.lastKeepalive.Load())
}

// ClosePeer satisfies pipeline.PacerSink; used for close_after_chat.
func (c *Connection) ClosePeer() error {
	return c.Peer.Close()
}

// SendStatus satisfies pipeline.PacerSink, encoding frame as a JSON text
// message to the peer.
func (c *Connection) SendStatus(frame pipeline.StatusFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return c.Peer.WriteText(data)
}

// SendFrame satisfies pipeline.PacerSink, writing one binary audio frame
// to the peer.
func (c *Connection) SendFrame(frame pipeline.Frame) error {
	return c.Peer.WriteBinary(frame.Data)
}

// SendSTT sends the recognized-utterance status frame.
func (c *Connection) SendSTT(text string) error {
	return c.SendStatus(pipeline.StatusFrame{Type: "stt", Text: text, SessionID: c.SessionID})
}

// SendTTSStart sends the turn-start status frame.
func (c *Connection) SendTTSStart() error {
	return c.SendStatus(pipeline.StatusFrame{Type: "tts", State: "start", SessionID: c.SessionID})
}

var _ pipeline.PacerSink = (*Connection)(nil)
