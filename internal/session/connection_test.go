package session

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/outlinevoice/gateway/internal/audio"
	"github.com/outlinevoice/gateway/internal/pipeline"
)

type fakePeer struct {
	mu     sync.Mutex
	texts  [][]byte
	binary [][]byte
	closed bool
}

func (f *fakePeer) WriteText(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, data)
	return nil
}

func (f *fakePeer) WriteBinary(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binary = append(f.binary, data)
	return nil
}

func (f *fakePeer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestNewAssignsIdentifiers(t *testing.T) {
	peer := &fakePeer{}
	conn := New(peer, "agent-42", audio.WireFormatOpus, nil, nil)

	if conn.AgentID != "agent-42" {
		t.Errorf("AgentID = %q, want %q", conn.AgentID, "agent-42")
	}
	if conn.SessionID == "" {
		t.Error("SessionID is empty, want a generated UUID")
	}
}

func TestNextSentenceIDIsMonotonicPerSession(t *testing.T) {
	conn := New(&fakePeer{}, "agent-1", audio.WireFormatOpus, nil, nil)

	first := conn.NextSentenceID()
	second := conn.NextSentenceID()
	if first == second {
		t.Errorf("NextSentenceID() returned the same id twice: %q", first)
	}
	if first == "" || second == "" {
		t.Error("NextSentenceID() returned an empty id")
	}
}

func TestAbortFlag(t *testing.T) {
	conn := New(&fakePeer{}, "agent-1", audio.WireFormatOpus, nil, nil)
	if conn.Abort() {
		t.Error("Abort() = true before SetAbort, want false")
	}
	conn.SetAbort(true)
	if !conn.Abort() {
		t.Error("Abort() = false after SetAbort(true), want true")
	}
}

func TestSendSTTWritesJSONStatus(t *testing.T) {
	peer := &fakePeer{}
	conn := New(peer, "agent-1", audio.WireFormatOpus, nil, nil)

	if err := conn.SendSTT("hello there"); err != nil {
		t.Fatalf("SendSTT() error = %v", err)
	}

	peer.mu.Lock()
	defer peer.mu.Unlock()
	if len(peer.texts) != 1 {
		t.Fatalf("peer received %d text frames, want 1", len(peer.texts))
	}
	var frame pipeline.StatusFrame
	if err := json.Unmarshal(peer.texts[0], &frame); err != nil {
		t.Fatalf("unmarshal status frame: %v", err)
	}
	if frame.Type != "stt" || frame.Text != "hello there" || frame.SessionID != conn.SessionID {
		t.Errorf("got frame %+v, want type=stt text=%q session=%q", frame, "hello there", conn.SessionID)
	}
}

func TestSendFrameWritesBinary(t *testing.T) {
	peer := &fakePeer{}
	conn := New(peer, "agent-1", audio.WireFormatOpus, nil, nil)

	if err := conn.SendFrame(pipeline.Frame{Data: []byte{1, 2, 3}}); err != nil {
		t.Fatalf("SendFrame() error = %v", err)
	}

	peer.mu.Lock()
	defer peer.mu.Unlock()
	if len(peer.binary) != 1 || string(peer.binary[0]) != "\x01\x02\x03" {
		t.Errorf("peer.binary = %v, want one frame {1,2,3}", peer.binary)
	}
}

func TestClosePeerClosesUnderlyingPeer(t *testing.T) {
	peer := &fakePeer{}
	conn := New(peer, "agent-1", audio.WireFormatOpus, nil, nil)

	if err := conn.ClosePeer(); err != nil {
		t.Fatalf("ClosePeer() error = %v", err)
	}
	if !peer.closed {
		t.Error("expected underlying peer to be closed")
	}
}
