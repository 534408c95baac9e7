// Package transport hosts the WebSocket accept loop that turns an inbound
// connection into a running session.Connection, wiring up the TTS worker
// and audio pacer goroutines per spec.md §5's concurrency model.
package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/outlinevoice/gateway/internal/audio"
	"github.com/outlinevoice/gateway/internal/metrics"
	"github.com/outlinevoice/gateway/internal/pipeline"
	"github.com/outlinevoice/gateway/internal/prompts"
	"github.com/outlinevoice/gateway/internal/providers"
	"github.com/outlinevoice/gateway/internal/session"
	"github.com/outlinevoice/gateway/internal/store"
	"github.com/outlinevoice/gateway/internal/trace"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlerConfig holds the shared backend clients every connection draws on.
type HandlerConfig struct {
	VoiceStore   *store.Store
	TraceStore   *trace.Store
	FallbackTTS  providers.Synthesizer
	VoicedTTS    map[string]providers.Synthesizer // keyed by tts_voice.engine
	ChatModel    providers.ChatModel
	OutputDir    string
	DeleteAudio  bool
	Tuning       func() (format audio.WireFormat, emotionStyle pipeline.EmotionStyle, stopNotify bool, stopNotifyAudio []byte, closeAfterChat bool)
	SystemPrompt string

	// Transcriber, NewVAD, Memory, and Intent are all out of scope as core
	// pipeline logic (§1 non-goals) but are wired here so the gateway can
	// assemble a full demo: binary frames are segmented by a per-connection
	// VoiceActivityDetector and transcribed into chat turns once speech ends.
	Transcriber providers.Transcriber
	NewVAD      func() providers.VoiceActivityDetector
	Memory      providers.MemoryStore
	Intent      providers.IntentClassifier
	SampleRate  int
}

// Handler upgrades WebSocket connections and runs one voice-dialog session
// per accepted peer.
type Handler struct {
	cfg HandlerConfig
}

// NewHandler creates a transport handler bound to shared backend clients.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

// ServeHTTP upgrades the connection and runs the call session. agent_id is
// the trailing path segment per spec.md §6.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	agentID := agentIDFromPath(r.URL.Path)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err, "agent_id", agentID)
		return
	}
	defer conn.Close()

	h.runSession(conn, agentID)
}

func agentIDFromPath(path string) string {
	trimmed := strings.TrimSuffix(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return trimmed
	}
	return trimmed[idx+1:]
}

// wsPeer adapts *websocket.Conn to session.Peer, serializing concurrent
// writes from the pacer and receiver goroutines.
type wsPeer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (p *wsPeer) WriteText(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *wsPeer) WriteBinary(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (p *wsPeer) Close() error {
	return p.conn.Close()
}

// controlFrame is an inbound JSON text frame carrying a client control
// action (barge-in abort, or a typed chat message in text-only mode).
type controlFrame struct {
	Action  string `json:"action"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) runSession(wsConn *websocket.Conn, agentID string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	format, emotionStyle, stopNotify, stopNotifyAudio, closeAfterChat := h.cfg.Tuning()

	voice, voiceErr := h.resolveVoice(ctx, agentID)
	synth := h.resolveSynthesizer(voice, voiceErr)

	var tracer *trace.Tracer
	peer := &wsPeer{conn: wsConn}
	conn := session.New(peer, agentID, format, voice, tracer)

	if h.cfg.TraceStore != nil {
		metaJSON, _ := json.Marshal(map[string]string{"agent_id": agentID})
		_ = h.cfg.TraceStore.CreateSession(conn.SessionID, string(metaJSON))
		conn.Tracer = trace.NewTracer(h.cfg.TraceStore, conn.SessionID)
		defer func() {
			conn.Tracer.Close()
			_ = h.cfg.TraceStore.EndSession(conn.SessionID)
		}()
	}

	metrics.CallsTotal.Inc()
	metrics.CallsActive.Inc()
	conn.Logger.Info("call started")
	defer metrics.CallsActive.Dec()
	defer conn.Logger.Info("call ended")

	textQueue := make(chan pipeline.Message, 8)
	audioQueue := make(chan pipeline.AudioBatch, 8)

	voiceName := ""
	if voice != nil {
		voiceName = voice.VoiceCode
	}

	worker := pipeline.NewTTSWorker(pipeline.TTSWorkerConfig{
		Synthesize:  synth.Synthesize,
		Voice:       voiceName,
		WireFormat:  format,
		OutputDir:   h.cfg.OutputDir,
		DeleteAudio: h.cfg.DeleteAudio,
		Logger:      conn.Logger,
	}, conn.Abort, audioQueue)

	pacer := pipeline.NewPacer(pipeline.PacerConfig{
		SessionID:        conn.SessionID,
		EmotionStyle:     emotionStyle,
		EnableStopNotify: stopNotify,
		StopNotifyAudio:  stopNotifyAudio,
		CloseAfterChat:   closeAfterChat,
		Logger:           conn.Logger,
	}, conn)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); worker.Run(ctx, textQueue) }()
	go func() { defer wg.Done(); pacer.Run(ctx, audioQueue) }()
	go conn.WatchIdle(ctx)

	systemPrompt := h.cfg.SystemPrompt
	if voice != nil && voice.SystemPrompt != "" {
		systemPrompt = voice.SystemPrompt
	}

	var vad providers.VoiceActivityDetector
	if h.cfg.NewVAD != nil {
		vad = h.cfg.NewVAD()
	}

	h.receiveLoop(ctx, wsConn, conn, vad, textQueue, systemPrompt)

	close(textQueue)
	wg.Wait()
}

func (h *Handler) resolveVoice(ctx context.Context, agentID string) (*store.VoiceBinding, error) {
	if h.cfg.VoiceStore == nil {
		return nil, store.ErrNoBinding
	}
	return h.cfg.VoiceStore.LookupVoice(ctx, agentID)
}

func (h *Handler) resolveSynthesizer(voice *store.VoiceBinding, voiceErr error) providers.Synthesizer {
	if voiceErr == nil && voice != nil {
		if s, ok := h.cfg.VoicedTTS[voice.Engine]; ok {
			return s
		}
	}
	return h.cfg.FallbackTTS
}

// receiveLoop reads frames from the WebSocket: binary frames are microphone
// audio, segmented by vad and transcribed into a chat turn once speech
// ends (the ASR/VAD collaborator boundary, out of scope as core pipeline
// logic but wired here for a runnable demo); text frames carry either a
// barge-in abort or a typed chat message, which drives the LLM→text-queue
// producer side of the pipeline.
func (h *Handler) receiveLoop(ctx context.Context, wsConn *websocket.Conn, conn *session.Connection, vad providers.VoiceActivityDetector, textQueue chan<- pipeline.Message, systemPrompt string) {
	var micBuffer []byte

	for {
		msgType, data, err := wsConn.ReadMessage()
		if err != nil {
			return
		}

		if msgType == websocket.BinaryMessage {
			h.handleMicFrame(ctx, conn, vad, &micBuffer, data, textQueue, systemPrompt)
			continue
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var frame controlFrame
		if json.Unmarshal(data, &frame) != nil {
			continue
		}

		switch frame.Action {
		case "abort":
			conn.SetAbort(true)
		case "chat":
			conn.SetAbort(false)
			conn.ResetKeepalive()
			h.runChatTurn(ctx, conn, textQueue, systemPrompt, frame.Message)
		}
	}
}

// handleMicFrame accumulates one binary audio frame into buf and, once vad
// reports the speech segment has ended, transcribes the accumulated buffer
// and drives it through runChatTurn exactly like a typed chat message.
func (h *Handler) handleMicFrame(ctx context.Context, conn *session.Connection, vad providers.VoiceActivityDetector, buf *[]byte, frame []byte, textQueue chan<- pipeline.Message, systemPrompt string) {
	if vad == nil || h.cfg.Transcriber == nil {
		return
	}

	*buf = append(*buf, frame...)
	speechEnded, _ := vad.Detect(bytesToPCM16(frame))
	if !speechEnded {
		return
	}

	segment := *buf
	*buf = nil
	vad.Reset()

	text, err := h.cfg.Transcriber.Transcribe(ctx, segment, h.cfg.SampleRate)
	if err != nil {
		conn.Logger.Error("transcribe mic segment", "error", err)
		return
	}
	if text == "" {
		return
	}

	conn.SetAbort(false)
	conn.ResetKeepalive()
	h.runChatTurn(ctx, conn, textQueue, systemPrompt, text)
}

func bytesToPCM16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[2*i]) | int16(data[2*i+1])<<8
	}
	return samples
}

// runChatTurn drives the LLM for one turn, emitting FIRST, streaming
// MIDDLE/TEXT messages as tokens arrive, and a final LAST onto the text
// queue, per spec.md §4.3's producer contract.
func (h *Handler) runChatTurn(ctx context.Context, conn *session.Connection, textQueue chan<- pipeline.Message, systemPrompt, userText string) {
	if h.cfg.ChatModel == nil {
		return
	}

	speechEnd := time.Now()
	conn.SendSTT(userText)
	conn.SendTTSStart()

	runID := conn.Tracer.StartRun()

	if h.cfg.Intent != nil {
		if label, confidence, err := h.cfg.Intent.Classify(ctx, userText); err == nil {
			conn.Tracer.RecordSpan(runID, "intent", speechEnd, time.Since(speechEnd).Seconds()*1000, userText, label, "ok", "")
			conn.Logger.Info("classified intent", "label", label, "confidence", confidence)
		}
	}

	if h.cfg.Memory != nil {
		if snippets, err := h.cfg.Memory.Retrieve(ctx, userText, 0); err == nil && len(snippets) > 0 {
			systemPrompt = systemPrompt + "\n\n" + prompts.RAGContext(providers.RetrievalContext(snippets))
		}
		h.cfg.Memory.Store(ctx, conn.SessionID, "user", userText)
	}

	textQueue <- pipeline.Message{SentenceType: pipeline.SentenceFirst, ContentType: pipeline.ContentAction}

	var reply strings.Builder
	firstToken := true
	err := h.cfg.ChatModel.Stream(ctx, conn.AgentID, systemPrompt, userText, func(token string) {
		if conn.Abort() {
			return
		}
		if firstToken {
			metrics.E2EDuration.Observe(time.Since(speechEnd).Seconds())
			firstToken = false
		}
		reply.WriteString(token)
		textQueue <- pipeline.Message{
			SentenceID:    conn.NextSentenceID(),
			SentenceType:  pipeline.SentenceMiddle,
			ContentType:   pipeline.ContentText,
			ContentDetail: token,
		}
	})

	status := "ok"
	if err != nil {
		status = "error"
		conn.Logger.Error("chat stream", "error", err)
	}
	conn.Tracer.EndRun(runID, time.Since(speechEnd).Seconds()*1000, userText, reply.String(), status)
	if h.cfg.Memory != nil && reply.Len() > 0 {
		h.cfg.Memory.Store(ctx, conn.SessionID, "assistant", reply.String())
	}

	textQueue <- pipeline.Message{SentenceType: pipeline.SentenceLast, ContentType: pipeline.ContentAction}
}
