// Package providers declares the capability interfaces the core pipeline
// consumes from pluggable backends, plus concrete adapters for each. The
// core never depends on a concrete adapter directly — only on these
// interfaces, wired up at connection-accept time.
package providers

import "context"

// Synthesizer turns text into a synthesized audio file on disk.
type Synthesizer interface {
	// Synthesize writes a synthesized audio file to outPath. The caller
	// owns retry and partial-file cleanup.
	Synthesize(ctx context.Context, text, voice, outPath string) error
}

// Transcriber turns recorded audio into text. Out of scope as implemented
// business logic (ASR is an external collaborator per the core's
// non-goals) — this interface exists so a full demo server can be wired.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, sampleRate int) (string, error)
}

// ChatModel streams an LLM's reply token-by-token.
type ChatModel interface {
	// Stream invokes the model and calls onToken for each incremental
	// text chunk as it arrives; returns once the turn is complete.
	Stream(ctx context.Context, apiKey, systemPrompt, userText string, onToken func(string)) error
}

// VoiceActivityDetector flags speech vs. silence in a stream of audio
// frames. Out of scope as implemented business logic; kept as an interface
// for the same reason as Transcriber.
type VoiceActivityDetector interface {
	// Detect feeds one frame and reports whether a speech segment has just
	// ended with it, plus the detector's confidence in that call.
	Detect(frame []int16) (speechEnded bool, confidence float64)
	Reset()
}

// MemoryStore persists and retrieves conversational context outside the
// core. The core pipeline itself never calls this — conversation history
// persistence is an explicit non-goal — but a full deployment wires a real
// store behind this interface for retrieval-augmented prompting upstream
// of the core.
type MemoryStore interface {
	Retrieve(ctx context.Context, query string, topK int) ([]string, error)
	Store(ctx context.Context, sessionID, role, text string) error
}

// IntentClassifier labels free text with an intent/emotion tag. The core
// only relies on the lexical AnalyzeEmotion function in
// internal/pipeline; this interface exists for deployments that want to
// swap in a model-backed classifier behind the same shape.
type IntentClassifier interface {
	Classify(ctx context.Context, text string) (label string, confidence float64, err error)
}
