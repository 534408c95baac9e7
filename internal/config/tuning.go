package config

import (
	"encoding/json"
	"log/slog"
	"os"
)

// Tuning holds the recognized runtime knobs a deployment may configure via
// gateway.json, matching the keys listed in spec.md §6.
type Tuning struct {
	TTSTimeoutSeconds   int    `json:"tts_timeout"`
	AudioFormat         string `json:"audio_format"` // "pcm" | "opus"
	DeleteAudio         bool   `json:"delete_audio"`
	EnableStopTTSNotify bool   `json:"enable_stop_tts_notify"`
	StopTTSNotifyVoice  string `json:"stop_tts_notify_voice"`
	EndPrompt           struct {
		Prompt string `json:"prompt"`
	} `json:"end_prompt"`
	MaxOutputSize int `json:"max_output_size"`

	// Selected module names per role, per spec.md §6.
	Modules struct {
		ASR    string `json:"ASR"`
		LLM    string `json:"LLM"`
		TTS    string `json:"TTS"`
		VAD    string `json:"VAD"`
		Memory string `json:"Memory"`
		Intent string `json:"Intent"`
	} `json:"modules"`

	LLMSystemPrompt string `json:"llm_system_prompt"`
	LLMMaxTokens    int    `json:"llm_max_tokens"`
	EmotionStyle    string `json:"emotion_style"` // "glyph" | "label"
}

// DefaultTuning returns sensible defaults for a standalone deployment.
func DefaultTuning() Tuning {
	t := Tuning{
		TTSTimeoutSeconds: 10,
		AudioFormat:       "opus",
		DeleteAudio:       true,
		MaxOutputSize:     0,
		LLMSystemPrompt:   "You are a helpful voice assistant. Keep responses concise and conversational.",
		LLMMaxTokens:      2048,
		EmotionStyle:      "glyph",
	}
	t.Modules.ASR = "whisper"
	t.Modules.LLM = "ollama"
	t.Modules.TTS = "edge"
	t.Modules.VAD = "energy"
	t.Modules.Memory = "qdrant"
	t.Modules.Intent = "lexical"
	return t
}

// LoadTuning reads path as JSON tuning overrides; missing or invalid files
// fall back to defaults.
func LoadTuning(path string) Tuning {
	t := DefaultTuning()
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Info("no tuning file, using defaults", "path", path)
		return t
	}
	if err = json.Unmarshal(data, &t); err != nil {
		slog.Warn("bad tuning file, using defaults", "path", path, "error", err)
		return DefaultTuning()
	}
	slog.Info("loaded tuning", "path", path)
	return t
}
