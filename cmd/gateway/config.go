package main

import (
	"github.com/outlinevoice/gateway/internal/audio"
	"github.com/outlinevoice/gateway/internal/config"
)

// deployConfig holds deployment-level settings sourced from environment
// variables: URLs, ports, and secrets. Runtime tuning knobs (audio format,
// notification behavior, module selection) live in config.Tuning instead.
type deployConfig struct {
	port            string
	postgresURL     string
	ollamaURL       string
	ollamaModel     string
	openAIURL       string
	openAIAPIKey    string
	anthropicURL    string
	anthropicAPIKey string
	piperURL        string
	edgeTTSURL      string
	whisperURL      string
	qdrantURL       string
	embeddingModel  string
	intentURL       string
	asrPoolSize     int
	llmPoolSize     int
	ttsPoolSize     int
	outputDir       string
	vadConfig       audio.VADConfig
}

func loadDeployConfig() deployConfig {
	vad := audio.DefaultVADConfig()
	vad.SpeechThresholdDB = config.Float("VAD_SPEECH_THRESHOLD_DB", vad.SpeechThresholdDB)

	return deployConfig{
		port:            config.Str("GATEWAY_PORT", "8000"),
		postgresURL:     config.Str("POSTGRES_URL", ""),
		ollamaURL:       config.Str("OLLAMA_URL", "http://localhost:11434"),
		ollamaModel:     config.Str("OLLAMA_MODEL", "llama3.2:3b"),
		openAIURL:       config.Str("OPENAI_URL", "https://api.openai.com"),
		openAIAPIKey:    config.Str("OPENAI_API_KEY", ""),
		anthropicURL:    config.Str("ANTHROPIC_URL", "https://api.anthropic.com"),
		anthropicAPIKey: config.Str("ANTHROPIC_API_KEY", ""),
		piperURL:        config.Str("PIPER_URL", "http://localhost:5100"),
		edgeTTSURL:      config.Str("EDGE_TTS_URL", "http://localhost:5200"),
		whisperURL:      config.Str("WHISPER_SERVER_URL", ""),
		qdrantURL:       config.Str("QDRANT_URL", ""),
		embeddingModel:  config.Str("EMBEDDING_MODEL", "nomic-embed-text"),
		intentURL:       config.Str("INTENT_URL", ""),
		asrPoolSize:     config.Int("ASR_POOL_SIZE", 50),
		llmPoolSize:     config.Int("LLM_POOL_SIZE", 50),
		ttsPoolSize:     config.Int("TTS_POOL_SIZE", 50),
		outputDir:       config.Str("TTS_OUTPUT_DIR", "/tmp/gateway-tts"),
		vadConfig:       vad,
	}
}
