package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/openai/openai-go/v2/packages/param"

	"github.com/outlinevoice/gateway/internal/audio"
	"github.com/outlinevoice/gateway/internal/config"
	"github.com/outlinevoice/gateway/internal/logging"
	"github.com/outlinevoice/gateway/internal/pipeline"
	"github.com/outlinevoice/gateway/internal/prompts"
	"github.com/outlinevoice/gateway/internal/providers"
	"github.com/outlinevoice/gateway/internal/store"
	"github.com/outlinevoice/gateway/internal/trace"
	"github.com/outlinevoice/gateway/internal/transport"
)

func main() {
	logging.Init(slog.LevelInfo)

	deploy := loadDeployConfig()
	tuning := config.LoadTuning("gateway.json")

	var voiceStore *store.Store
	if deploy.postgresURL != "" {
		var err error
		voiceStore, err = store.Open(deploy.postgresURL)
		if err != nil {
			slog.Error("voice store open failed", "error", err)
		}
	}

	var traceStore *trace.Store
	if deploy.postgresURL != "" {
		var err error
		traceStore, err = trace.Open(deploy.postgresURL)
		if err != nil {
			slog.Error("trace store open failed", "error", err)
		} else {
			slog.Info("tracing enabled")
		}
	}

	chatModel := initChatModel(deploy, tuning)
	fallbackTTS, voicedTTS := initTTS(deploy)
	transcriber, newVAD, memory, intent := initCollaborators(deploy, tuning)

	if err := os.MkdirAll(deploy.outputDir, 0o755); err != nil {
		slog.Error("create tts output dir", "error", err, "dir", deploy.outputDir)
		os.Exit(1)
	}

	handler := transport.NewHandler(transport.HandlerConfig{
		VoiceStore:   voiceStore,
		TraceStore:   traceStore,
		FallbackTTS:  fallbackTTS,
		VoicedTTS:    voicedTTS,
		ChatModel:    chatModel,
		OutputDir:    deploy.outputDir,
		DeleteAudio:  tuning.DeleteAudio,
		SystemPrompt: prompts.ForSession(tuning.LLMSystemPrompt),
		Transcriber:  transcriber,
		NewVAD:       newVAD,
		Memory:       memory,
		Intent:       intent,
		SampleRate:   deploy.vadConfig.SampleRate,
		Tuning: func() (audio.WireFormat, pipeline.EmotionStyle, bool, []byte, bool) {
			format := audio.WireFormatOpus
			if tuning.AudioFormat == "pcm" {
				format = audio.WireFormatPCM
			}
			style := pipeline.EmotionStyleGlyph
			if tuning.EmotionStyle == "label" {
				style = pipeline.EmotionStyleLabel
			}
			var notifyAudio []byte
			if tuning.EnableStopTTSNotify && tuning.StopTTSNotifyVoice != "" {
				if data, err := os.ReadFile(tuning.StopTTSNotifyVoice); err == nil {
					notifyAudio = data
				}
			}
			return format, style, tuning.EnableStopTTSNotify, notifyAudio, false
		},
	})

	mux := http.NewServeMux()
	registerRoutes(mux, routeDeps{
		wsHandler:  handler,
		traceStore: traceStore,
	})

	addr := ":" + deploy.port
	srv := &http.Server{Addr: addr, Handler: mux}

	go awaitShutdown(srv, voiceStore, traceStore)

	slog.Info("gateway starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("gateway stopped")
}

func awaitShutdown(srv *http.Server, voiceStore *store.Store, traceStore *trace.Store) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if voiceStore != nil {
		voiceStore.Close()
	}
	if traceStore != nil {
		traceStore.Close()
	}

	srv.Shutdown(ctx)
}

// initChatModel registers the LLM backends a deployment can reach and
// routes to the one selected in tuning.Modules.LLM, falling back to ollama.
func initChatModel(deploy deployConfig, tuning config.Tuning) providers.ChatModel {
	backends := map[string]providers.ChatModel{
		"ollama": providers.NewOllamaChatModel(deploy.ollamaURL, deploy.ollamaModel, tuning.LLMMaxTokens, deploy.llmPoolSize),
	}
	if deploy.openAIAPIKey != "" {
		backends["openai"] = providers.NewOpenAIChatModel(deploy.openAIURL, "gpt-4.1-nano", tuning.LLMMaxTokens, deploy.llmPoolSize)
	}
	if deploy.anthropicAPIKey != "" {
		backends["anthropic"] = providers.NewAnthropicChatModel(deploy.anthropicURL, "claude-sonnet-4-5", tuning.LLMMaxTokens, deploy.llmPoolSize)
	}
	backends["agent-sdk"] = providers.NewAgentChatModel(agents.NewOpenAIProvider(agents.OpenAIProviderParams{
		BaseURL:      param.NewOpt(deploy.ollamaURL + "/v1/"),
		APIKey:       param.NewOpt("ollama"),
		UseResponses: param.NewOpt(false),
	}), deploy.ollamaModel, tuning.LLMMaxTokens)
	router := pipeline.NewRouter(backends, "ollama")
	model, _ := router.Route(tuning.Modules.LLM)
	return model
}

// initTTS builds the fallback free-tier synthesizer and the engine-keyed
// map of bound-voice synthesizers the transport handler selects from.
func initTTS(deploy deployConfig) (providers.Synthesizer, map[string]providers.Synthesizer) {
	fallback := providers.NewEdgeSynthesizer(deploy.edgeTTSURL, deploy.ttsPoolSize)
	voiced := map[string]providers.Synthesizer{
		"edge":  fallback,
		"piper": providers.NewPiperSynthesizer(deploy.piperURL, deploy.ttsPoolSize),
	}
	return fallback, voiced
}

// initCollaborators builds the ASR/VAD/Memory/Intent adapters the core
// pipeline never calls directly (per spec.md §1 non-goals) but that
// transport wires at the connection boundary for a full demo server. Each
// is nil unless its backing URL is configured.
func initCollaborators(deploy deployConfig, tuning config.Tuning) (providers.Transcriber, func() providers.VoiceActivityDetector, providers.MemoryStore, providers.IntentClassifier) {
	var transcriber providers.Transcriber
	if deploy.whisperURL != "" {
		transcriber = providers.NewWhisperTranscriber(deploy.whisperURL, deploy.asrPoolSize)
	}

	var newVAD func() providers.VoiceActivityDetector
	if transcriber != nil {
		vadConfig := deploy.vadConfig
		newVAD = func() providers.VoiceActivityDetector { return providers.NewEnergyVAD(vadConfig) }
	}

	var memory providers.MemoryStore
	if deploy.qdrantURL != "" {
		memory = providers.NewQdrantMemoryStore(providers.QdrantMemoryConfig{
			EmbedURL:       deploy.ollamaURL,
			EmbedModel:     deploy.embeddingModel,
			QdrantURL:      deploy.qdrantURL,
			Collection:     "knowledge_base",
			TopK:           3,
			ScoreThreshold: 0.5,
			PoolSize:       4,
		})
	}

	var intent providers.IntentClassifier
	if deploy.intentURL != "" {
		intent = providers.NewHTTPIntentClassifier(deploy.intentURL, 4)
	}

	return transcriber, newVAD, memory, intent
}
