package providers

import (
	"context"
	"fmt"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/nlpodyssey/openai-agents-go/modelsettings"
	"github.com/openai/openai-go/v2/packages/param"
)

// AgentChatModel streams completions through the openai-agents-go SDK
// runner rather than a hand-rolled HTTP stream, for providers that benefit
// from the SDK's tool-calling and tracing scaffolding.
type AgentChatModel struct {
	provider  agents.ModelProvider
	model     string
	maxTokens int
}

// NewAgentChatModel wraps an SDK model provider as a ChatModel.
func NewAgentChatModel(provider agents.ModelProvider, model string, maxTokens int) *AgentChatModel {
	return &AgentChatModel{provider: provider, model: model, maxTokens: maxTokens}
}

// Stream satisfies ChatModel. apiKey is unused: SDK providers carry their
// own transport credentials at construction time.
func (a *AgentChatModel) Stream(ctx context.Context, apiKey, systemPrompt, userText string, onToken func(string)) error {
	agent := agents.New("assistant").
		WithInstructions(systemPrompt).
		WithModel(a.model).
		WithModelSettings(modelsettings.ModelSettings{
			MaxTokens: param.NewOpt(int64(a.maxTokens)),
		})

	runner := agents.Runner{Config: agents.RunConfig{
		ModelProvider:   a.provider,
		MaxTurns:        1,
		TracingDisabled: true,
	}}

	events, errCh, err := runner.RunStreamedChan(ctx, agent, userText)
	if err != nil {
		return fmt.Errorf("llm stream start: %w", err)
	}

	for ev := range events {
		raw, ok := ev.(agents.RawResponsesStreamEvent)
		if !ok || raw.Data.Type != "response.output_text.delta" {
			continue
		}
		onToken(raw.Data.Delta)
	}

	if streamErr := <-errCh; streamErr != nil {
		return fmt.Errorf("llm stream: %w", streamErr)
	}
	return nil
}
