package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/outlinevoice/gateway/internal/metrics"
	"github.com/outlinevoice/gateway/internal/pipeline"
)

// AnthropicChatModel streams chat completions from the Anthropic Messages API.
type AnthropicChatModel struct {
	url       string
	model     string
	maxTokens int
	client    *http.Client
}

// NewAnthropicChatModel creates an Anthropic streaming client.
func NewAnthropicChatModel(url, model string, maxTokens, poolSize int) *AnthropicChatModel {
	return &AnthropicChatModel{
		url:       url,
		model:     model,
		maxTokens: maxTokens,
		client:    pipeline.NewPooledHTTPClient(poolSize, 120*time.Second),
	}
}

// Stream satisfies ChatModel. apiKey is the agent_id, forwarded as the
// x-api-key header per the connection-setup contract.
func (c *AnthropicChatModel) Stream(ctx context.Context, apiKey, systemPrompt, userText string, onToken func(string)) error {
	start := time.Now()

	body, err := json.Marshal(anthropicRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Stream:    true,
		System:    systemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: userText}},
	})
	if err != nil {
		return fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("llm", "http").Inc()
		return fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.Errors.WithLabelValues("llm", "status").Inc()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("anthropic status %d: %s", resp.StatusCode, errBody)
	}

	scanner := bufio.NewScanner(resp.Body)
	var eventType string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			eventType = strings.TrimPrefix(line, "event: ")
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		if eventType == "message_stop" {
			break
		}
		if eventType != "content_block_delta" {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		var delta anthropicDeltaEvent
		if json.Unmarshal([]byte(data), &delta) != nil {
			continue
		}
		if text := delta.Delta.Text; text != "" {
			onToken(text)
		}
	}

	metrics.StageDuration.WithLabelValues("llm").Observe(time.Since(start).Seconds())
	return nil
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Stream    bool               `json:"stream"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicDeltaEvent struct {
	Delta anthropicDelta `json:"delta"`
}

type anthropicDelta struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}
