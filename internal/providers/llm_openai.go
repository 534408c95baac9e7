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

// OpenAIChatModel streams from the /v1/chat/completions endpoint.
type OpenAIChatModel struct {
	url       string
	model     string
	maxTokens int
	client    *http.Client
}

// NewOpenAIChatModel creates an OpenAI-compatible chat-completions client.
func NewOpenAIChatModel(url, model string, maxTokens, poolSize int) *OpenAIChatModel {
	return &OpenAIChatModel{
		url:       url,
		model:     model,
		maxTokens: maxTokens,
		client:    pipeline.NewPooledHTTPClient(poolSize, 120*time.Second),
	}
}

// Stream satisfies ChatModel. apiKey is the agent_id, forwarded as a Bearer
// token per the connection-setup contract.
func (c *OpenAIChatModel) Stream(ctx context.Context, apiKey, systemPrompt, userText string, onToken func(string)) error {
	start := time.Now()

	body, err := json.Marshal(map[string]any{
		"model":  c.model,
		"stream": true,
		"max_tokens": c.maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userText},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("llm", "http").Inc()
		return fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.Errors.WithLabelValues("llm", "status").Inc()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("chat status %d: %s", resp.StatusCode, errBody)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}
		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if json.Unmarshal([]byte(data), &chunk) != nil || len(chunk.Choices) == 0 {
			continue
		}
		if text := chunk.Choices[0].Delta.Content; text != "" {
			onToken(text)
		}
	}

	metrics.StageDuration.WithLabelValues("llm").Observe(time.Since(start).Seconds())
	return nil
}
