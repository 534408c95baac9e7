package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/outlinevoice/gateway/internal/metrics"
	"github.com/outlinevoice/gateway/internal/pipeline"
)

// OllamaChatModel streams chat completions from a local Ollama server.
type OllamaChatModel struct {
	url       string
	model     string
	maxTokens int
	client    *http.Client
}

// NewOllamaChatModel creates an Ollama HTTP client.
func NewOllamaChatModel(url, model string, maxTokens, poolSize int) *OllamaChatModel {
	return &OllamaChatModel{
		url:       url,
		model:     model,
		maxTokens: maxTokens,
		client:    pipeline.NewPooledHTTPClient(poolSize, 60*time.Second),
	}
}

// Stream satisfies ChatModel. apiKey is accepted for interface symmetry but
// unused: Ollama has no per-request credential.
func (c *OllamaChatModel) Stream(ctx context.Context, apiKey, systemPrompt, userText string, onToken func(string)) error {
	start := time.Now()

	body, err := json.Marshal(ollamaRequest{
		Model:  c.model,
		Stream: true,
		Options: ollamaOptions{NumPredict: c.maxTokens},
		Messages: []ollamaMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userText},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("llm", "http").Inc()
		return fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.Errors.WithLabelValues("llm", "status").Inc()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ollama status %d: %s", resp.StatusCode, errBody)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var chunk ollamaStreamChunk
		if json.Unmarshal(scanner.Bytes(), &chunk) != nil {
			continue
		}
		if chunk.Done {
			break
		}
		if chunk.Message.Content != "" {
			onToken(chunk.Message.Content)
		}
	}

	metrics.StageDuration.WithLabelValues("llm").Observe(time.Since(start).Seconds())
	return nil
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Stream   bool            `json:"stream"`
	Messages []ollamaMessage `json:"messages"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	NumPredict int `json:"num_predict"`
}

type ollamaStreamChunk struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}
