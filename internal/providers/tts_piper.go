package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/outlinevoice/gateway/internal/metrics"
	"github.com/outlinevoice/gateway/internal/pipeline"
)

// PiperSynthesizer calls a Piper HTTP synthesis server.
type PiperSynthesizer struct {
	url    string
	client *http.Client
}

// NewPiperSynthesizer creates a client pointing at the Piper service.
func NewPiperSynthesizer(url string, poolSize int) *PiperSynthesizer {
	return &PiperSynthesizer{
		url:    url,
		client: pipeline.NewPooledHTTPClient(poolSize, 30*time.Second),
	}
}

// Synthesize satisfies Synthesizer.
func (c *PiperSynthesizer) Synthesize(ctx context.Context, text, voice, outPath string) error {
	start := time.Now()

	body, err := json.Marshal(piperRequest{Text: text, Voice: voice})
	if err != nil {
		return fmt.Errorf("marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("tts", "http").Inc()
		return fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.Errors.WithLabelValues("tts", "status").Inc()
		return fmt.Errorf("tts status %d", resp.StatusCode)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read tts response: %w", err)
	}

	if err := os.WriteFile(outPath, audioData, 0o644); err != nil {
		return fmt.Errorf("write synthesized audio: %w", err)
	}

	metrics.StageDuration.WithLabelValues("tts").Observe(time.Since(start).Seconds())
	return nil
}

type piperRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}
