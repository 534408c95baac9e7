package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/outlinevoice/gateway/internal/metrics"
	"github.com/outlinevoice/gateway/internal/pipeline"
)

// EdgeSynthesizer is the free fallback synthesizer used when an agent has
// no bound voice (see internal/store.LookupVoice). It proxies a minimal
// text/voice GET request to a local Edge-TTS sidecar.
type EdgeSynthesizer struct {
	url    string
	client *http.Client
}

// NewEdgeSynthesizer creates the fallback synthesizer client.
func NewEdgeSynthesizer(sidecarURL string, poolSize int) *EdgeSynthesizer {
	return &EdgeSynthesizer{
		url:    sidecarURL,
		client: pipeline.NewPooledHTTPClient(poolSize, 30*time.Second),
	}
}

// Synthesize satisfies Synthesizer.
func (c *EdgeSynthesizer) Synthesize(ctx context.Context, text, voice, outPath string) error {
	start := time.Now()

	q := url.Values{"text": {text}, "voice": {voice}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/tts?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create edge-tts request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("tts", "http").Inc()
		return fmt.Errorf("edge-tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.Errors.WithLabelValues("tts", "status").Inc()
		return fmt.Errorf("edge-tts status %d", resp.StatusCode)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read edge-tts response: %w", err)
	}

	if err := os.WriteFile(outPath, audioData, 0o644); err != nil {
		return fmt.Errorf("write synthesized audio: %w", err)
	}

	metrics.StageDuration.WithLabelValues("tts").Observe(time.Since(start).Seconds())
	return nil
}
