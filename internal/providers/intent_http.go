package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/outlinevoice/gateway/internal/metrics"
	"github.com/outlinevoice/gateway/internal/pipeline"
)

// HTTPIntentClassifier posts text to a sidecar classification service and
// satisfies IntentClassifier. The wire shape is ported from the teacher's
// audio-based classify sidecar client, repurposed here to carry text
// instead of an audio payload.
type HTTPIntentClassifier struct {
	url    string
	client *http.Client
}

// NewHTTPIntentClassifier creates a sidecar intent-classification client.
func NewHTTPIntentClassifier(url string, poolSize int) *HTTPIntentClassifier {
	return &HTTPIntentClassifier{
		url:    url,
		client: pipeline.NewPooledHTTPClient(poolSize, 10*time.Second),
	}
}

// Classify satisfies IntentClassifier.
func (c *HTTPIntentClassifier) Classify(ctx context.Context, text string) (string, float64, error) {
	start := time.Now()

	body, err := json.Marshal(intentRequest{Text: text})
	if err != nil {
		return "", 0, fmt.Errorf("marshal intent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/classify", bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("create intent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("intent", "http").Inc()
		return "", 0, fmt.Errorf("intent request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.Errors.WithLabelValues("intent", "status").Inc()
		return "", 0, fmt.Errorf("intent status %d", resp.StatusCode)
	}

	var result intentResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", 0, fmt.Errorf("decode intent response: %w", err)
	}

	metrics.StageDuration.WithLabelValues("intent").Observe(time.Since(start).Seconds())
	return result.Label, result.Confidence, nil
}

type intentRequest struct {
	Text string `json:"text"`
}

type intentResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}
