package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/outlinevoice/gateway/internal/metrics"
	"github.com/outlinevoice/gateway/internal/pipeline"
)

// QdrantMemoryStore satisfies MemoryStore against a Qdrant vector database,
// embedding text via an Ollama-compatible /api/embed endpoint. The core
// pipeline never calls this directly — conversation history persistence is
// an explicit non-goal — it exists so a full deployment can wire a real
// Memory provider behind the interface.
type QdrantMemoryStore struct {
	embedURL       string
	embedModel     string
	qdrantURL      string
	collection     string
	topK           int
	scoreThreshold float64
	client         *http.Client
}

// QdrantMemoryConfig configures a QdrantMemoryStore.
type QdrantMemoryConfig struct {
	EmbedURL       string
	EmbedModel     string
	QdrantURL      string
	Collection     string
	TopK           int
	ScoreThreshold float64
	PoolSize       int
}

// NewQdrantMemoryStore creates a Qdrant-backed memory store.
func NewQdrantMemoryStore(cfg QdrantMemoryConfig) *QdrantMemoryStore {
	return &QdrantMemoryStore{
		embedURL:       cfg.EmbedURL,
		embedModel:     cfg.EmbedModel,
		qdrantURL:      cfg.QdrantURL,
		collection:     cfg.Collection,
		topK:           cfg.TopK,
		scoreThreshold: cfg.ScoreThreshold,
		client:         pipeline.NewPooledHTTPClient(cfg.PoolSize, 30*time.Second),
	}
}

// EnsureCollection creates the backing collection if absent; called once
// at startup by cmd/seed.
func (m *QdrantMemoryStore) EnsureCollection(ctx context.Context, vectorSize int) error {
	body, err := json.Marshal(map[string]any{
		"vectors": map[string]any{"size": vectorSize, "distance": "Cosine"},
	})
	if err != nil {
		return fmt.Errorf("marshal collection config: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, m.qdrantURL+"/collections/"+m.collection, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusOK {
		return nil
	}
	return fmt.Errorf("create collection status %d", resp.StatusCode)
}

// Retrieve satisfies MemoryStore: embeds the query, searches the
// collection, and returns the matched texts in score order.
func (m *QdrantMemoryStore) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	start := time.Now()

	vector, err := m.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	k := topK
	if k <= 0 {
		k = m.topK
	}

	body, err := json.Marshal(map[string]any{
		"vector":          vector,
		"limit":           k,
		"score_threshold": m.scoreThreshold,
		"with_payload":    true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.qdrantURL+"/collections/"+m.collection+"/points/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search status %d", resp.StatusCode)
	}

	var result struct {
		Result []struct {
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	metrics.RAGDuration.Observe(time.Since(start).Seconds())

	texts := make([]string, 0, len(result.Result))
	for _, r := range result.Result {
		if text, ok := r.Payload["text"].(string); ok {
			texts = append(texts, text)
		}
	}
	return texts, nil
}

// Store satisfies MemoryStore: embeds and upserts one conversational turn
// in a background goroutine so it never adds latency to the pipeline.
func (m *QdrantMemoryStore) Store(ctx context.Context, sessionID, role, text string) error {
	go func() {
		vector, err := m.embed(ctx, text)
		if err != nil {
			slog.Error("memory store embed", "error", err)
			return
		}

		point := map[string]any{
			"id":     uuid.New().String(),
			"vector": vector,
			"payload": map[string]any{
				"session_id": sessionID,
				"role":       role,
				"text":       text,
				"timestamp":  time.Now().UTC().Format(time.RFC3339),
			},
		}
		body, err := json.Marshal(map[string]any{"points": []any{point}})
		if err != nil {
			slog.Error("memory store marshal", "error", err)
			return
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, m.qdrantURL+"/collections/"+m.collection+"/points", bytes.NewReader(body))
		if err != nil {
			slog.Error("memory store request", "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := m.client.Do(req)
		if err != nil {
			slog.Error("memory store upsert", "error", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			slog.Error("memory store upsert status", "status", resp.StatusCode)
		}
	}()
	return nil
}

// CollectionPointCount reports how many points the collection holds, used
// by cmd/seed to skip re-seeding an already-populated knowledge base.
func (m *QdrantMemoryStore) CollectionPointCount(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.qdrantURL+"/collections/"+m.collection, nil)
	if err != nil {
		return 0, fmt.Errorf("create count request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("count request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("count status %d", resp.StatusCode)
	}

	var result struct {
		Result struct {
			PointsCount int `json:"points_count"`
		} `json:"result"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return result.Result.PointsCount, nil
}

// Seed embeds and upserts one knowledge-base chunk, tagged by its source
// file, synchronously (unlike Store, which is fire-and-forget for
// conversational turns) so cmd/seed can report accurate progress.
func (m *QdrantMemoryStore) Seed(ctx context.Context, source, text string) error {
	vector, err := m.embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed chunk: %w", err)
	}

	point := map[string]any{
		"id":     uuid.New().String(),
		"vector": vector,
		"payload": map[string]any{
			"text":   text,
			"source": source,
		},
	}
	body, err := json.Marshal(map[string]any{"points": []any{point}})
	if err != nil {
		return fmt.Errorf("marshal point: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, m.qdrantURL+"/collections/"+m.collection+"/points", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upsert status %d", resp.StatusCode)
	}
	return nil
}

func (m *QdrantMemoryStore) embed(ctx context.Context, text string) ([]float64, error) {
	start := time.Now()
	defer func() { metrics.EmbeddingDuration.Observe(time.Since(start).Seconds()) }()

	body, err := json.Marshal(map[string]string{"model": m.embedModel, "input": text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.embedURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed status %d", resp.StatusCode)
	}

	var result struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return result.Embeddings[0], nil
}

// RetrievalContext joins retrieved snippets for prompt injection, grounded
// on the teacher's formatResults helper.
func RetrievalContext(texts []string) string {
	return strings.Join(texts, "\n---\n")
}
