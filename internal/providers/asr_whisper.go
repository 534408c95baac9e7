package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/outlinevoice/gateway/internal/audio"
	"github.com/outlinevoice/gateway/internal/metrics"
	"github.com/outlinevoice/gateway/internal/pipeline"
)

// WhisperTranscriber sends audio to a whisper.cpp server for transcription.
// ASR is out of scope as core pipeline logic (§1 non-goals); this adapter
// exists so cmd/gateway can assemble a runnable end-to-end demo.
type WhisperTranscriber struct {
	url    string
	client *http.Client
}

// NewWhisperTranscriber creates a client pointing at the whisper.cpp server.
func NewWhisperTranscriber(url string, poolSize int) *WhisperTranscriber {
	return &WhisperTranscriber{
		url:    url,
		client: pipeline.NewPooledHTTPClient(poolSize, 30*time.Second),
	}
}

// Transcribe satisfies Transcriber. sampleRate selects the WAV header
// written for the multipart upload.
func (c *WhisperTranscriber) Transcribe(ctx context.Context, samples []byte, sampleRate int) (string, error) {
	start := time.Now()

	floatSamples := make([]float32, len(samples)/2)
	for i := range floatSamples {
		s := int16(samples[2*i]) | int16(samples[2*i+1])<<8
		floatSamples[i] = float32(s) / 32768.0
	}
	wavData := audio.SamplesToWAV(floatSamples, sampleRate)

	body, contentType, err := buildMultipartAudio(wavData)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/inference", body)
	if err != nil {
		return "", fmt.Errorf("create asr request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("asr", "http").Inc()
		return "", fmt.Errorf("asr request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		metrics.Errors.WithLabelValues("asr", "status").Inc()
		return "", fmt.Errorf("asr status %d: %s", resp.StatusCode, respBody)
	}

	var whisperResp struct {
		Text string `json:"text"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&whisperResp); err != nil {
		return "", fmt.Errorf("decode asr response: %w", err)
	}

	metrics.StageDuration.WithLabelValues("asr").Observe(time.Since(start).Seconds())
	return whisperResp.Text, nil
}

func buildMultipartAudio(wavData []byte) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err = part.Write(wavData); err != nil {
		return nil, "", fmt.Errorf("write wav data: %w", err)
	}
	if err = writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}
