// Package whisper implements pkg/audio's Transcriber against an
// OpenAI-compatible /audio/transcriptions endpoint (whisper.cpp server,
// llama-nexus, OpenAI).
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL points at a local whisper-capable gateway.
	DefaultBaseURL = "http://localhost:9095/v1"

	// DefaultModel is the transcription model name.
	DefaultModel = "whisper-1"

	// DefaultTimeout bounds one transcription round trip.
	DefaultTimeout = 60 * time.Second
)

// Transcriber wraps an OpenAI-compatible transcription API.
type Transcriber struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Config holds configuration for the whisper transcriber.
type Config struct {
	// BaseURL defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Model defaults to DefaultModel if empty.
	Model string

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
}

// transcriptionResponse is the JSON response body.
type transcriptionResponse struct {
	Text string `json:"text"`
}

// NewTranscriber creates a new whisper transcriber.
func NewTranscriber(c Config) *Transcriber {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Transcriber{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  c.APIKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Transcribe sends the WAV clip as a multipart upload and returns the
// recognized text.
func (t *Transcriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return "", fmt.Errorf("writing audio data: %w", err)
	}
	if err := writer.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("writing model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing multipart writer: %w", err)
	}

	url := t.baseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("transcription backend returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return strings.TrimSpace(parsed.Text), nil
}
