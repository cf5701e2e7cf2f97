// Package gtts implements pkg/audio's Synthesizer against an
// OpenAI-compatible /audio/speech endpoint.
package gtts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL points at a local TTS-capable gateway.
	DefaultBaseURL = "http://localhost:9095/v1"

	// DefaultModel is the synthesis model name.
	DefaultModel = "tts-1"

	// DefaultVoice is the synthesis voice.
	DefaultVoice = "alloy"

	// DefaultTimeout bounds one synthesis round trip.
	DefaultTimeout = 60 * time.Second
)

// Synthesizer wraps an OpenAI-compatible speech synthesis API.
type Synthesizer struct {
	baseURL    string
	apiKey     string
	model      string
	voice      string
	httpClient *http.Client
}

// Config holds configuration for the synthesizer.
type Config struct {
	// BaseURL defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Model defaults to DefaultModel if empty.
	Model string

	// Voice defaults to DefaultVoice if empty.
	Voice string

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
}

// speechRequest is the JSON request body.
type speechRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
}

// NewSynthesizer creates a new speech synthesizer.
func NewSynthesizer(c Config) *Synthesizer {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	voice := c.Voice
	if voice == "" {
		voice = DefaultVoice
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Synthesizer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  c.APIKey,
		model:   model,
		voice:   voice,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize converts text into audio bytes.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(speechRequest{
		Model: s.model,
		Input: text,
		Voice: s.voice,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	url := s.baseURL + "/audio/speech"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesis backend returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
