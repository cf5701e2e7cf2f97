// Package openai implements pkg/llm's Completer against any OpenAI-compatible
// chat-completions endpoint (OpenAI, llama-nexus, Gaia, vLLM, etc.).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/llm"
)

const (
	// DefaultBaseURL points at a local llama-nexus style gateway.
	DefaultBaseURL = "http://localhost:9095/v1"

	// DefaultTimeout bounds one completion round trip. Every upstream call
	// must complete or fail within this window; a hang is surfaced as an
	// UpstreamError rather than left pending.
	DefaultTimeout = 120 * time.Second
)

// Completer is an OpenAI-compatible chat completions client.
type Completer struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds configuration for the OpenAI-compatible completer.
type Config struct {
	// BaseURL is the API root (e.g. "https://api.openai.com/v1").
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Timeout bounds a single completion request. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// NewCompleter creates a new OpenAI-compatible completer.
func NewCompleter(c Config, logger *zap.Logger) *Completer {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Completer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  c.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Complete sends one chat completion request and maps the response into the
// tagged CompletionResult.
func (c *Completer) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.CompletionResult, error) {
	payload, err := json.Marshal(encodeRequest(req))
	if err != nil {
		return nil, fmt.Errorf("encoding completion request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("completion request",
		zap.String("url", url),
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
		zap.Int("tools", len(req.Tools)),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &llm.UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &llm.UpstreamError{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp openaiErrorResponse
		msg := string(body)
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return nil, &llm.UpstreamError{Status: resp.StatusCode, Message: msg}
	}

	var parsed openaiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &llm.UpstreamError{Status: resp.StatusCode, Message: fmt.Sprintf("decoding response: %v", err)}
	}

	if len(parsed.Choices) == 0 {
		return nil, &llm.UpstreamError{Status: resp.StatusCode, Message: "response contained no choices"}
	}

	return decodeMessage(parsed.Choices[0].Message)
}

// encodeRequest translates the provider-neutral request into OpenAI's wire
// format. Tool-invocation turns expand into an assistant message carrying
// tool_calls followed by one role:"tool" message per call id, which is the
// pairing the chat-completions protocol requires.
func encodeRequest(req *llm.ChatRequest) openaiRequest {
	messages := make([]openaiMessage, 0, len(req.Messages)+1)

	if req.System != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: req.System})
	}

	for _, msg := range req.Messages {
		var text string
		var calls []openaiToolCall
		var results []openaiMessage

		for _, block := range msg.Content {
			switch block.Type {
			case "text":
				text += block.Text
			case "tool_use":
				args, _ := json.Marshal(block.ToolInput)
				call := openaiToolCall{ID: block.ToolUseID, Type: "function"}
				call.Function.Name = block.ToolName
				call.Function.Arguments = string(args)
				calls = append(calls, call)
			case "tool_result":
				results = append(results, openaiMessage{
					Role:       "tool",
					Content:    block.ToolOutput,
					ToolCallID: block.ToolResultID,
				})
			}
		}

		if len(results) > 0 && msg.Role == "tool" {
			messages = append(messages, results...)
			continue
		}

		out := openaiMessage{Role: msg.Role, Content: text, ToolCalls: calls}
		messages = append(messages, out)
		messages = append(messages, results...)
	}

	encoded := openaiRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	if len(req.Tools) > 0 {
		encoded.Tools = make([]openaiTool, 0, len(req.Tools))
		for _, tool := range req.Tools {
			encoded.Tools = append(encoded.Tools, openaiTool{
				Type: "function",
				Function: openaiFunction{
					Name:        tool.Name,
					Description: tool.Description,
					Parameters:  tool.Parameters,
				},
			})
		}
		encoded.ToolChoice = "auto"
	}

	return encoded
}

// decodeMessage maps an assistant message into the tagged CompletionResult.
func decodeMessage(msg openaiMessage) (*llm.CompletionResult, error) {
	if len(msg.ToolCalls) == 0 {
		return &llm.CompletionResult{
			Kind: llm.ResultFinalAnswer,
			Text: msg.Content,
		}, nil
	}

	calls := make([]llm.ToolCall, 0, len(msg.ToolCalls))
	seen := make(map[string]bool, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		if tc.ID == "" || seen[tc.ID] {
			return nil, &llm.UpstreamError{Message: fmt.Sprintf("duplicate or empty tool call id %q", tc.ID)}
		}
		seen[tc.ID] = true

		var args map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, &llm.UpstreamError{Message: fmt.Sprintf("malformed tool call arguments for %q: %v", tc.Function.Name, err)}
			}
		}

		calls = append(calls, llm.ToolCall{
			CallID:    tc.ID,
			ToolName:  tc.Function.Name,
			Arguments: args,
		})
	}

	return &llm.CompletionResult{
		Kind:          llm.ResultToolCalls,
		AssistantText: msg.Content,
		Calls:         calls,
	}, nil
}
