// Package llm defines the provider-neutral chat completion model: messages,
// tool schemas, and the tagged completion result the orchestrator branches on.
package llm

import (
	"context"
	"fmt"
)

// Completer sends one chat completion request to an upstream service.
// Implementations live under pkg/llm/provider.
type Completer interface {
	// Complete returns either a final answer or a tool-call request.
	// Transport and protocol failures are reported as *UpstreamError;
	// the orchestrator treats those as terminal for the current turn.
	Complete(ctx context.Context, req *ChatRequest) (*CompletionResult, error)
}

// UpstreamError indicates the completion service was unreachable or returned
// a malformed or non-2xx response. Status is zero when no HTTP status was
// received (e.g. connection refused, timeout).
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("completion upstream: %s", e.Message)
	}
	return fmt.Sprintf("completion upstream: status %d: %s", e.Status, e.Message)
}
