// Package toolexec defines the tool execution boundary: a named tool call
// goes out, a structured result or a typed failure comes back. Retry policy
// belongs to the caller, never to an Invoker.
package toolexec

import (
	"context"
	"encoding/json"
)

// FailureKind classifies tool failures.
type FailureKind string

const (
	// FailureNotFound means the tool name is unknown to the executor.
	FailureNotFound FailureKind = "not_found"

	// FailureTimeout means the tool did not respond within its deadline.
	FailureTimeout FailureKind = "timeout"

	// FailureRemote means the tool executed but reported an error.
	FailureRemote FailureKind = "remote_error"
)

// Failure is a typed tool failure.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// Result is the outcome of one tool invocation: a raw payload on success,
// a Failure otherwise.
type Result struct {
	Payload json.RawMessage `json:"payload,omitempty"`
	Failure *Failure        `json:"failure,omitempty"`
}

// OK reports whether the invocation succeeded.
func (r *Result) OK() bool {
	return r != nil && r.Failure == nil
}

// Invoker executes a named tool call against a tool execution backend.
// Implementations never retry; a failed call is reported as a Failure.
// The error return is reserved for invariant violations (nil arguments,
// cancelled context) - backend problems come back inside the Result.
type Invoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (*Result, error)
}

// Success wraps a payload in a successful Result.
func Success(payload json.RawMessage) *Result {
	return &Result{Payload: payload}
}

// Fail builds a failed Result.
func Fail(kind FailureKind, message string) *Result {
	return &Result{Failure: &Failure{Kind: kind, Message: message}}
}
