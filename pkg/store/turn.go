package store

import (
	"encoding/json"
	"time"
)

// Turn roles. A tool_invocation turn records a complete tool-call round:
// the assistant's request, every tool result, and any accompanying text.
const (
	RoleUser           = "user"
	RoleAssistant      = "assistant"
	RoleToolInvocation = "tool_invocation"
)

// ToolCall is a persisted tool execution request.
type ToolCall struct {
	CallID    string         `json:"call_id"`
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolResult is the persisted outcome for one ToolCall, matched by CallID.
// Exactly one of Payload or Err is populated.
type ToolResult struct {
	CallID  string          `json:"call_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Err     string          `json:"error,omitempty"`
}

// Turn is one atomic unit of conversation history. Tool calls and their
// results stay within a single turn so a replayed context window always
// reconstructs a causally complete exchange.
type Turn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// tool_invocation turns only
	ToolCalls        []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults      []ToolResult `json:"tool_results,omitempty"`
	AssistantContent string       `json:"assistant_content,omitempty"`
}

// Paired reports whether every tool call in the turn has exactly one result
// with a matching call id. Always true for non tool_invocation turns.
func (t *Turn) Paired() bool {
	if len(t.ToolCalls) != len(t.ToolResults) {
		return false
	}

	results := make(map[string]int, len(t.ToolResults))
	for _, r := range t.ToolResults {
		results[r.CallID]++
	}
	for _, c := range t.ToolCalls {
		if results[c.CallID] != 1 {
			return false
		}
	}
	return true
}

// Session identifies a conversation thread owned by a single user.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TurnCount int       `json:"turn_count"`
}

// User is a client identity.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
