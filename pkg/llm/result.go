package llm

// ResultKind discriminates the two shapes a completion can take.
type ResultKind string

const (
	// ResultFinalAnswer means the model produced a direct text answer.
	ResultFinalAnswer ResultKind = "final_answer"

	// ResultToolCalls means the model requested one or more tool executions.
	ResultToolCalls ResultKind = "tool_calls"
)

// ToolCall is a single tool execution requested by the model.
// CallID values are unique within one request/response pair.
type ToolCall struct {
	CallID    string         `json:"call_id"`
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
}

// CompletionResult is the tagged outcome of one completion request: either a
// final text answer or a batch of requested tool calls. Exactly one branch is
// populated depending on Kind.
type CompletionResult struct {
	Kind ResultKind `json:"kind"`

	// Text is the final answer (Kind == ResultFinalAnswer).
	Text string `json:"text,omitempty"`

	// AssistantText is the model's accompanying natural-language text, if
	// any, when requesting tools (Kind == ResultToolCalls).
	AssistantText string `json:"assistant_text,omitempty"`

	// Calls are the requested tool calls, in request order
	// (Kind == ResultToolCalls).
	Calls []ToolCall `json:"calls,omitempty"`
}
