package llm

// ChatRequest represents a provider-agnostic chat completion request.
// The orchestrator builds one of these per round; the provider package
// translates it into the upstream wire format.
type ChatRequest struct {
	// Model name (e.g., "gpt-4o-mini", "Qwen3-235B-A22B-Q4_K_M")
	Model string `json:"model"`

	// System prompt (kept separate from the message list so providers that
	// handle system instructions out of band can do so)
	System string `json:"system,omitempty"`

	// Conversation messages reconstructed from the context window
	Messages []Message `json:"messages"`

	// Tools the model may request during this exchange
	Tools []Tool `json:"tools,omitempty"`

	// Generation parameters
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Tool declares a callable tool to the completion service.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  ToolParameters `json:"parameters"`
}

// ToolParameters is a JSON-schema object describing a tool's arguments.
type ToolParameters struct {
	Type       string                  `json:"type"`
	Properties map[string]ToolProperty `json:"properties"`
	Required   []string                `json:"required,omitempty"`
}

// ToolProperty describes a single tool argument.
type ToolProperty struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}
