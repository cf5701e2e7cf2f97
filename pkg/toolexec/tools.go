package toolexec

import "github.com/cardea-mcp/ExamPrepAgent/pkg/llm"

// Tool names shared by the MCP server, the invokers, and the completion
// tool schema.
const (
	SearchToolName         = "search"
	RandomQuestionToolName = "random_question"
)

// DefaultTools is the fixed tool schema advertised to the completion service
// on every round.
func DefaultTools() []llm.Tool {
	return []llm.Tool{
		{
			Name:        SearchToolName,
			Description: "Search for relevant question and answer pairs from the study dataset. Returns the most relevant pairs with relevance scores.",
			Parameters: llm.ToolParameters{
				Type: "object",
				Properties: map[string]llm.ToolProperty{
					"query": {
						Type:        "string",
						Description: "the search query text",
					},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        RandomQuestionToolName,
			Description: "Fetch a random practice question, optionally filtered by difficulty (beginner, intermediate, advanced) and topic.",
			Parameters: llm.ToolParameters{
				Type: "object",
				Properties: map[string]llm.ToolProperty{
					"difficulty": {
						Type:        "string",
						Description: "beginner, intermediate, or advanced; omit for any",
					},
					"topic": {
						Type:        "string",
						Description: "topic to draw from; omit for any",
					},
				},
			},
		},
	}
}
