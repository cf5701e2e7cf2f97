package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/search"
)

var (
	randomQuestionToolName    = "random_question"
	randomQuestionDescription = "Fetch a random practice question from the study dataset, optionally filtered by difficulty (beginner, intermediate, advanced) and topic."
)

// RandomQuestionInput represents the input arguments for the random_question tool.
type RandomQuestionInput struct {
	Difficulty string `json:"difficulty,omitempty" jsonschema:"difficulty filter: beginner, intermediate, or advanced (omit for any)"`
	Topic      string `json:"topic,omitempty" jsonschema:"topic filter (omit for any)"`
}

// handleRandomQuestion processes a random question request.
func (s *Server) handleRandomQuestion(ctx context.Context, req *mcp.CallToolRequest, input RandomQuestionInput) (*mcp.CallToolResult, search.Question, error) {
	logger := s.config.Logger

	logger.Debug("MCP random question request",
		zap.String("difficulty", input.Difficulty),
		zap.String("topic", input.Topic),
	)

	question, err := s.config.Searcher.RandomQuestion(ctx, input.Difficulty, input.Topic)
	if err != nil {
		logger.Error("random question failed", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to fetch question: %v", err)},
			},
		}, search.Question{}, nil
	}

	jsonBytes, err := json.Marshal(question)
	if err != nil {
		logger.Error("failed to marshal question", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize question: %v", err)},
			},
		}, search.Question{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, *question, nil
}
