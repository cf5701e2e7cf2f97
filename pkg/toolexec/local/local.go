// Package local provides an in-process tool invoker serving the knowledge
// tools directly from pkg/search, with no tool-execution service in between.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/search"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/toolexec"
)

// DefaultTimeout bounds one local tool execution (the vector store and
// embedder are still remote services).
const DefaultTimeout = 30 * time.Second

// Invoker serves the search and random_question tools in-process.
type Invoker struct {
	searcher *search.Searcher
	timeout  time.Duration
	logger   *zap.Logger
}

// NewInvoker creates a local tool invoker backed by the given searcher.
func NewInvoker(searcher *search.Searcher, logger *zap.Logger) *Invoker {
	return &Invoker{
		searcher: searcher,
		timeout:  DefaultTimeout,
		logger:   logger,
	}
}

// Invoke executes one tool call.
func (i *Invoker) Invoke(ctx context.Context, name string, args map[string]any) (*toolexec.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	i.logger.Debug("local tool call", zap.String("tool", name))

	var (
		payload any
		err     error
	)

	switch name {
	case toolexec.SearchToolName:
		payload, err = i.searcher.Search(ctx, stringArg(args, "query"), search.DefaultTopK)
	case toolexec.RandomQuestionToolName:
		payload, err = i.searcher.RandomQuestion(ctx, stringArg(args, "difficulty"), stringArg(args, "topic"))
	default:
		return toolexec.Fail(toolexec.FailureNotFound, fmt.Sprintf("unknown tool %q", name)), nil
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return toolexec.Fail(toolexec.FailureTimeout, err.Error()), nil
		}
		return toolexec.Fail(toolexec.FailureRemote, err.Error()), nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling tool payload: %w", err)
	}
	return toolexec.Success(raw), nil
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	s, _ := args[key].(string)
	return s
}
