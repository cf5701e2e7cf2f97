// Package mcptool provides a tool invoker backed by a remote MCP server
// over streamable HTTP.
package mcptool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/toolexec"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/utils"
)

// DefaultTimeout bounds one remote tool call.
const DefaultTimeout = 30 * time.Second

// Invoker executes tool calls against a remote MCP server.
type Invoker struct {
	session *mcp.ClientSession
	known   map[string]bool
	timeout time.Duration
	logger  *zap.Logger
}

// Config holds configuration for the MCP invoker.
type Config struct {
	// Endpoint is the MCP server URL (e.g. "http://localhost:9096/mcp").
	Endpoint string

	// Timeout bounds a single tool call. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// NewInvoker connects to the MCP server and lists its tools. Tool names not
// advertised by the server fail fast with FailureNotFound instead of a
// round trip.
func NewInvoker(ctx context.Context, c Config, logger *zap.Logger) (*Invoker, error) {
	if c.Endpoint == "" {
		return nil, errors.New("mcp endpoint is required")
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "exambot",
		Version: utils.Version,
	}, nil)

	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{
		Endpoint: c.Endpoint,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to MCP server %q: %w", c.Endpoint, err)
	}

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("listing MCP tools: %w", err)
	}

	known := make(map[string]bool, len(tools.Tools))
	for _, tool := range tools.Tools {
		logger.Debug("discovered MCP tool", zap.String("tool", tool.Name))
		known[tool.Name] = true
	}

	return &Invoker{
		session: session,
		known:   known,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Invoke executes one tool call against the MCP server.
func (i *Invoker) Invoke(ctx context.Context, name string, args map[string]any) (*toolexec.Result, error) {
	if !i.known[name] {
		return toolexec.Fail(toolexec.FailureNotFound, fmt.Sprintf("unknown tool %q", name)), nil
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	i.logger.Debug("MCP tool call", zap.String("tool", name))

	res, err := i.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return toolexec.Fail(toolexec.FailureTimeout, err.Error()), nil
		}
		return toolexec.Fail(toolexec.FailureRemote, err.Error()), nil
	}

	text := contentText(res.Content)
	if res.IsError {
		return toolexec.Fail(toolexec.FailureRemote, text), nil
	}

	// Tool output travels as serialized JSON in a text block; pass it back
	// verbatim when it already is JSON, wrap it otherwise.
	if json.Valid([]byte(text)) {
		return toolexec.Success(json.RawMessage(text)), nil
	}

	raw, err := json.Marshal(text)
	if err != nil {
		return nil, fmt.Errorf("marshaling tool output: %w", err)
	}
	return toolexec.Success(raw), nil
}

// Close closes the MCP session.
func (i *Invoker) Close() error {
	return i.session.Close()
}

func contentText(content []mcp.Content) string {
	var text string
	for _, block := range content {
		if tc, ok := block.(*mcp.TextContent); ok {
			text += tc.Text
		}
	}
	return text
}
