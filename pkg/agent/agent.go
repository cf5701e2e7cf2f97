// Package agent runs the tool-calling conversation loop. Each user message
// drives completion rounds against the model, dispatching any requested tool
// calls and feeding their results back, until the model produces a final
// answer or the round ceiling is hit. Nothing is written to the store until
// the exchange reaches a terminal state, at which point every turn of the
// exchange is committed in a single atomic append.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/eventstream"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/eventstream/nop"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/llm"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/store"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/toolexec"
)

const (
	// DefaultMaxRounds bounds how many completion rounds a single user
	// message may consume before the exchange is aborted.
	DefaultMaxRounds = 5

	// DefaultWindowSize is how many prior turns are replayed to the model.
	DefaultWindowSize = 40
)

// Config carries the collaborators for an Orchestrator. Store and Completer
// are required. Invoker may be nil when no tools are offered, and Publisher
// may be nil to skip event emission.
type Config struct {
	Store        store.Driver
	Completer    llm.Completer
	Invoker      toolexec.Invoker
	Publisher    eventstream.Publisher
	Model        string
	SystemPrompt string
	Tools        []llm.Tool
	MaxRounds    int
	WindowSize   int
	Logger       *zap.Logger
}

// Reply is the outcome of one user message.
type Reply struct {
	Text    string
	Rounds  int
	Aborted bool
}

// Orchestrator owns the completion loop for one deployment. It is safe for
// concurrent use across sessions; concurrent messages into the same session
// serialize at the store's append.
type Orchestrator struct {
	store      store.Driver
	completer  llm.Completer
	invoker    toolexec.Invoker
	publisher  eventstream.Publisher
	model      string
	system     string
	tools      []llm.Tool
	maxRounds  int
	windowSize int
	logger     *zap.Logger
}

// NewOrchestrator validates cfg and applies defaults.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("agent: store is required")
	}
	if cfg.Completer == nil {
		return nil, fmt.Errorf("agent: completer is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.Publisher == nil {
		cfg.Publisher = nop.NewPublisher()
	}
	return &Orchestrator{
		store:      cfg.Store,
		completer:  cfg.Completer,
		invoker:    cfg.Invoker,
		publisher:  cfg.Publisher,
		model:      cfg.Model,
		system:     cfg.SystemPrompt,
		tools:      cfg.Tools,
		maxRounds:  cfg.MaxRounds,
		windowSize: cfg.WindowSize,
		logger:     cfg.Logger,
	}, nil
}

// HandleMessage runs the full loop for one user message. The session must
// exist; store.NotFoundError is returned before any model work happens. On a
// final answer the user turn, every tool invocation turn, and the assistant
// turn are committed together. A hit round ceiling commits the exchange with
// a fallback assistant turn and returns Reply.Aborted = true. An upstream
// model failure commits the user turn plus an apology turn and returns the
// wrapped error alongside the reply.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, text string) (*Reply, error) {
	session, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	window, err := o.store.ReadWindow(ctx, sessionID, o.windowSize)
	if err != nil {
		return nil, err
	}

	userTurn := &store.Turn{
		ID:        uuid.New().String(),
		Role:      store.RoleUser,
		Content:   text,
		Timestamp: time.Now().UTC(),
	}

	// pending holds every turn of this exchange; the store sees none of
	// them until the terminal commit.
	pending := []*store.Turn{userTurn}
	transcript := append(append([]*store.Turn{}, window...), userTurn)

	rounds := 0
	for rounds < o.maxRounds {
		rounds++

		req := &llm.ChatRequest{
			Model:    o.model,
			System:   o.system,
			Messages: buildMessages(transcript),
			Tools:    o.tools,
		}

		result, err := o.completer.Complete(ctx, req)
		if err != nil {
			var upstream *llm.UpstreamError
			if !errors.As(err, &upstream) {
				// Cancellation or local failure: nothing is committed and
				// the session is left exactly as it was.
				return nil, fmt.Errorf("completing round %d: %w", rounds, err)
			}
			o.logger.Warn("model backend failed, aborting exchange",
				zap.String("session_id", sessionID),
				zap.Int("round", rounds),
				zap.Error(err))
			reply, commitErr := o.commitTerminal(ctx, session, pending, fallbackUpstream, rounds, true)
			if commitErr != nil {
				return nil, commitErr
			}
			return reply, fmt.Errorf("completing round %d: %w", rounds, err)
		}

		switch result.Kind {
		case llm.ResultFinalAnswer:
			return o.commitTerminal(ctx, session, pending, result.Text, rounds, false)

		case llm.ResultToolCalls:
			turn, err := o.runTools(ctx, sessionID, result)
			if err != nil {
				return nil, err
			}
			pending = append(pending, turn)
			transcript = append(transcript, turn)

		default:
			return nil, fmt.Errorf("unexpected completion result kind %q", result.Kind)
		}
	}

	o.logger.Warn("round limit reached, aborting exchange",
		zap.String("session_id", sessionID),
		zap.Int("rounds", rounds))
	return o.commitTerminal(ctx, session, pending, fallbackRoundLimit, rounds, true)
}

// runTools dispatches every call of one round concurrently and assembles the
// tool invocation turn. Results land in the slot of their originating call, so
// the pairing by call ID holds whatever order the invocations finish in. Tool
// failures are not terminal; they become error-flagged results the model sees
// next round.
func (o *Orchestrator) runTools(ctx context.Context, sessionID string, result *llm.CompletionResult) (*store.Turn, error) {
	if o.invoker == nil {
		return nil, fmt.Errorf("model requested tools but no invoker is configured")
	}

	calls := make([]store.ToolCall, len(result.Calls))
	results := make([]store.ToolResult, len(result.Calls))
	errs := make([]error, len(result.Calls))

	var wg sync.WaitGroup
	for i, call := range result.Calls {
		calls[i] = store.ToolCall{
			CallID:    call.CallID,
			ToolName:  call.ToolName,
			Arguments: call.Arguments,
		}

		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			res, err := o.invoker.Invoke(ctx, call.ToolName, call.Arguments)
			if err != nil {
				errs[i] = fmt.Errorf("invoking %s: %w", call.ToolName, err)
				return
			}
			tr := store.ToolResult{CallID: call.CallID}
			if res.OK() {
				tr.Payload = res.Payload
			} else {
				tr.Err = res.Failure.Message
				o.logger.Warn("tool call failed",
					zap.String("session_id", sessionID),
					zap.String("tool", call.ToolName),
					zap.String("call_id", call.CallID),
					zap.String("kind", string(res.Failure.Kind)),
					zap.String("error", res.Failure.Message))
			}
			results[i] = tr
		}(i, call)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &store.Turn{
		ID:               uuid.New().String(),
		Role:             store.RoleToolInvocation,
		Timestamp:        time.Now().UTC(),
		AssistantContent: result.AssistantText,
		ToolCalls:        calls,
		ToolResults:      results,
	}, nil
}

// commitTerminal appends the assistant closing turn, writes the whole
// exchange atomically, and emits the committed event. Event publication is
// best effort; a publish failure never rolls back the commit.
func (o *Orchestrator) commitTerminal(ctx context.Context, session *store.Session, pending []*store.Turn, text string, rounds int, aborted bool) (*Reply, error) {
	assistant := &store.Turn{
		ID:        uuid.New().String(),
		Role:      store.RoleAssistant,
		Content:   text,
		Timestamp: time.Now().UTC(),
	}
	pending = append(pending, assistant)

	if err := o.store.AppendTurns(ctx, session.ID, pending); err != nil {
		return nil, fmt.Errorf("committing exchange: %w", err)
	}

	event := &eventstream.TurnCommittedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeTurnCommitted,
		EventID:       uuid.New().String(),
		EmittedAt:     time.Now().UTC(),
		UserID:        session.UserID,
		SessionID:     session.ID,
		Turns:         pending,
		Rounds:        rounds,
		Aborted:       aborted,
	}
	if err := o.publisher.PublishTurn(ctx, event); err != nil {
		o.logger.Warn("failed to publish turn event",
			zap.String("session_id", session.ID),
			zap.Error(err))
	}

	return &Reply{Text: text, Rounds: rounds, Aborted: aborted}, nil
}

// buildMessages converts stored turns into the model's message shape. A tool
// invocation turn expands to an assistant message carrying the tool use
// blocks followed by a message carrying their results.
func buildMessages(turns []*store.Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case store.RoleUser:
			messages = append(messages, llm.NewTextMessage(llm.RoleUser, turn.Content))

		case store.RoleAssistant:
			messages = append(messages, llm.NewTextMessage(llm.RoleAssistant, turn.Content))

		case store.RoleToolInvocation:
			assistant := llm.Message{Role: llm.RoleAssistant}
			if turn.AssistantContent != "" {
				assistant.Content = append(assistant.Content, llm.ContentBlock{
					Type: llm.ContentTypeText,
					Text: turn.AssistantContent,
				})
			}
			for _, call := range turn.ToolCalls {
				assistant.Content = append(assistant.Content, llm.ContentBlock{
					Type:      llm.ContentTypeToolUse,
					ToolUseID: call.CallID,
					ToolName:  call.ToolName,
					ToolInput: call.Arguments,
				})
			}
			messages = append(messages, assistant)

			toolMsg := llm.Message{Role: llm.RoleTool}
			for _, res := range turn.ToolResults {
				block := llm.ContentBlock{
					Type:         llm.ContentTypeToolResult,
					ToolResultID: res.CallID,
				}
				if res.Err != "" {
					block.ToolOutput = fmt.Sprintf(`{"error":%q}`, res.Err)
					block.IsError = true
				} else {
					block.ToolOutput = string(res.Payload)
				}
				toolMsg.Content = append(toolMsg.Content, block)
			}
			messages = append(messages, toolMsg)
		}
	}
	return messages
}
