package eventstream

import (
	"time"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/store"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCommitted is emitted after an exchange is committed to
	// the context store.
	EventTypeTurnCommitted = "exambot.turn.committed"
)

// TurnCommittedEvent is a transport-neutral event payload for one committed
// exchange (user turn through final assistant turn).
type TurnCommittedEvent struct {
	SchemaVersion int           `json:"schema_version"`
	EventType     string        `json:"event_type"`
	EventID       string        `json:"event_id"`
	EmittedAt     time.Time     `json:"emitted_at"`
	UserID        string        `json:"user_id,omitempty"`
	SessionID     string        `json:"session_id"`
	Turns         []*store.Turn `json:"turns"`
	Rounds        int           `json:"rounds"`
	Aborted       bool          `json:"aborted"`
}
