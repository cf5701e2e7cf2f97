// Package store defines the context store: durable users, sessions, and
// ordered per-session transcripts with bounded window reads.
package store

import "context"

// Driver persists users, sessions, and turns. Implementations must make
// appends atomic per session: concurrent appends to one session may be
// ordered arbitrarily but must never interleave within a turn.
type Driver interface {
	// CreateUser creates a new user with the given display name.
	CreateUser(ctx context.Context, name string) (*User, error)

	// GetUser retrieves a user by id.
	GetUser(ctx context.Context, userID string) (*User, error)

	// GetUserByName retrieves a user by display name.
	GetUserByName(ctx context.Context, name string) (*User, error)

	// RenameUser updates a user's display name.
	RenameUser(ctx context.Context, userID, name string) error

	// CreateSession creates a session owned by userID. An empty name gets
	// the default session name.
	CreateSession(ctx context.Context, userID, name string) (*Session, error)

	// GetSession retrieves a session by id.
	GetSession(ctx context.Context, sessionID string) (*Session, error)

	// RenameSession updates a session's display name.
	RenameSession(ctx context.Context, sessionID, name string) error

	// DeleteSession removes a session and cascades to its turns.
	DeleteSession(ctx context.Context, sessionID string) error

	// ListSessions returns the user's sessions ordered by updated_at
	// descending.
	ListSessions(ctx context.Context, userID string) ([]*Session, error)

	// AppendTurn atomically appends one turn to a session, bumping the
	// session's updated_at and turn_count.
	AppendTurn(ctx context.Context, sessionID string, turn *Turn) error

	// AppendTurns atomically appends several turns in order. Either all
	// turns are committed or none are; the orchestrator relies on this to
	// keep user/assistant turn pairing intact.
	AppendTurns(ctx context.Context, sessionID string, turns []*Turn) error

	// ReadWindow returns the most recent maxTurns turns in chronological
	// order (oldest first). Turns are whole units: a tool_invocation turn
	// is included or excluded in its entirety, never split.
	ReadWindow(ctx context.Context, sessionID string, maxTurns int) ([]*Turn, error)

	// Close closes the store and releases any resources.
	Close() error
}
