// Package inmemory provides a map-backed store driver for tests and
// ephemeral single-process runs.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/store"
)

// Driver implements store.Driver using in-memory maps.
type Driver struct {
	// mu guards all three maps; AppendTurns holds it for the whole commit
	// so multi-turn appends are atomic per session.
	mu sync.RWMutex

	users    map[string]*store.User
	sessions map[string]*store.Session
	turns    map[string][]*store.Turn // keyed by session id
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		users:    make(map[string]*store.User),
		sessions: make(map[string]*store.Session),
		turns:    make(map[string][]*store.Turn),
	}
}

func (d *Driver) CreateUser(_ context.Context, name string) (*store.User, error) {
	if name == "" {
		return nil, errors.New("user name is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	user := &store.User{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	d.users[user.ID] = user

	return cloneUser(user), nil
}

func (d *Driver) GetUser(_ context.Context, userID string) (*store.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[userID]
	if !ok {
		return nil, store.NotFoundError{Kind: "user", ID: userID}
	}
	return cloneUser(user), nil
}

func (d *Driver) GetUserByName(_ context.Context, name string) (*store.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, user := range d.users {
		if user.Name == name {
			return cloneUser(user), nil
		}
	}
	return nil, store.NotFoundError{Kind: "user", ID: name}
}

func (d *Driver) RenameUser(_ context.Context, userID, name string) error {
	if name == "" {
		return errors.New("user name is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.users[userID]
	if !ok {
		return store.NotFoundError{Kind: "user", ID: userID}
	}

	user.Name = name
	return nil
}

func (d *Driver) CreateSession(_ context.Context, userID, name string) (*store.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[userID]; !ok {
		return nil, store.NotFoundError{Kind: "user", ID: userID}
	}

	if name == "" {
		name = store.DefaultSessionName
	}

	now := time.Now().UTC()
	session := &store.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	d.sessions[session.ID] = session
	d.turns[session.ID] = nil

	return cloneSession(session), nil
}

func (d *Driver) GetSession(_ context.Context, sessionID string) (*store.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	session, ok := d.sessions[sessionID]
	if !ok {
		return nil, store.NotFoundError{Kind: "session", ID: sessionID}
	}
	return cloneSession(session), nil
}

func (d *Driver) RenameSession(_ context.Context, sessionID, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, ok := d.sessions[sessionID]
	if !ok {
		return store.NotFoundError{Kind: "session", ID: sessionID}
	}

	session.Name = name
	session.UpdatedAt = time.Now().UTC()
	return nil
}

func (d *Driver) DeleteSession(_ context.Context, sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sessions[sessionID]; !ok {
		return store.NotFoundError{Kind: "session", ID: sessionID}
	}

	delete(d.sessions, sessionID)
	delete(d.turns, sessionID)
	return nil
}

func (d *Driver) ListSessions(_ context.Context, userID string) ([]*store.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if _, ok := d.users[userID]; !ok {
		return nil, store.NotFoundError{Kind: "user", ID: userID}
	}

	var sessions []*store.Session
	for _, session := range d.sessions {
		if session.UserID == userID {
			sessions = append(sessions, cloneSession(session))
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})

	return sessions, nil
}

func (d *Driver) AppendTurn(ctx context.Context, sessionID string, turn *store.Turn) error {
	return d.AppendTurns(ctx, sessionID, []*store.Turn{turn})
}

func (d *Driver) AppendTurns(_ context.Context, sessionID string, turns []*store.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	session, ok := d.sessions[sessionID]
	if !ok {
		return store.NotFoundError{Kind: "session", ID: sessionID}
	}

	for _, turn := range turns {
		if turn == nil {
			return errors.New("cannot append nil turn")
		}
		stored := cloneTurn(turn)
		if stored.ID == "" {
			stored.ID = uuid.NewString()
		}
		if stored.Timestamp.IsZero() {
			stored.Timestamp = time.Now().UTC()
		}
		d.turns[sessionID] = append(d.turns[sessionID], stored)
	}

	session.TurnCount += len(turns)
	session.UpdatedAt = time.Now().UTC()
	return nil
}

func (d *Driver) ReadWindow(_ context.Context, sessionID string, maxTurns int) ([]*store.Turn, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if _, ok := d.sessions[sessionID]; !ok {
		return nil, store.NotFoundError{Kind: "session", ID: sessionID}
	}

	all := d.turns[sessionID]
	start := 0
	if maxTurns > 0 && len(all) > maxTurns {
		start = len(all) - maxTurns
	}

	window := make([]*store.Turn, 0, len(all)-start)
	for _, turn := range all[start:] {
		window = append(window, cloneTurn(turn))
	}
	return window, nil
}

func (d *Driver) Close() error {
	return nil
}

func cloneUser(u *store.User) *store.User {
	out := *u
	return &out
}

func cloneSession(s *store.Session) *store.Session {
	out := *s
	return &out
}

func cloneTurn(t *store.Turn) *store.Turn {
	out := *t
	if t.ToolCalls != nil {
		out.ToolCalls = make([]store.ToolCall, len(t.ToolCalls))
		copy(out.ToolCalls, t.ToolCalls)
	}
	if t.ToolResults != nil {
		out.ToolResults = make([]store.ToolResult, len(t.ToolResults))
		copy(out.ToolResults, t.ToolResults)
	}
	return &out
}
