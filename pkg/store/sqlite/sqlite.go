// Package sqlite provides a SQLite-backed store driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/store"
)

// Driver implements store.Driver using SQLite as the storage backend.
type Driver struct {
	db *sql.DB
}

// NewDriver creates a new SQLite-backed store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	d := &Driver{db: db}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

// migrate creates the necessary tables if they don't exist.
func (d *Driver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		turn_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		assistant_content TEXT NOT NULL DEFAULT '',
		tool_calls TEXT,
		tool_results TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_turns_session_seq ON turns(session_id, seq);
	`

	_, err := d.db.Exec(schema)
	return err
}

func (d *Driver) CreateUser(ctx context.Context, name string) (*store.User, error) {
	if name == "" {
		return nil, errors.New("user name is required")
	}

	user := &store.User{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO users (id, name, created_at) VALUES (?, ?, ?)`,
		user.ID, user.Name, user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return user, nil
}

func (d *Driver) GetUser(ctx context.Context, userID string) (*store.User, error) {
	return d.scanUser(d.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM users WHERE id = ?`, userID), userID)
}

func (d *Driver) GetUserByName(ctx context.Context, name string) (*store.User, error) {
	return d.scanUser(d.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM users WHERE name = ? ORDER BY created_at LIMIT 1`, name), name)
}

func (d *Driver) scanUser(row *sql.Row, id string) (*store.User, error) {
	var user store.User
	err := row.Scan(&user.ID, &user.Name, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFoundError{Kind: "user", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

func (d *Driver) RenameUser(ctx context.Context, userID, name string) error {
	if name == "" {
		return errors.New("user name is required")
	}

	res, err := d.db.ExecContext(ctx,
		`UPDATE users SET name = ? WHERE id = ?`, name, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to rename user: %w", err)
	}
	return requireRow(res, "user", userID)
}

func (d *Driver) CreateSession(ctx context.Context, userID, name string) (*store.Session, error) {
	if _, err := d.GetUser(ctx, userID); err != nil {
		return nil, err
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

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, name, created_at, updated_at, turn_count) VALUES (?, ?, ?, ?, ?, 0)`,
		session.ID, session.UserID, session.Name, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	return session, nil
}

func (d *Driver) GetSession(ctx context.Context, sessionID string) (*store.Session, error) {
	var session store.Session
	err := d.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at, updated_at, turn_count FROM sessions WHERE id = ?`,
		sessionID,
	).Scan(&session.ID, &session.UserID, &session.Name, &session.CreatedAt, &session.UpdatedAt, &session.TurnCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFoundError{Kind: "session", ID: sessionID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return &session, nil
}

func (d *Driver) RenameSession(ctx context.Context, sessionID, name string) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE sessions SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now().UTC(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	return requireRow(res, "session", sessionID)
}

func (d *Driver) DeleteSession(ctx context.Context, sessionID string) error {
	// Turns cascade via the foreign key.
	res, err := d.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return requireRow(res, "session", sessionID)
}

func (d *Driver) ListSessions(ctx context.Context, userID string) ([]*store.Session, error) {
	if _, err := d.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, name, created_at, updated_at, turn_count
		 FROM sessions WHERE user_id = ? ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*store.Session
	for rows.Next() {
		var s store.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.CreatedAt, &s.UpdatedAt, &s.TurnCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

func (d *Driver) AppendTurn(ctx context.Context, sessionID string, turn *store.Turn) error {
	return d.AppendTurns(ctx, sessionID, []*store.Turn{turn})
}

func (d *Driver) AppendTurns(ctx context.Context, sessionID string, turns []*store.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM sessions WHERE id = ?`, sessionID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return store.NotFoundError{Kind: "session", ID: sessionID}
	}
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}

	var seq int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM turns WHERE session_id = ?`, sessionID,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to read turn sequence: %w", err)
	}

	now := time.Now().UTC()
	for _, turn := range turns {
		if turn == nil {
			return errors.New("cannot append nil turn")
		}

		id := turn.ID
		if id == "" {
			id = uuid.NewString()
			turn.ID = id
		}
		ts := turn.Timestamp
		if ts.IsZero() {
			ts = now
			turn.Timestamp = ts
		}

		calls, err := marshalOrNil(turn.ToolCalls)
		if err != nil {
			return fmt.Errorf("failed to marshal tool calls: %w", err)
		}
		results, err := marshalOrNil(turn.ToolResults)
		if err != nil {
			return fmt.Errorf("failed to marshal tool results: %w", err)
		}

		seq++
		_, err = tx.ExecContext(ctx,
			`INSERT INTO turns (id, session_id, seq, role, content, assistant_content, tool_calls, tool_results, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, sessionID, seq, turn.Role, turn.Content, turn.AssistantContent, calls, results, ts,
		)
		if err != nil {
			return fmt.Errorf("failed to insert turn: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET turn_count = turn_count + ?, updated_at = ? WHERE id = ?`,
		len(turns), now, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if err := requireRow(res, "session", sessionID); err != nil {
		return err
	}

	return tx.Commit()
}

func (d *Driver) ReadWindow(ctx context.Context, sessionID string, maxTurns int) ([]*store.Turn, error) {
	if _, err := d.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	// Select the newest maxTurns by seq, then flip back to chronological order.
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, role, content, assistant_content, tool_calls, tool_results, created_at
		 FROM turns WHERE session_id = ? ORDER BY seq DESC LIMIT ?`,
		sessionID, limitOrAll(maxTurns),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read window: %w", err)
	}
	defer rows.Close()

	var reversed []*store.Turn
	for rows.Next() {
		var (
			turn           store.Turn
			calls, results sql.NullString
		)
		if err := rows.Scan(&turn.ID, &turn.Role, &turn.Content, &turn.AssistantContent, &calls, &results, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		if calls.Valid {
			if err := json.Unmarshal([]byte(calls.String), &turn.ToolCalls); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tool calls: %w", err)
			}
		}
		if results.Valid {
			if err := json.Unmarshal([]byte(results.String), &turn.ToolResults); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tool results: %w", err)
			}
		}
		reversed = append(reversed, &turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	window := make([]*store.Turn, len(reversed))
	for i, turn := range reversed {
		window[len(reversed)-1-i] = turn
	}
	return window, nil
}

func (d *Driver) Close() error {
	return d.db.Close()
}

func marshalOrNil(v any) (any, error) {
	switch t := v.(type) {
	case []store.ToolCall:
		if len(t) == 0 {
			return nil, nil
		}
	case []store.ToolResult:
		if len(t) == 0 {
			return nil, nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func limitOrAll(maxTurns int) int {
	if maxTurns <= 0 {
		return -1 // SQLite treats a negative LIMIT as no limit
	}
	return maxTurns
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return store.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}
