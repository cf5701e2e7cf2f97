package store

// DefaultSessionName is used when a session is created without a name.
const DefaultSessionName = "New Chat"

// NotFoundError is returned when a user or session doesn't exist in the store.
type NotFoundError struct {
	Kind string // "user" or "session"
	ID   string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return e.Kind + " not found"
	}
	return e.Kind + " not found: " + e.ID
}
