// Package api provides the HTTP server for users, sessions, chat messages,
// and audio turns, plus the mount point for the MCP tool server.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string

	// BodyLimit caps request body size in bytes. Audio uploads need more
	// than fiber's default; zero keeps the default.
	BodyLimit int
}
