package api

import (
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/agent"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/audio"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/store"
)

// Server is the HTTP server for the study assistant.
type Server struct {
	config       Config
	store        store.Driver
	orchestrator *agent.Orchestrator
	audio        *audio.Processor
	logger       *zap.Logger
	app          *fiber.App
}

// NewServer creates a new API server. The store and orchestrator are
// injected to allow sharing with other components (e.g. the CLI chat when
// running everything in one process). The audio processor and MCP handler
// are optional; their routes are only registered when present.
func NewServer(config Config, storer store.Driver, orchestrator *agent.Orchestrator, processor *audio.Processor, mcpHandler http.Handler, logger *zap.Logger) *Server {
	fiberConfig := fiber.Config{
		DisableStartupMessage: true,
	}
	if config.BodyLimit > 0 {
		fiberConfig.BodyLimit = config.BodyLimit
	}
	app := fiber.New(fiberConfig)

	s := &Server{
		config:       config,
		store:        storer,
		orchestrator: orchestrator,
		audio:        processor,
		logger:       logger,
		app:          app,
	}

	app.Get("/ping", s.handlePing)

	app.Post("/api/users", s.handleCreateUser)
	app.Get("/api/users/:name", s.handleGetUserByName)
	app.Put("/api/users/:id", s.handleRenameUser)
	app.Post("/api/users/:id/sessions", s.handleCreateSession)
	app.Get("/api/users/:id/sessions", s.handleListSessions)

	app.Get("/api/sessions/:id", s.handleGetSession)
	app.Put("/api/sessions/:id", s.handleRenameSession)
	app.Delete("/api/sessions/:id", s.handleDeleteSession)
	app.Get("/api/sessions/:id/turns", s.handleGetTurns)

	app.Post("/api/sessions/:id/messages", s.handleMessage)

	if processor != nil {
		app.Post("/api/sessions/:id/audio", s.handleAudioMessage)
		app.Post("/api/tts", s.handleTTS)
	}

	if mcpHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(mcpHandler))
	}

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
