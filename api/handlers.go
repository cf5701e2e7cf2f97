package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/store"
)

// ErrorResponse is the uniform JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// errorStatus maps store errors to HTTP statuses.
func errorStatus(err error) int {
	var notFound store.NotFoundError
	if errors.As(err, &notFound) {
		return fiber.StatusNotFound
	}
	return fiber.StatusInternalServerError
}

type createUserRequest struct {
	Name string `json:"name"`
}

// handleCreateUser handles POST /api/users. Creating a user whose name is
// already registered returns the existing user.
func (s *Server) handleCreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "name is required"})
	}

	if existing, err := s.store.GetUserByName(c.Context(), req.Name); err == nil {
		return c.JSON(existing)
	}

	user, err := s.store.CreateUser(c.Context(), req.Name)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// handleGetUserByName handles GET /api/users/:name.
func (s *Server) handleGetUserByName(c *fiber.Ctx) error {
	user, err := s.store.GetUserByName(c.Context(), c.Params("name"))
	if err != nil {
		return c.Status(errorStatus(err)).JSON(ErrorResponse{Error: err.Error()})
	}
	return c.JSON(user)
}

type renameUserRequest struct {
	Name string `json:"name"`
}

// handleRenameUser handles PUT /api/users/:id.
func (s *Server) handleRenameUser(c *fiber.Ctx) error {
	var req renameUserRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "name is required"})
	}

	if err := s.store.RenameUser(c.Context(), c.Params("id"), req.Name); err != nil {
		return c.Status(errorStatus(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type createSessionRequest struct {
	Name string `json:"name"`
}

// handleCreateSession handles POST /api/users/:id/sessions.
func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	var req createSessionRequest
	// An empty body is fine; the session gets the default name.
	_ = c.BodyParser(&req)

	session, err := s.store.CreateSession(c.Context(), c.Params("id"), req.Name)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

// handleListSessions handles GET /api/users/:id/sessions.
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	sessions, err := s.store.ListSessions(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(errorStatus(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(fiber.Map{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// handleGetSession handles GET /api/sessions/:id.
func (s *Server) handleGetSession(c *fiber.Ctx) error {
	session, err := s.store.GetSession(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(errorStatus(err)).JSON(ErrorResponse{Error: err.Error()})
	}
	return c.JSON(session)
}

type renameSessionRequest struct {
	Name string `json:"name"`
}

// handleRenameSession handles PUT /api/sessions/:id.
func (s *Server) handleRenameSession(c *fiber.Ctx) error {
	var req renameSessionRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "name is required"})
	}

	if err := s.store.RenameSession(c.Context(), c.Params("id"), req.Name); err != nil {
		return c.Status(errorStatus(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// handleDeleteSession handles DELETE /api/sessions/:id. Turns cascade.
func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	if err := s.store.DeleteSession(c.Context(), c.Params("id")); err != nil {
		return c.Status(errorStatus(err)).JSON(ErrorResponse{Error: err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleGetTurns handles GET /api/sessions/:id/turns.
// Query parameters:
//   - limit (optional): maximum number of most recent turns, -1 for all
func (s *Server) handleGetTurns(c *fiber.Ctx) error {
	limit := -1
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be an integer"})
		}
		limit = parsed
	}

	turns, err := s.store.ReadWindow(c.Context(), c.Params("id"), limit)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(fiber.Map{
		"count": len(turns),
		"turns": turns,
	})
}
