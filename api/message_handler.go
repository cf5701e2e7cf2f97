package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/llm"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/store"
)

type messageRequest struct {
	Text string `json:"text"`
}

// messageResponse is the reply for one user message.
type messageResponse struct {
	Reply   string `json:"reply"`
	Rounds  int    `json:"rounds"`
	Aborted bool   `json:"aborted,omitempty"`
}

// handleMessage handles POST /api/sessions/:id/messages.
// The exchange is committed before the response is sent, so a subsequent
// read of the session always includes it.
func (s *Server) handleMessage(c *fiber.Ctx) error {
	var req messageRequest
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "text is required"})
	}

	sessionID := c.Params("id")
	reply, err := s.orchestrator.HandleMessage(c.Context(), sessionID, req.Text)
	if err != nil {
		var notFound store.NotFoundError
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
		}

		var upstream *llm.UpstreamError
		if errors.As(err, &upstream) && reply != nil {
			// The apology turn is committed; surface the reply with a
			// gateway status so clients can distinguish the failure.
			return c.Status(fiber.StatusBadGateway).JSON(messageResponse{
				Reply:   reply.Text,
				Rounds:  reply.Rounds,
				Aborted: reply.Aborted,
			})
		}

		s.logger.Error("message handling failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(messageResponse{
		Reply:   reply.Text,
		Rounds:  reply.Rounds,
		Aborted: reply.Aborted,
	})
}
