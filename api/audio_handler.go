package api

import (
	"encoding/base64"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/audio"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/llm"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/store"
)

// audioResponse is the reply for one spoken message. Audio is base64 WAV/MP3
// from the synthesis backend, empty when synthesis is unavailable.
type audioResponse struct {
	Transcript string `json:"transcript"`
	Reply      string `json:"reply"`
	Rounds     int    `json:"rounds"`
	Aborted    bool   `json:"aborted,omitempty"`
	Audio      string `json:"audio,omitempty"`
}

// handleAudioMessage handles POST /api/sessions/:id/audio. The body is the
// raw WAV clip. Clips over the duration ceiling are rejected with 413 before
// the transcription backend is called.
func (s *Server) handleAudioMessage(c *fiber.Ctx) error {
	wav := c.Body()
	if len(wav) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "audio body is required"})
	}

	sessionID := c.Params("id")
	out, err := s.orchestrator.HandleAudioMessage(c.Context(), s.audio, sessionID, wav)
	if err != nil {
		var upstream *llm.UpstreamError
		if errors.As(err, &upstream) && out != nil && out.Reply != nil {
			// The apology turn is committed; surface the reply with a
			// gateway status like the text route does.
			return c.Status(fiber.StatusBadGateway).JSON(audioResponse{
				Transcript: out.Transcript,
				Reply:      out.Reply.Text,
				Rounds:     out.Reply.Rounds,
				Aborted:    out.Reply.Aborted,
			})
		}

		var tooLong audio.TooLongError
		if errors.As(err, &tooLong) {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(ErrorResponse{Error: tooLong.Error()})
		}

		var transcription audio.TranscriptionError
		if errors.As(err, &transcription) {
			return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: transcription.Error()})
		}

		var notFound store.NotFoundError
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
		}

		if errors.As(err, &upstream) {
			return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: err.Error()})
		}

		s.logger.Error("audio message handling failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	resp := audioResponse{
		Transcript: out.Transcript,
		Reply:      out.Reply.Text,
		Rounds:     out.Reply.Rounds,
		Aborted:    out.Reply.Aborted,
	}
	if len(out.Audio) > 0 {
		resp.Audio = base64.StdEncoding.EncodeToString(out.Audio)
	}

	return c.JSON(resp)
}

type ttsRequest struct {
	Text string `json:"text"`
}

// handleTTS handles POST /api/tts, synthesizing arbitrary text outside of
// any session.
func (s *Server) handleTTS(c *fiber.Ctx) error {
	var req ttsRequest
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "text is required"})
	}

	speech, err := s.audio.TextToSpeech(c.Context(), req.Text)
	if err != nil {
		s.logger.Error("synthesis failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: err.Error()})
	}
	if len(speech) == 0 {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "synthesis is not configured"})
	}

	c.Set(fiber.HeaderContentType, "audio/mpeg")
	return c.Send(speech)
}
