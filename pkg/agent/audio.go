package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/audio"
)

// AudioReply is the outcome of one spoken user message. Audio is nil when no
// synthesizer is configured or the reply was aborted.
type AudioReply struct {
	Transcript string
	Reply      *Reply
	Audio      []byte
}

// HandleAudioMessage transcribes a spoken message and runs it through the
// loop like any text message. The clip's duration is checked against the
// ceiling before the transcription backend sees it; oversized input surfaces
// as audio.TooLongError with no turn committed. On a normal reply the answer
// is synthesized back to audio when a synthesizer is available.
func (o *Orchestrator) HandleAudioMessage(ctx context.Context, processor *audio.Processor, sessionID string, wav []byte) (*AudioReply, error) {
	text, err := processor.SpeechToText(ctx, wav)
	if err != nil {
		return nil, err
	}

	reply, err := o.HandleMessage(ctx, sessionID, text)
	if err != nil {
		if reply != nil {
			// The apology turn is committed; hand the reply back with
			// the error so callers can surface it.
			return &AudioReply{Transcript: text, Reply: reply}, err
		}
		return nil, err
	}

	out := &AudioReply{Transcript: text, Reply: reply}
	if reply.Aborted {
		return out, nil
	}

	speech, err := processor.TextToSpeech(ctx, reply.Text)
	if err != nil {
		// The exchange is already committed; a synthesis failure
		// degrades the reply to text only.
		o.logger.Warn("reply synthesis failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return out, nil
	}
	out.Audio = speech
	return out, nil
}
