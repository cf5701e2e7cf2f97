// Package audio wraps speech-to-text and text-to-speech backends behind the
// orchestrator's text contract: audio in, recognized text out, and final
// answers optionally back to audio. Input duration is bounded before any
// backend call is made.
package audio

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxDuration is the input audio ceiling. Longer clips are rejected
// before the transcription backend is called, bounding cost and latency.
const DefaultMaxDuration = 60 * time.Second

// Transcriber converts recorded speech into text.
type Transcriber interface {
	// Transcribe converts a WAV clip into text.
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// Synthesizer converts text into audio.
type Synthesizer interface {
	// Synthesize converts text into an audio clip.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// TooLongError is returned when input audio exceeds the duration ceiling.
type TooLongError struct {
	Duration time.Duration
	Max      time.Duration
}

func (e TooLongError) Error() string {
	return fmt.Sprintf("audio too long: %s exceeds the %s ceiling", e.Duration.Round(time.Second), e.Max)
}

// TranscriptionError wraps a speech-to-text backend failure.
type TranscriptionError struct {
	Err error
}

func (e TranscriptionError) Error() string {
	return "transcription failed: " + e.Err.Error()
}

func (e TranscriptionError) Unwrap() error { return e.Err }

// SynthesisError wraps a text-to-speech backend failure.
type SynthesisError struct {
	Err error
}

func (e SynthesisError) Error() string {
	return "synthesis failed: " + e.Err.Error()
}

func (e SynthesisError) Unwrap() error { return e.Err }

// Processor validates and adapts audio turns at the edges of the
// orchestration loop.
type Processor struct {
	transcriber Transcriber
	synthesizer Synthesizer
	maxDuration time.Duration
	logger      *zap.Logger
}

// Config holds configuration for the audio processor.
type Config struct {
	// Transcriber is required.
	Transcriber Transcriber

	// Synthesizer is optional; when nil, SynthesizeReply returns nil audio.
	Synthesizer Synthesizer

	// MaxDuration defaults to DefaultMaxDuration.
	MaxDuration time.Duration
}

// NewProcessor creates a new audio processor.
func NewProcessor(c Config, logger *zap.Logger) (*Processor, error) {
	if c.Transcriber == nil {
		return nil, fmt.Errorf("transcriber is required")
	}

	maxDuration := c.MaxDuration
	if maxDuration == 0 {
		maxDuration = DefaultMaxDuration
	}

	return &Processor{
		transcriber: c.Transcriber,
		synthesizer: c.Synthesizer,
		maxDuration: maxDuration,
		logger:      logger,
	}, nil
}

// SpeechToText probes the clip's duration, rejects anything over the ceiling
// with TooLongError, and otherwise transcribes it.
func (p *Processor) SpeechToText(ctx context.Context, wav []byte) (string, error) {
	duration, err := WavDuration(wav)
	if err != nil {
		return "", TranscriptionError{Err: err}
	}

	if duration > p.maxDuration {
		return "", TooLongError{Duration: duration, Max: p.maxDuration}
	}

	p.logger.Debug("transcribing audio",
		zap.Duration("duration", duration),
		zap.Int("bytes", len(wav)),
	)

	text, err := p.transcriber.Transcribe(ctx, wav)
	if err != nil {
		return "", TranscriptionError{Err: err}
	}
	return text, nil
}

// TextToSpeech synthesizes audio for a final answer. Returns nil audio when
// no synthesizer is configured.
func (p *Processor) TextToSpeech(ctx context.Context, text string) ([]byte, error) {
	if p.synthesizer == nil {
		return nil, nil
	}

	audio, err := p.synthesizer.Synthesize(ctx, text)
	if err != nil {
		return nil, SynthesisError{Err: err}
	}
	return audio, nil
}
