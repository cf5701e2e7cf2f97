package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

type stubTranscriber struct {
	text   string
	err    error
	called bool
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ []byte) (string, error) {
	s.called = true
	return s.text, s.err
}

type stubSynthesizer struct {
	out []byte
	err error
}

func (s *stubSynthesizer) Synthesize(_ context.Context, _ string) ([]byte, error) {
	return s.out, s.err
}

// buildWav assembles a RIFF/WAVE byte stream with the given byte rate and
// data payload size.
func buildWav(byteRate, dataSize uint32) []byte {
	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, []byte("RIFF")...)
	buf = binary.LittleEndian.AppendUint32(buf, 36+dataSize)
	buf = append(buf, []byte("WAVE")...)

	buf = append(buf, []byte("fmt ")...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint32(buf, 16000)
	buf = binary.LittleEndian.AppendUint32(buf, byteRate)
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint16(buf, 16)

	buf = append(buf, []byte("data")...)
	buf = binary.LittleEndian.AppendUint32(buf, dataSize)
	buf = append(buf, make([]byte, dataSize)...)

	return buf
}

var _ = Describe("WavDuration", func() {
	It("computes duration from the fmt byte rate and data size", func() {
		// 32000 bytes/sec, 10 seconds of payload
		wav := buildWav(32000, 320000)

		d, err := WavDuration(wav)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(10 * time.Second))
	})

	It("clamps a declared data size larger than the stream", func() {
		wav := buildWav(32000, 320000)
		// Rewrite the data chunk header to claim twice the payload.
		binary.LittleEndian.PutUint32(wav[40:44], 640000)

		d, err := WavDuration(wav)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(10 * time.Second))
	})

	It("rejects non-WAV input", func() {
		_, err := WavDuration([]byte("definitely not audio"))
		Expect(err).To(HaveOccurred())
	})

	It("rejects a WAV with no data chunk", func() {
		wav := buildWav(32000, 320000)[:36]
		_, err := WavDuration(wav)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Processor", func() {
	var (
		ctx         context.Context
		transcriber *stubTranscriber
		synthesizer *stubSynthesizer
	)

	newTestProcessor := func(max time.Duration) *Processor {
		p, err := NewProcessor(Config{
			Transcriber: transcriber,
			Synthesizer: synthesizer,
			MaxDuration: max,
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	BeforeEach(func() {
		ctx = context.Background()
		transcriber = &stubTranscriber{text: "hello"}
		synthesizer = &stubSynthesizer{out: []byte("speech")}
	})

	Describe("SpeechToText", func() {
		It("transcribes clips under the ceiling", func() {
			text, err := newTestProcessor(0).SpeechToText(ctx, buildWav(32000, 32000*5))
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("hello"))
		})

		It("rejects clips over the ceiling without calling the backend", func() {
			_, err := newTestProcessor(0).SpeechToText(ctx, buildWav(32000, 32000*61))
			Expect(err).To(HaveOccurred())

			var tooLong TooLongError
			Expect(errors.As(err, &tooLong)).To(BeTrue())
			Expect(tooLong.Max).To(Equal(DefaultMaxDuration))
			Expect(transcriber.called).To(BeFalse())
		})

		It("honors a custom ceiling", func() {
			_, err := newTestProcessor(10*time.Second).SpeechToText(ctx, buildWav(32000, 32000*11))

			var tooLong TooLongError
			Expect(errors.As(err, &tooLong)).To(BeTrue())
			Expect(tooLong.Max).To(Equal(10 * time.Second))
		})

		It("wraps backend failures as transcription errors", func() {
			transcriber.err = errors.New("stt down")

			_, err := newTestProcessor(0).SpeechToText(ctx, buildWav(32000, 32000))

			var tErr TranscriptionError
			Expect(errors.As(err, &tErr)).To(BeTrue())
		})

		It("rejects malformed audio", func() {
			_, err := newTestProcessor(0).SpeechToText(ctx, []byte("garbage"))
			Expect(err).To(HaveOccurred())
			Expect(transcriber.called).To(BeFalse())
		})
	})

	Describe("TextToSpeech", func() {
		It("synthesizes text", func() {
			out, err := newTestProcessor(0).TextToSpeech(ctx, "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]byte("speech")))
		})

		It("returns nil audio when no synthesizer is configured", func() {
			synthesizer = nil
			p, err := NewProcessor(Config{Transcriber: transcriber}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			out, err := p.TextToSpeech(ctx, "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(BeNil())
		})

		It("wraps backend failures as synthesis errors", func() {
			synthesizer.err = errors.New("tts down")

			_, err := newTestProcessor(0).TextToSpeech(ctx, "hi")

			var sErr SynthesisError
			Expect(errors.As(err, &sErr)).To(BeTrue())
		})
	})

	It("requires a transcriber", func() {
		_, err := NewProcessor(Config{}, zap.NewNop())
		Expect(err).To(HaveOccurred())
	})
})
