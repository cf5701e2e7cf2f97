package api

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/agent"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/audio"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/llm"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/store/inmemory"
)

// stubCompleter returns a fixed result or error for every completion round.
type stubCompleter struct {
	result *llm.CompletionResult
	err    error
}

func (s *stubCompleter) Complete(context.Context, *llm.ChatRequest) (*llm.CompletionResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubTranscriber struct {
	text string
}

func (s *stubTranscriber) Transcribe(context.Context, []byte) (string, error) {
	return s.text, nil
}

type stubSynthesizer struct {
	out []byte
}

func (s *stubSynthesizer) Synthesize(context.Context, string) ([]byte, error) {
	return s.out, nil
}

// pcmWav builds a minimal 16kHz mono 16-bit WAV with the given duration in
// seconds.
func pcmWav(seconds int) []byte {
	const byteRate = 16000 * 2
	dataSize := seconds * byteRate

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, []byte("RIFF")...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, []byte("WAVE")...)

	buf = append(buf, []byte("fmt ")...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, 1) // mono
	buf = binary.LittleEndian.AppendUint32(buf, 16000)
	buf = binary.LittleEndian.AppendUint32(buf, byteRate)
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint16(buf, 16)

	buf = append(buf, []byte("data")...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))
	buf = append(buf, make([]byte, dataSize)...)

	return buf
}

var _ = Describe("Server", func() {
	var (
		ctx       context.Context
		driver    *inmemory.Driver
		completer *stubCompleter
		server    *Server
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		completer = &stubCompleter{
			result: &llm.CompletionResult{Kind: llm.ResultFinalAnswer, Text: "etcd is a key-value store"},
		}

		orchestrator, err := agent.NewOrchestrator(agent.Config{
			Store:     driver,
			Completer: completer,
			Model:     "test-model",
			Logger:    zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())

		server = NewServer(Config{ListenAddr: ":0"}, driver, orchestrator, nil, nil, zap.NewNop())
	})

	do := func(method, path string, body any) (*http.Response, map[string]any) {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(payload)
		}

		req := httptest.NewRequest(method, path, reader)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := server.app.Test(req, 5000)
		Expect(err).NotTo(HaveOccurred())

		var decoded map[string]any
		raw, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		if len(raw) > 0 && resp.Header.Get("Content-Type") != "" {
			_ = json.Unmarshal(raw, &decoded)
		}
		return resp, decoded
	}

	newUser := func(name string) string {
		user, err := driver.CreateUser(ctx, name)
		Expect(err).NotTo(HaveOccurred())
		return user.ID
	}

	newSession := func(userID string) string {
		session, err := driver.CreateSession(ctx, userID, "")
		Expect(err).NotTo(HaveOccurred())
		return session.ID
	}

	It("responds to ping", func() {
		resp, _ := do(http.MethodGet, "/ping", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	Describe("users", func() {
		It("creates a user", func() {
			resp, body := do(http.MethodPost, "/api/users", map[string]string{"name": "alice"})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(body["name"]).To(Equal("alice"))
			Expect(body["id"]).NotTo(BeEmpty())
		})

		It("returns the existing user for a duplicate name", func() {
			id := newUser("alice")

			resp, body := do(http.MethodPost, "/api/users", map[string]string{"name": "alice"})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body["id"]).To(Equal(id))
		})

		It("requires a name", func() {
			resp, _ := do(http.MethodPost, "/api/users", map[string]string{})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("renames users", func() {
			id := newUser("erin")

			resp, _ := do(http.MethodPut, "/api/users/"+id, map[string]string{"name": "erin-2"})
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			resp, body := do(http.MethodGet, "/api/users/erin-2", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body["id"]).To(Equal(id))
		})

		It("looks up users by name", func() {
			newUser("bob")

			resp, body := do(http.MethodGet, "/api/users/bob", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body["name"]).To(Equal("bob"))

			resp, _ = do(http.MethodGet, "/api/users/ghost", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("sessions", func() {
		var userID string

		BeforeEach(func() {
			userID = newUser("carol")
		})

		It("creates and lists sessions", func() {
			resp, body := do(http.MethodPost, fmt.Sprintf("/api/users/%s/sessions", userID), map[string]string{"name": "prep"})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(body["name"]).To(Equal("prep"))

			resp, body = do(http.MethodGet, fmt.Sprintf("/api/users/%s/sessions", userID), nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body["count"]).To(BeEquivalentTo(1))
		})

		It("renames and deletes sessions", func() {
			sessionID := newSession(userID)

			resp, _ := do(http.MethodPut, "/api/sessions/"+sessionID, map[string]string{"name": "renamed"})
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			resp, body := do(http.MethodGet, "/api/sessions/"+sessionID, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body["name"]).To(Equal("renamed"))

			resp, _ = do(http.MethodDelete, "/api/sessions/"+sessionID, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			resp, _ = do(http.MethodGet, "/api/sessions/"+sessionID, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("rejects sessions for unknown users", func() {
			resp, _ := do(http.MethodPost, "/api/users/ghost/sessions", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("messages", func() {
		var sessionID string

		BeforeEach(func() {
			sessionID = newSession(newUser("dave"))
		})

		It("runs one exchange and commits it", func() {
			resp, body := do(http.MethodPost, fmt.Sprintf("/api/sessions/%s/messages", sessionID), map[string]string{"text": "what is etcd?"})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body["reply"]).To(Equal("etcd is a key-value store"))

			resp, body = do(http.MethodGet, fmt.Sprintf("/api/sessions/%s/turns", sessionID), nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body["count"]).To(BeEquivalentTo(2))
		})

		It("limits the returned turn window", func() {
			for i := 0; i < 3; i++ {
				resp, _ := do(http.MethodPost, fmt.Sprintf("/api/sessions/%s/messages", sessionID), map[string]string{"text": "again"})
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			}

			resp, body := do(http.MethodGet, fmt.Sprintf("/api/sessions/%s/turns?limit=2", sessionID), nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body["count"]).To(BeEquivalentTo(2))
		})

		It("requires message text", func() {
			resp, _ := do(http.MethodPost, fmt.Sprintf("/api/sessions/%s/messages", sessionID), map[string]string{})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for unknown sessions", func() {
			resp, _ := do(http.MethodPost, "/api/sessions/ghost/messages", map[string]string{"text": "hi"})
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("surfaces the committed apology on upstream failure", func() {
			completer.err = &llm.UpstreamError{Status: http.StatusServiceUnavailable, Message: "backend down"}

			resp, body := do(http.MethodPost, fmt.Sprintf("/api/sessions/%s/messages", sessionID), map[string]string{"text": "hi"})
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
			Expect(body["reply"]).To(ContainSubstring("I apologize"))
			Expect(body["aborted"]).To(BeTrue())

			resp, body = do(http.MethodGet, fmt.Sprintf("/api/sessions/%s/turns", sessionID), nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body["count"]).To(BeEquivalentTo(2))
		})
	})

	Describe("audio messages", func() {
		var sessionID string

		BeforeEach(func() {
			processor, err := audio.NewProcessor(audio.Config{
				Transcriber: &stubTranscriber{text: "what is etcd?"},
				Synthesizer: &stubSynthesizer{out: []byte("mp3-bytes")},
			}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			orchestrator, err := agent.NewOrchestrator(agent.Config{
				Store:     driver,
				Completer: completer,
				Model:     "test-model",
				Logger:    zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			server = NewServer(Config{ListenAddr: ":0"}, driver, orchestrator, processor, nil, zap.NewNop())
			sessionID = newSession(newUser("frank"))
		})

		postWav := func(path string) (*http.Response, map[string]any) {
			req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(pcmWav(5)))
			req.Header.Set("Content-Type", "audio/wav")

			resp, err := server.app.Test(req, 5000)
			Expect(err).NotTo(HaveOccurred())

			var decoded map[string]any
			raw, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			if len(raw) > 0 {
				_ = json.Unmarshal(raw, &decoded)
			}
			return resp, decoded
		}

		It("answers a spoken message", func() {
			resp, body := postWav(fmt.Sprintf("/api/sessions/%s/audio", sessionID))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body["transcript"]).To(Equal("what is etcd?"))
			Expect(body["reply"]).To(Equal("etcd is a key-value store"))
			Expect(body["audio"]).NotTo(BeEmpty())
		})

		It("surfaces the committed apology on upstream failure", func() {
			completer.err = &llm.UpstreamError{Status: http.StatusServiceUnavailable, Message: "backend down"}

			resp, body := postWav(fmt.Sprintf("/api/sessions/%s/audio", sessionID))
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
			Expect(body["transcript"]).To(Equal("what is etcd?"))
			Expect(body["reply"]).To(ContainSubstring("I apologize"))
			Expect(body["aborted"]).To(BeTrue())

			resp, body = do(http.MethodGet, fmt.Sprintf("/api/sessions/%s/turns", sessionID), nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body["count"]).To(BeEquivalentTo(2))
		})
	})
})
