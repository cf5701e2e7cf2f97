package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/store"
)

func userTurn(text string) *store.Turn {
	return &store.Turn{
		ID:        text,
		Role:      store.RoleUser,
		Content:   text,
		Timestamp: time.Now().UTC(),
	}
}

var _ = Describe("SQLite Driver", func() {
	var (
		ctx    context.Context
		dbPath string
		driver *Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		dbPath = filepath.Join(GinkgoT().TempDir(), "exambot.db")

		var err error
		driver, err = NewDriver(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	Describe("users", func() {
		It("creates and retrieves users by id and name", func() {
			user, err := driver.CreateUser(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(user.ID).NotTo(BeEmpty())

			byID, err := driver.GetUser(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(byID.Name).To(Equal("alice"))

			byName, err := driver.GetUserByName(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(byName.ID).To(Equal(user.ID))
		})

		It("rejects empty user names", func() {
			_, err := driver.CreateUser(ctx, "")
			Expect(err).To(HaveOccurred())
		})

		It("renames users", func() {
			user, err := driver.CreateUser(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.RenameUser(ctx, user.ID, "alicia")).To(Succeed())

			renamed, err := driver.GetUserByName(ctx, "alicia")
			Expect(err).NotTo(HaveOccurred())
			Expect(renamed.ID).To(Equal(user.ID))
		})

		It("rejects renames for unknown users", func() {
			err := driver.RenameUser(ctx, "missing", "someone")

			var notFound store.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(notFound.Kind).To(Equal("user"))
		})

		It("returns a typed not-found error for unknown users", func() {
			_, err := driver.GetUser(ctx, "missing")

			var notFound store.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(notFound.Kind).To(Equal("user"))
		})
	})

	Describe("sessions", func() {
		var userID string

		BeforeEach(func() {
			user, err := driver.CreateUser(ctx, "bob")
			Expect(err).NotTo(HaveOccurred())
			userID = user.ID
		})

		It("applies the default name when none is given", func() {
			session, err := driver.CreateSession(ctx, userID, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Name).To(Equal(store.DefaultSessionName))
		})

		It("rejects sessions for unknown users", func() {
			_, err := driver.CreateSession(ctx, "missing", "")

			var notFound store.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(notFound.Kind).To(Equal("user"))
		})

		It("renames sessions", func() {
			session, err := driver.CreateSession(ctx, userID, "")
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.RenameSession(ctx, session.ID, "Kubernetes prep")).To(Succeed())

			renamed, err := driver.GetSession(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(renamed.Name).To(Equal("Kubernetes prep"))
		})

		It("lists sessions most recently updated first", func() {
			first, err := driver.CreateSession(ctx, userID, "first")
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.CreateSession(ctx, userID, "second")
			Expect(err).NotTo(HaveOccurred())

			// Appending bumps updated_at, promoting the older session.
			time.Sleep(5 * time.Millisecond)
			Expect(driver.AppendTurn(ctx, first.ID, userTurn("hello"))).To(Succeed())

			sessions, err := driver.ListSessions(ctx, userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(2))
			Expect(sessions[0].Name).To(Equal("first"))
		})

		It("deletes sessions along with their turns", func() {
			session, err := driver.CreateSession(ctx, userID, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.AppendTurn(ctx, session.ID, userTurn("hello"))).To(Succeed())

			Expect(driver.DeleteSession(ctx, session.ID)).To(Succeed())

			_, err = driver.ReadWindow(ctx, session.ID, 0)
			var notFound store.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(notFound.Kind).To(Equal("session"))
		})
	})

	Describe("turns", func() {
		var sessionID string

		BeforeEach(func() {
			user, err := driver.CreateUser(ctx, "carol")
			Expect(err).NotTo(HaveOccurred())
			session, err := driver.CreateSession(ctx, user.ID, "")
			Expect(err).NotTo(HaveOccurred())
			sessionID = session.ID
		})

		It("appends batches atomically and bumps the turn count", func() {
			batch := []*store.Turn{
				userTurn("q"),
				{Role: store.RoleAssistant, Content: "a"},
			}
			Expect(driver.AppendTurns(ctx, sessionID, batch)).To(Succeed())
			Expect(driver.AppendTurn(ctx, sessionID, userTurn("followup"))).To(Succeed())

			session, err := driver.GetSession(ctx, sessionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.TurnCount).To(Equal(3))
		})

		It("round-trips tool invocation turns", func() {
			turn := &store.Turn{
				Role:             store.RoleToolInvocation,
				AssistantContent: "Let me look that up.",
				ToolCalls: []store.ToolCall{
					{CallID: "call_1", ToolName: "search", Arguments: map[string]any{"query": "etcd"}},
				},
				ToolResults: []store.ToolResult{
					{CallID: "call_1", Payload: json.RawMessage(`{"answer":"etcd is a key-value store"}`)},
				},
			}
			Expect(driver.AppendTurn(ctx, sessionID, turn)).To(Succeed())

			window, err := driver.ReadWindow(ctx, sessionID, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(window).To(HaveLen(1))

			got := window[0]
			Expect(got.Role).To(Equal(store.RoleToolInvocation))
			Expect(got.AssistantContent).To(Equal("Let me look that up."))
			Expect(got.ToolCalls).To(HaveLen(1))
			Expect(got.ToolCalls[0].Arguments["query"]).To(Equal("etcd"))
			Expect(got.ToolResults).To(HaveLen(1))
			Expect(got.Paired()).To(BeTrue())
		})

		It("returns the newest turns in chronological order", func() {
			for i := 0; i < 10; i++ {
				Expect(driver.AppendTurn(ctx, sessionID, userTurn(fmt.Sprintf("turn-%d", i)))).To(Succeed())
			}

			window, err := driver.ReadWindow(ctx, sessionID, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(window).To(HaveLen(4))
			Expect(window[0].Content).To(Equal("turn-6"))
			Expect(window[3].Content).To(Equal("turn-9"))
		})

		It("returns everything when the window exceeds the history", func() {
			Expect(driver.AppendTurn(ctx, sessionID, userTurn("only"))).To(Succeed())

			window, err := driver.ReadWindow(ctx, sessionID, 100)
			Expect(err).NotTo(HaveOccurred())
			Expect(window).To(HaveLen(1))
		})

		It("survives reopening the database file", func() {
			Expect(driver.AppendTurns(ctx, sessionID, []*store.Turn{
				userTurn("persisted"),
				{Role: store.RoleAssistant, Content: "still here"},
			})).To(Succeed())
			Expect(driver.Close()).To(Succeed())

			reopened, err := NewDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			driver = reopened

			window, err := driver.ReadWindow(ctx, sessionID, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(window).To(HaveLen(2))
			Expect(window[0].Content).To(Equal("persisted"))
			Expect(window[1].Content).To(Equal("still here"))
		})

		It("rejects appends to unknown sessions", func() {
			err := driver.AppendTurn(ctx, "missing", userTurn("hello"))

			var notFound store.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(notFound.Kind).To(Equal("session"))
		})
	})
})
