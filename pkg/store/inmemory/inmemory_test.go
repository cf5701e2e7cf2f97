package inmemory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
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

var _ = Describe("InMemory Driver", func() {
	var (
		ctx    context.Context
		driver *Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = NewDriver()
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

		It("renames users", func() {
			user, err := driver.CreateUser(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.RenameUser(ctx, user.ID, "alicia")).To(Succeed())

			renamed, err := driver.GetUser(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(renamed.Name).To(Equal("alicia"))
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

		It("renames sessions", func() {
			session, err := driver.CreateSession(ctx, userID, "")
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.RenameSession(ctx, session.ID, "Kubernetes prep")).To(Succeed())

			got, err := driver.GetSession(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal("Kubernetes prep"))
		})

		It("lists sessions most recently updated first", func() {
			first, err := driver.CreateSession(ctx, userID, "first")
			Expect(err).NotTo(HaveOccurred())
			second, err := driver.CreateSession(ctx, userID, "second")
			Expect(err).NotTo(HaveOccurred())

			// Appending bumps updated_at, promoting the session.
			Expect(driver.AppendTurn(ctx, first.ID, userTurn("hi"))).To(Succeed())

			sessions, err := driver.ListSessions(ctx, userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(2))
			Expect(sessions[0].ID).To(Equal(first.ID))
			Expect(sessions[1].ID).To(Equal(second.ID))
		})

		It("cascades deletion to turns", func() {
			session, err := driver.CreateSession(ctx, userID, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.AppendTurn(ctx, session.ID, userTurn("hi"))).To(Succeed())

			Expect(driver.DeleteSession(ctx, session.ID)).To(Succeed())

			_, err = driver.ReadWindow(ctx, session.ID, -1)
			var notFound store.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("rejects sessions for unknown users", func() {
			_, err := driver.CreateSession(ctx, "missing", "")
			Expect(err).To(HaveOccurred())
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

		It("appends atomically and bumps the turn count", func() {
			turns := []*store.Turn{userTurn("one"), userTurn("two"), userTurn("three")}
			Expect(driver.AppendTurns(ctx, sessionID, turns)).To(Succeed())

			session, err := driver.GetSession(ctx, sessionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.TurnCount).To(Equal(3))
		})

		It("round-trips tool invocation turns intact", func() {
			turn := &store.Turn{
				ID:               "tool-turn",
				Role:             store.RoleToolInvocation,
				Timestamp:        time.Now().UTC(),
				AssistantContent: "let me check",
				ToolCalls: []store.ToolCall{
					{CallID: "c1", ToolName: "search", Arguments: map[string]any{"query": "etcd"}},
				},
				ToolResults: []store.ToolResult{
					{CallID: "c1", Payload: json.RawMessage(`{"results":[]}`)},
				},
			}
			Expect(driver.AppendTurn(ctx, sessionID, turn)).To(Succeed())

			window, err := driver.ReadWindow(ctx, sessionID, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(window).To(HaveLen(1))
			Expect(window[0].Paired()).To(BeTrue())
			Expect(window[0].AssistantContent).To(Equal("let me check"))
			Expect(window[0].ToolCalls[0].Arguments["query"]).To(Equal("etcd"))
		})

		It("windows to the most recent turns in chronological order", func() {
			for i := range 10 {
				Expect(driver.AppendTurn(ctx, sessionID, userTurn(fmt.Sprintf("turn-%d", i)))).To(Succeed())
			}

			window, err := driver.ReadWindow(ctx, sessionID, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(window).To(HaveLen(4))
			Expect(window[0].Content).To(Equal("turn-6"))
			Expect(window[3].Content).To(Equal("turn-9"))
		})

		It("returns everything when the window is larger than the history", func() {
			Expect(driver.AppendTurn(ctx, sessionID, userTurn("only"))).To(Succeed())

			window, err := driver.ReadWindow(ctx, sessionID, 100)
			Expect(err).NotTo(HaveOccurred())
			Expect(window).To(HaveLen(1))
		})

		It("does not let callers mutate stored turns", func() {
			Expect(driver.AppendTurn(ctx, sessionID, userTurn("original"))).To(Succeed())

			window, err := driver.ReadWindow(ctx, sessionID, -1)
			Expect(err).NotTo(HaveOccurred())
			window[0].Content = "mutated"

			again, err := driver.ReadWindow(ctx, sessionID, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(again[0].Content).To(Equal("original"))
		})
	})
})
