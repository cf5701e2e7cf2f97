package eventstream_test

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/eventstream"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/eventstream/nop"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/store"
)

var _ = Describe("TurnCommittedEvent", func() {
	It("serializes with the schema version and event type", func() {
		event := &eventstream.TurnCommittedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeTurnCommitted,
			EventID:       "event-1",
			EmittedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			SessionID:     "session-1",
			Turns: []*store.Turn{
				{Role: store.RoleUser, Content: "what is etcd?"},
				{Role: store.RoleAssistant, Content: "A key-value store."},
			},
			Rounds: 1,
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var decoded map[string]any
		Expect(json.Unmarshal(payload, &decoded)).To(Succeed())
		Expect(decoded["schema_version"]).To(BeEquivalentTo(1))
		Expect(decoded["event_type"]).To(Equal("exambot.turn.committed"))
		Expect(decoded["session_id"]).To(Equal("session-1"))
		Expect(decoded["turns"]).To(HaveLen(2))
		Expect(decoded).NotTo(HaveKey("user_id"))
	})
})

var _ = Describe("Nop publisher", func() {
	It("accepts events without error", func() {
		publisher := nop.NewPublisher()
		defer publisher.Close()

		err := publisher.PublishTurn(context.Background(), &eventstream.TurnCommittedEvent{
			SessionID: "session-1",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects nil events", func() {
		publisher := nop.NewPublisher()

		err := publisher.PublishTurn(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilTurnEvent))
	})
})
