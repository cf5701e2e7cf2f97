// Package eventstream defines the committed-turn event payload and the
// publisher boundary for streaming it to external consumers.
package eventstream

import "context"

// Publisher publishes turn events to an event stream backend.
type Publisher interface {
	PublishTurn(ctx context.Context, event *TurnCommittedEvent) error
	Close() error
}
