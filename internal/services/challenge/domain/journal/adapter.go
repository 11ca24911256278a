package journal

import (
	"context"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
)

// Appender appends events to a durable store.
type Appender interface {
	AppendEvent(ctx context.Context, evt event.Event) (event.Event, error)
}

// StoreAdapter exposes a durable store as an engine journal.
type StoreAdapter struct {
	Store Appender
}

// Append forwards to the store.
func (a StoreAdapter) Append(ctx context.Context, evt event.Event) (event.Event, error) {
	return a.Store.AppendEvent(ctx, evt)
}
