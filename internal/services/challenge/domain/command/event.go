package command

import (
	"time"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
)

// NewEvent builds an event.Event by copying the shared envelope fields from a
// command. Callers supply the event type, entity addressing, payload and
// timestamp.
func NewEvent(cmd Command, eventType event.Type, entityType, entityID string, payloadJSON []byte, now time.Time) event.Event {
	return event.Event{
		ChallengeID: cmd.ChallengeID,
		Type:        eventType,
		Timestamp:   now,
		ActorID:     cmd.ActorID,
		RequestID:   cmd.RequestID,
		EntityType:  entityType,
		EntityID:    entityID,
		PayloadJSON: payloadJSON,
	}
}
