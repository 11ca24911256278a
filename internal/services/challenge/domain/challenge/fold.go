package challenge

import (
	"encoding/json"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
)

// Fold applies an event to challenge state.
func Fold(state State, evt event.Event) State {
	switch evt.Type {
	case EventTypeCreated:
		var payload CreatedPayload
		_ = json.Unmarshal(evt.PayloadJSON, &payload)
		state = State{
			Created:     true,
			ChallengeID: evt.ChallengeID,
			Description: payload.Description,
			Challenger:  payload.Challenger,
			Contender:   payload.Contender,
			Owner:       payload.Owner,
			CreatedAt:   evt.Timestamp.UTC(),
			Deadline:    payload.Deadline.UTC(),
			Duration:    payload.Duration,
			Phase:       PhaseCreated,
		}
	case EventTypeAccepted:
		if next, ok := state.Phase.accept(); ok {
			state.Phase = next
		}
	case EventTypeCompleted:
		var payload CompletedPayload
		_ = json.Unmarshal(evt.PayloadJSON, &payload)
		if next, ok := state.Phase.complete(); ok {
			state.Phase = next
		}
		if payload.Reward > 0 {
			if next, err := state.Ledger.Payout(payload.Reward); err == nil {
				state.Ledger = next
			}
		}
		state.Reward = payload.Reward
	case EventTypeFinished:
		if next, ok := state.Phase.finish(); ok {
			state.Phase = next
		}
	case EventTypeExpirationExtended:
		var payload ExpirationExtendedPayload
		_ = json.Unmarshal(evt.PayloadJSON, &payload)
		state.Deadline = payload.Deadline.UTC()
		state.Extended = true
	case EventTypePauseToggled:
		var payload PauseToggledPayload
		_ = json.Unmarshal(evt.PayloadJSON, &payload)
		state.Paused = payload.Paused
	case EventTypeBalanceFlushed:
		var payload BalanceFlushedPayload
		_ = json.Unmarshal(evt.PayloadJSON, &payload)
		if next, err := state.Ledger.Payout(payload.Amount); err == nil {
			state.Ledger = next
		}
		state.Flushed = true
		state.FlushedTo = payload.Recipient
	case EventTypeContributed:
		var payload ContributedPayload
		_ = json.Unmarshal(evt.PayloadJSON, &payload)
		if next, err := state.Ledger.Deposit(payload.Amount); err == nil {
			state.Ledger = next
		}
	}
	return state
}
