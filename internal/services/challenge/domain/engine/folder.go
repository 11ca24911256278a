package engine

import (
	"fmt"
	"time"

	apperrors "github.com/louisbranch/wager.space/internal/platform/errors"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/challenge"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/command"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
)

// ChallengeFolder folds events into challenge.State for replay.
type ChallengeFolder struct{}

// Fold implements replay.Folder.
func (ChallengeFolder) Fold(state any, evt event.Event) (any, error) {
	current, err := challengeState(state)
	if err != nil {
		return nil, err
	}
	if current.Created && current.ChallengeID != evt.ChallengeID {
		return nil, fmt.Errorf("event for %s folded into %s", evt.ChallengeID, current.ChallengeID)
	}
	return challenge.Fold(current, evt), nil
}

// ChallengeDecider routes commands to challenge.Decide.
type ChallengeDecider struct{}

// Decide implements Decider.
func (ChallengeDecider) Decide(state any, cmd command.Command, now func() time.Time) command.Decision {
	current, err := challengeState(state)
	if err != nil {
		return command.Reject(command.Rejection{Code: string(apperrors.CodeUnknown), Message: err.Error()})
	}
	return challenge.Decide(current, cmd, now)
}

func challengeState(state any) (challenge.State, error) {
	switch typed := state.(type) {
	case nil:
		return challenge.State{}, nil
	case challenge.State:
		return typed, nil
	case *challenge.State:
		if typed == nil {
			return challenge.State{}, nil
		}
		return *typed, nil
	default:
		return challenge.State{}, fmt.Errorf("unsupported state type %T", state)
	}
}
