package projection

import (
	"context"
	"fmt"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/replay"
)

// Source lists journal streams for catch-up.
type Source interface {
	replay.EventStore
	ListChallengeIDs(ctx context.Context) ([]string, error)
}

// applyFolder adapts Apply to the replay folder contract; the replayed state
// is not used.
type applyFolder struct {
	ctx     context.Context
	applier Applier
}

func (f applyFolder) Fold(state any, evt event.Event) (any, error) {
	if err := f.applier.Apply(f.ctx, evt); err != nil {
		return nil, err
	}
	return state, nil
}

// CatchUp applies every event after the challenge's checkpoint.
func (a Applier) CatchUp(ctx context.Context, source replay.EventStore, challengeID string) (int, error) {
	if a.Checkpoints == nil {
		return 0, replay.ErrCheckpointStoreRequired
	}
	result, err := replay.Replay(ctx, source, a.Checkpoints, applyFolder{ctx: ctx, applier: a}, challengeID, nil, replay.Options{})
	if err != nil {
		return 0, fmt.Errorf("catch up challenge %s: %w", challengeID, err)
	}
	return result.Applied, nil
}

// CatchUpAll catches up every stream in source and returns the number of
// events applied.
func (a Applier) CatchUpAll(ctx context.Context, source Source) (int, error) {
	ids, err := source.ListChallengeIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list challenge ids: %w", err)
	}
	total := 0
	for _, id := range ids {
		applied, err := a.CatchUp(ctx, source, id)
		if err != nil {
			return total, err
		}
		total += applied
	}
	return total, nil
}
