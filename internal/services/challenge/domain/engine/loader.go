package engine

import (
	"context"
	"errors"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/command"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/replay"
)

// StateSnapshotStore loads and saves replay state snapshots keyed by challenge.
type StateSnapshotStore interface {
	GetState(ctx context.Context, challengeID string) (state any, lastSeq uint64, err error)
	SaveState(ctx context.Context, challengeID string, lastSeq uint64, state any) error
}

// ReplayStateLoader replays events to build state for command handling.
//
// A snapshot, when present, seeds the replay so only the journal tail is read.
type ReplayStateLoader struct {
	Events       replay.EventStore
	Checkpoints  replay.CheckpointStore
	Snapshots    StateSnapshotStore
	Folder       replay.Folder
	StateFactory func() any
	Options      replay.Options
}

// Load replays events to reconstruct state for a challenge.
func (l ReplayStateLoader) Load(ctx context.Context, cmd command.Command) (any, error) {
	state, _, err := l.LoadWithSeq(ctx, cmd.ChallengeID)
	return state, err
}

// LoadWithSeq returns the state and the sequence of the last folded event.
func (l ReplayStateLoader) LoadWithSeq(ctx context.Context, challengeID string) (any, uint64, error) {
	if l.Events == nil {
		return nil, 0, replay.ErrEventStoreRequired
	}
	if l.Checkpoints == nil {
		return nil, 0, replay.ErrCheckpointStoreRequired
	}
	if l.Folder == nil {
		return nil, 0, replay.ErrFolderRequired
	}
	var state any
	options := l.Options
	if l.Snapshots != nil {
		snapshotState, snapshotSeq, err := l.Snapshots.GetState(ctx, challengeID)
		if err != nil {
			if !errors.Is(err, replay.ErrCheckpointNotFound) {
				return nil, 0, err
			}
		} else {
			state = snapshotState
			if snapshotSeq > options.AfterSeq {
				options.AfterSeq = snapshotSeq
			}
		}
	}
	if state == nil && l.StateFactory != nil {
		state = l.StateFactory()
	}
	result, err := replay.Replay(ctx, l.Events, l.Checkpoints, l.Folder, challengeID, state, options)
	if err != nil {
		return nil, 0, err
	}
	return result.State, result.LastSeq, nil
}
