// Package replay rebuilds state by folding journaled events in sequence order.
package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
)

const defaultPageSize = 200

var (
	// ErrEventStoreRequired indicates a missing event store.
	ErrEventStoreRequired = errors.New("event store is required")
	// ErrCheckpointStoreRequired indicates a missing checkpoint store.
	ErrCheckpointStoreRequired = errors.New("checkpoint store is required")
	// ErrFolderRequired indicates a missing folder.
	ErrFolderRequired = errors.New("folder is required")
	// ErrChallengeIDRequired indicates a missing challenge id.
	ErrChallengeIDRequired = errors.New("challenge id is required")
	// ErrCheckpointNotFound indicates no checkpoint exists yet.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// EventStore lists events for replay.
type EventStore interface {
	ListEvents(ctx context.Context, challengeID string, afterSeq uint64, limit int) ([]event.Event, error)
}

// CheckpointStore manages replay checkpoints.
type CheckpointStore interface {
	Get(ctx context.Context, challengeID string) (Checkpoint, error)
	Save(ctx context.Context, checkpoint Checkpoint) error
}

// Folder folds a domain event into state.
type Folder interface {
	Fold(state any, evt event.Event) (any, error)
}

// Checkpoint captures the last applied sequence for a challenge.
type Checkpoint struct {
	ChallengeID string
	LastSeq     uint64
	UpdatedAt   time.Time
}

// Options configures replay behavior.
type Options struct {
	AfterSeq uint64
	UntilSeq uint64
	PageSize int
}

// Result captures replay outcomes.
type Result struct {
	State   any
	LastSeq uint64
	Applied int
}

// Replay folds events in order and updates the checkpoint after each one.
func Replay(ctx context.Context, store EventStore, checkpoints CheckpointStore, folder Folder, challengeID string, state any, options Options) (Result, error) {
	if store == nil {
		return Result{}, ErrEventStoreRequired
	}
	if checkpoints == nil {
		return Result{}, ErrCheckpointStoreRequired
	}
	if folder == nil {
		return Result{}, ErrFolderRequired
	}
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return Result{}, ErrChallengeIDRequired
	}

	checkpointSeq := uint64(0)
	checkpoint, err := checkpoints.Get(ctx, challengeID)
	if err != nil {
		if !errors.Is(err, ErrCheckpointNotFound) {
			return Result{}, err
		}
	} else {
		checkpointSeq = checkpoint.LastSeq
	}

	lastSeq := options.AfterSeq
	if checkpointSeq > lastSeq {
		lastSeq = checkpointSeq
	}
	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	result := Result{State: state, LastSeq: lastSeq}
	for {
		events, err := store.ListEvents(ctx, challengeID, result.LastSeq, pageSize)
		if err != nil {
			return result, err
		}
		if len(events) == 0 {
			return result, nil
		}
		for _, evt := range events {
			if options.UntilSeq > 0 && evt.Seq > options.UntilSeq {
				return result, nil
			}
			expectedSeq := result.LastSeq + 1
			if evt.Seq != expectedSeq {
				return result, fmt.Errorf("event sequence gap: expected %d got %d", expectedSeq, evt.Seq)
			}
			nextState, err := folder.Fold(result.State, evt)
			if err != nil {
				return result, err
			}
			result.State = nextState
			result.LastSeq = evt.Seq
			result.Applied++
			if err := checkpoints.Save(ctx, Checkpoint{ChallengeID: challengeID, LastSeq: result.LastSeq, UpdatedAt: time.Now().UTC()}); err != nil {
				return result, err
			}
		}
		if len(events) < pageSize {
			return result, nil
		}
	}
}
