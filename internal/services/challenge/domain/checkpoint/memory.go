// Package checkpoint provides replay checkpoint and snapshot stores.
package checkpoint

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/challenge"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/replay"
)

var (
	// ErrChallengeIDRequired indicates a missing challenge id.
	ErrChallengeIDRequired = errors.New("challenge id is required")

	errStoreRequired = errors.New("checkpoint store is required")
)

type snapshot struct {
	state   any
	lastSeq uint64
}

// Memory stores checkpoints and state snapshots in memory.
type Memory struct {
	mu          sync.Mutex
	checkpoints map[string]replay.Checkpoint
	states      map[string]snapshot
}

// NewMemory creates a new in-memory checkpoint store.
func NewMemory() *Memory {
	return &Memory{
		checkpoints: make(map[string]replay.Checkpoint),
		states:      make(map[string]snapshot),
	}
}

// Get retrieves a checkpoint by challenge id.
func (m *Memory) Get(ctx context.Context, challengeID string) (replay.Checkpoint, error) {
	if err := ctxErr(ctx); err != nil {
		return replay.Checkpoint{}, err
	}
	if m == nil {
		return replay.Checkpoint{}, errStoreRequired
	}
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return replay.Checkpoint{}, ErrChallengeIDRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	checkpoint, ok := m.checkpoints[challengeID]
	if !ok {
		return replay.Checkpoint{}, replay.ErrCheckpointNotFound
	}
	return checkpoint, nil
}

// Save persists a checkpoint.
func (m *Memory) Save(ctx context.Context, checkpoint replay.Checkpoint) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if m == nil {
		return errStoreRequired
	}
	challengeID := strings.TrimSpace(checkpoint.ChallengeID)
	if challengeID == "" {
		return ErrChallengeIDRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	checkpoint.ChallengeID = challengeID
	m.checkpoints[challengeID] = checkpoint
	return nil
}

// GetState retrieves a state snapshot and the sequence it was taken at.
func (m *Memory) GetState(ctx context.Context, challengeID string) (any, uint64, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, 0, err
	}
	if m == nil {
		return nil, 0, errStoreRequired
	}
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return nil, 0, ErrChallengeIDRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap, ok := m.states[challengeID]
	if !ok {
		return nil, 0, replay.ErrCheckpointNotFound
	}
	return cloneSnapshotState(snap.state), snap.lastSeq, nil
}

// SaveState persists a state snapshot and advances the checkpoint with it.
func (m *Memory) SaveState(ctx context.Context, challengeID string, lastSeq uint64, state any) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if m == nil {
		return errStoreRequired
	}
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return ErrChallengeIDRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[challengeID] = snapshot{state: cloneSnapshotState(state), lastSeq: lastSeq}
	m.checkpoints[challengeID] = replay.Checkpoint{
		ChallengeID: challengeID,
		LastSeq:     lastSeq,
		UpdatedAt:   time.Now().UTC(),
	}
	return nil
}

// Len returns the number of snapshots held.
func (m *Memory) Len() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

// challenge.State holds no reference types, so a value copy is a deep copy.
func cloneSnapshotState(state any) any {
	switch typed := state.(type) {
	case *challenge.State:
		if typed == nil {
			return challenge.State{}
		}
		return *typed
	default:
		return state
	}
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
