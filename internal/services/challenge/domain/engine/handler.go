package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/command"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/replay"
)

var (
	// ErrCommandRegistryRequired indicates a missing command registry.
	ErrCommandRegistryRequired = errors.New("command registry is required")
	// ErrDeciderRequired indicates a missing decider.
	ErrDeciderRequired = errors.New("decider is required")
	// ErrFolderRequired indicates a missing folder when executing commands.
	ErrFolderRequired = errors.New("folder is required")
)

// StateLoader loads domain state for deciders.
type StateLoader interface {
	Load(ctx context.Context, cmd command.Command) (any, error)
}

// EventJournal appends events to the journal.
type EventJournal interface {
	Append(ctx context.Context, evt event.Event) (event.Event, error)
}

// Decider returns a decision for a command.
type Decider interface {
	Decide(state any, cmd command.Command, now func() time.Time) command.Decision
}

// Handler validates and decides commands, then persists and folds the result.
type Handler struct {
	Commands    *command.Registry
	Events      *event.Registry
	Journal     EventJournal
	Snapshots   StateSnapshotStore
	StateLoader StateLoader
	Decider     Decider
	Folder      replay.Folder
	Now         func() time.Time
}

// Result captures execution outcomes.
type Result struct {
	Decision command.Decision
	State    any
}

// Handle validates a command and returns a decision with journaled events.
func (h Handler) Handle(ctx context.Context, cmd command.Command) (command.Decision, error) {
	decision, _, err := h.handle(ctx, cmd)
	return decision, err
}

func (h Handler) handle(ctx context.Context, cmd command.Command) (command.Decision, any, error) {
	if h.Commands == nil {
		return command.Decision{}, nil, ErrCommandRegistryRequired
	}
	validated, err := h.Commands.ValidateForDecision(cmd)
	if err != nil {
		return command.Decision{}, nil, err
	}
	cmd = validated

	if h.Decider == nil {
		return command.Decision{}, nil, ErrDeciderRequired
	}
	var state any
	if h.StateLoader != nil {
		state, err = h.StateLoader.Load(ctx, cmd)
		if err != nil {
			return command.Decision{}, nil, err
		}
	}
	now := h.Now
	if now == nil {
		now = time.Now
	}
	decision := h.Decider.Decide(state, cmd, now)
	if decision.Rejected() {
		decision.Events = nil
		return decision, state, nil
	}
	if h.Events != nil && len(decision.Events) > 0 {
		validated := make([]event.Event, 0, len(decision.Events))
		for _, evt := range decision.Events {
			vetted, err := h.Events.ValidateForAppend(evt)
			if err != nil {
				return command.Decision{}, nil, err
			}
			validated = append(validated, vetted)
		}
		decision.Events = validated
	}
	if h.Journal != nil && len(decision.Events) > 0 {
		stored := make([]event.Event, 0, len(decision.Events))
		for _, evt := range decision.Events {
			appended, err := h.Journal.Append(ctx, evt)
			if err != nil {
				if len(stored) > 0 {
					return command.Decision{}, nil, wrapNonRetryable(err)
				}
				return command.Decision{}, nil, err
			}
			stored = append(stored, appended)
		}
		decision.Events = stored
	}
	return decision, state, nil
}

// Execute handles a command and folds emitted events into the loaded state.
//
// Once events are journaled, any later failure is non-retryable: a retry would
// append the same effect twice.
func (h Handler) Execute(ctx context.Context, cmd command.Command) (Result, error) {
	if h.Folder == nil {
		return Result{}, ErrFolderRequired
	}
	decision, state, err := h.handle(ctx, cmd)
	if err != nil {
		return Result{}, err
	}
	if decision.Rejected() || len(decision.Events) == 0 {
		return Result{Decision: decision, State: state}, nil
	}
	for _, evt := range decision.Events {
		state, err = h.Folder.Fold(state, evt)
		if err != nil {
			return Result{}, wrapNonRetryable(fmt.Errorf("fold %s: %w", evt.Type, err))
		}
	}
	if h.Snapshots != nil {
		last := decision.Events[len(decision.Events)-1]
		if last.Seq > 0 {
			if err := h.Snapshots.SaveState(context.WithoutCancel(ctx), last.ChallengeID, last.Seq, state); err != nil {
				return Result{}, wrapNonRetryable(fmt.Errorf("save snapshot: %w", err))
			}
		}
	}
	return Result{Decision: decision, State: state}, nil
}
