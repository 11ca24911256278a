package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/challenge"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/command"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
)

type spyDecider struct {
	called bool
}

func (s *spyDecider) Decide(_ any, _ command.Command, _ func() time.Time) command.Decision {
	s.called = true
	return command.Decision{}
}

type fixedDecider struct {
	decision command.Decision
}

func (f fixedDecider) Decide(_ any, _ command.Command, _ func() time.Time) command.Decision {
	return f.decision
}

type fakeJournal struct {
	nextSeq uint64
	last    event.Event
	err     error
}

func (f *fakeJournal) Append(_ context.Context, evt event.Event) (event.Event, error) {
	if f.err != nil {
		return event.Event{}, f.err
	}
	f.nextSeq++
	stored := evt
	stored.Seq = f.nextSeq
	stored.Hash = fmt.Sprintf("hash-%d", f.nextSeq)
	f.last = stored
	return stored, nil
}

type failingFolder struct{}

func (failingFolder) Fold(any, event.Event) (any, error) {
	return nil, errors.New("fold failed")
}

func testRegistries(t *testing.T) Registries {
	t.Helper()
	registries, err := BuildRegistries()
	if err != nil {
		t.Fatalf("build registries: %v", err)
	}
	return registries
}

func contributedEvent(at time.Time) event.Event {
	return event.Event{
		ChallengeID: "ch-1",
		Type:        challenge.EventTypeContributed,
		Timestamp:   at,
		ActorID:     "0xstranger",
		EntityType:  challenge.EntityType,
		EntityID:    "ch-1",
		PayloadJSON: []byte(`{"from":"0xstranger","amount":2}`),
	}
}

func TestHandle_RequiresRegistryAndDecider(t *testing.T) {
	if _, err := (Handler{}).Handle(context.Background(), command.Command{}); !errors.Is(err, ErrCommandRegistryRequired) {
		t.Fatalf("err = %v, want ErrCommandRegistryRequired", err)
	}
	handler := Handler{Commands: testRegistries(t).Commands}
	_, err := handler.Handle(context.Background(), command.Command{ChallengeID: "ch-1", Type: challenge.CommandTypeAccept, ActorID: "0xa"})
	if !errors.Is(err, ErrDeciderRequired) {
		t.Fatalf("err = %v, want ErrDeciderRequired", err)
	}
}

func TestHandle_ValidatesBeforeDeciding(t *testing.T) {
	decider := &spyDecider{}
	handler := Handler{Commands: testRegistries(t).Commands, Decider: decider}
	_, err := handler.Handle(context.Background(), command.Command{ChallengeID: "ch-1", Type: challenge.CommandTypeAccept})
	if !errors.Is(err, command.ErrActorIDRequired) {
		t.Fatalf("err = %v, want ErrActorIDRequired", err)
	}
	if decider.called {
		t.Fatal("expected decider not to be called")
	}
}

func TestHandle_ValidatesEventsWithRegistry(t *testing.T) {
	registries := testRegistries(t)
	bad := contributedEvent(time.Now())
	bad.PayloadJSON = []byte(`{"amount":0}`)
	journal := &fakeJournal{}
	handler := Handler{
		Commands: registries.Commands,
		Events:   registries.Events,
		Journal:  journal,
		Decider:  fixedDecider{decision: command.Accept(bad)},
	}
	_, err := handler.Handle(context.Background(), command.Command{ChallengeID: "ch-1", Type: challenge.CommandTypeContribute, ActorID: "0xstranger", PayloadJSON: []byte(`{"amount":0}`)})
	if err == nil {
		t.Fatal("expected event validation error")
	}
	if journal.nextSeq != 0 {
		t.Fatal("invalid events must not be journaled")
	}
}

func TestHandle_RejectionsSkipJournal(t *testing.T) {
	journal := &fakeJournal{}
	handler := Handler{
		Commands: testRegistries(t).Commands,
		Journal:  journal,
		Decider: fixedDecider{decision: command.Decision{
			Events:     []event.Event{contributedEvent(time.Now())},
			Rejections: []command.Rejection{{Code: "UNAUTHORIZED", Message: "no"}},
		}},
	}
	decision, err := handler.Handle(context.Background(), command.Command{ChallengeID: "ch-1", Type: challenge.CommandTypeAccept, ActorID: "0xa"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(decision.Events) != 0 || journal.nextSeq != 0 {
		t.Fatal("rejected decision must not journal events")
	}
}

func TestExecute_FoldsJournaledEvents(t *testing.T) {
	registries := testRegistries(t)
	journal := &fakeJournal{}
	handler := Handler{
		Commands: registries.Commands,
		Events:   registries.Events,
		Journal:  journal,
		Decider:  fixedDecider{decision: command.Accept(contributedEvent(time.Now()))},
		Folder:   ChallengeFolder{},
	}
	result, err := handler.Execute(context.Background(), command.Command{ChallengeID: "ch-1", Type: challenge.CommandTypeContribute, ActorID: "0xstranger", PayloadJSON: []byte(`{"amount":2}`)})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	state := result.State.(challenge.State)
	if state.Balance() != 2 {
		t.Fatalf("balance = %d, want 2", state.Balance())
	}
	if result.Decision.Events[0].Seq != 1 {
		t.Fatalf("seq = %d, want 1", result.Decision.Events[0].Seq)
	}
}

func TestExecute_FoldFailureIsNonRetryable(t *testing.T) {
	registries := testRegistries(t)
	handler := Handler{
		Commands: registries.Commands,
		Events:   registries.Events,
		Journal:  &fakeJournal{},
		Decider:  fixedDecider{decision: command.Accept(contributedEvent(time.Now()))},
		Folder:   failingFolder{},
	}
	_, err := handler.Execute(context.Background(), command.Command{ChallengeID: "ch-1", Type: challenge.CommandTypeContribute, ActorID: "0xstranger", PayloadJSON: []byte(`{"amount":2}`)})
	if !IsNonRetryable(err) {
		t.Fatalf("err = %v, want non-retryable", err)
	}
}

func TestExecute_JournalFailureIsRetryable(t *testing.T) {
	registries := testRegistries(t)
	handler := Handler{
		Commands: registries.Commands,
		Events:   registries.Events,
		Journal:  &fakeJournal{err: errors.New("disk full")},
		Decider:  fixedDecider{decision: command.Accept(contributedEvent(time.Now()))},
		Folder:   ChallengeFolder{},
	}
	_, err := handler.Execute(context.Background(), command.Command{ChallengeID: "ch-1", Type: challenge.CommandTypeContribute, ActorID: "0xstranger", PayloadJSON: []byte(`{"amount":2}`)})
	if err == nil || IsNonRetryable(err) {
		t.Fatalf("err = %v, want retryable failure", err)
	}
}

func TestChallengeFolderRejectsForeignEvents(t *testing.T) {
	state := challenge.State{Created: true, ChallengeID: "ch-2"}
	if _, err := (ChallengeFolder{}).Fold(state, contributedEvent(time.Now())); err == nil {
		t.Fatal("expected foreign event error")
	}
	if _, err := (ChallengeFolder{}).Fold("bogus", contributedEvent(time.Now())); err == nil {
		t.Fatal("expected unsupported state error")
	}
}

func TestBuildRegistries(t *testing.T) {
	registries := testRegistries(t)
	if got := len(registries.Commands.ListDefinitions()); got != 8 {
		t.Fatalf("commands = %d, want 8", got)
	}
	if got := len(registries.Events.ListDefinitions()); got != 8 {
		t.Fatalf("events = %d, want 8", got)
	}
}
