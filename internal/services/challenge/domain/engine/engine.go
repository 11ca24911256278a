package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	apperrors "github.com/louisbranch/wager.space/internal/platform/errors"
	"github.com/louisbranch/wager.space/internal/platform/metrics"
	platformotel "github.com/louisbranch/wager.space/internal/platform/otel"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/challenge"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/checkpoint"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/command"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/replay"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

var (
	// ErrJournalRequired indicates a missing journal.
	ErrJournalRequired = errors.New("journal is required")
	// ErrEventStoreRequired indicates a missing event store for replay.
	ErrEventStoreRequired = errors.New("event store is required")
)

// Projector applies committed events to read models.
type Projector interface {
	Apply(ctx context.Context, evt event.Event) error
}

// Config wires an Engine.
type Config struct {
	Registries Registries
	Journal    EventJournal
	// Events is read when a challenge is not yet held in memory.
	Events    replay.EventStore
	Snapshots StateSnapshotStore
	Projector Projector
	Metrics   metrics.EngineMetrics
	Logger    zerolog.Logger
	Tracer    trace.Tracer
	Now       func() time.Time
	// IdempotencyCacheSize bounds remembered request outcomes; 0 disables it.
	IdempotencyCacheSize int
	SubscriberBuffer     int
}

// Outcome is the committed result of one command.
type Outcome struct {
	Event event.Event
	State challenge.State
	// Replayed is set when the outcome was served from the idempotency cache.
	Replayed bool
}

type snapshot struct {
	state challenge.State
	seq   uint64
}

type requestKey struct {
	scope     string
	requestID string
}

type recorded struct {
	commandType command.Type
	outcome     Outcome
	err         error
}

// Engine serializes commands per challenge and publishes committed state.
type Engine struct {
	handler   Handler
	loader    ReplayStateLoader
	locks     *instanceLocks
	mu        sync.RWMutex
	states    map[string]*atomic.Pointer[snapshot]
	recent    *lru.Cache[requestKey, recorded]
	broker    *Broker
	projector Projector
	metrics   metrics.EngineMetrics
	log       zerolog.Logger
	tracer    trace.Tracer
}

// New builds an engine from cfg.
func New(cfg Config) (*Engine, error) {
	if cfg.Registries.Commands == nil {
		return nil, ErrCommandRegistryRequired
	}
	if cfg.Journal == nil {
		return nil, ErrJournalRequired
	}
	if cfg.Events == nil {
		return nil, ErrEventStoreRequired
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopCollector()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = platformotel.Tracer()
	}
	if cfg.Snapshots == nil {
		cfg.Snapshots = checkpoint.NewMemory()
	}

	e := &Engine{
		locks:     newInstanceLocks(),
		states:    make(map[string]*atomic.Pointer[snapshot]),
		projector: cfg.Projector,
		metrics:   cfg.Metrics,
		log:       cfg.Logger.With().Str("component", "engine").Logger(),
		tracer:    cfg.Tracer,
	}
	e.broker = NewBroker(cfg.SubscriberBuffer, cfg.Metrics.SubscriberEventDropped)
	if cfg.IdempotencyCacheSize > 0 {
		cache, err := lru.New[requestKey, recorded](cfg.IdempotencyCacheSize)
		if err != nil {
			return nil, fmt.Errorf("idempotency cache: %w", err)
		}
		e.recent = cache
	}
	e.loader = ReplayStateLoader{
		Events:       cfg.Events,
		Checkpoints:  checkpoint.NewNoop(),
		Snapshots:    cfg.Snapshots,
		Folder:       ChallengeFolder{},
		StateFactory: func() any { return challenge.State{} },
	}
	e.handler = Handler{
		Commands:    cfg.Registries.Commands,
		Events:      cfg.Registries.Events,
		Journal:     cfg.Journal,
		Snapshots:   cfg.Snapshots,
		StateLoader: e,
		Decider:     ChallengeDecider{},
		Folder:      ChallengeFolder{},
		Now:         cfg.Now,
	}
	return e, nil
}

// Execute runs cmd inside the challenge's critical section. Rejections are
// returned as *apperrors.Error; the challenge is left untouched.
func (e *Engine) Execute(ctx context.Context, cmd command.Command) (Outcome, error) {
	ctx, span := e.tracer.Start(ctx, "challenge.execute", trace.WithAttributes(
		attribute.String("challenge.id", cmd.ChallengeID),
		attribute.String("challenge.command", string(cmd.Type)),
	))
	defer span.End()
	started := time.Now()

	validated, err := e.handler.Commands.ValidateForDecision(cmd)
	if err != nil {
		err = validationError(err)
		e.metrics.CommandHandled(string(cmd.Type), metrics.OutcomeRejected, time.Since(started))
		span.SetStatus(otelcodes.Error, err.Error())
		return Outcome{}, err
	}
	cmd = validated

	key, cacheable := e.requestKey(cmd)
	if prior, ok := e.remembered(key, cacheable); ok {
		return e.replayRecorded(cmd, prior, started)
	}

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	unlock := e.locks.lock(cmd.ChallengeID)
	defer unlock()

	if prior, ok := e.remembered(key, cacheable); ok {
		return e.replayRecorded(cmd, prior, started)
	}

	log := e.log.With().
		Str("challenge_id", cmd.ChallengeID).
		Str("command", string(cmd.Type)).
		Str("actor", cmd.ActorID).
		Logger()

	result, err := e.handler.Execute(ctx, cmd)
	if err != nil {
		e.metrics.CommandHandled(string(cmd.Type), metrics.OutcomeFailed, time.Since(started))
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		if IsNonRetryable(err) {
			// The journal may hold the event; drop the cached view so the
			// next access replays it.
			e.forget(cmd.ChallengeID)
			log.Error().Err(err).Msg("command failed after persist")
		} else {
			log.Warn().Err(err).Msg("command failed")
		}
		return Outcome{}, err
	}

	if result.Decision.Rejected() {
		rejection := RejectionError(cmd, result.Decision.Rejections[0])
		e.metrics.CommandHandled(string(cmd.Type), metrics.OutcomeRejected, time.Since(started))
		span.SetAttributes(attribute.String("challenge.rejection", string(rejection.Code)))
		log.Info().Str("code", string(rejection.Code)).Msg(rejection.Message)
		e.remember(key, cacheable, recorded{commandType: cmd.Type, err: rejection})
		return Outcome{}, rejection
	}
	if len(result.Decision.Events) == 0 {
		return Outcome{}, wrapNonRetryable(fmt.Errorf("%s accepted without events", cmd.Type))
	}

	state, err := challengeState(result.State)
	if err == nil {
		err = state.Ledger.Validate()
	}
	if err != nil {
		e.forget(cmd.ChallengeID)
		err = wrapNonRetryable(apperrors.Wrap(apperrors.CodeUnknown, "post-commit state invalid", err))
		log.Error().Err(err).Msg("command failed after persist")
		return Outcome{}, err
	}

	last := result.Decision.Events[len(result.Decision.Events)-1]
	e.publish(cmd.ChallengeID, snapshot{state: state, seq: last.Seq})

	for _, evt := range result.Decision.Events {
		if e.projector != nil {
			if err := e.projector.Apply(context.WithoutCancel(ctx), evt); err != nil {
				// Projections catch up from the journal on the next bootstrap.
				log.Error().Err(err).Uint64("seq", evt.Seq).Msg("projection apply failed")
			}
		}
		e.broker.Publish(evt)
		if direction, amount, ok := escrowMovement(evt); ok {
			e.metrics.EscrowMoved(direction, amount)
		}
	}

	e.metrics.CommandHandled(string(cmd.Type), metrics.OutcomeAccepted, time.Since(started))
	log.Debug().Uint64("seq", last.Seq).Str("event", challenge.EventName(last.Type)).Msg("command accepted")

	outcome := Outcome{Event: last, State: state}
	replayed := outcome
	replayed.Replayed = true
	e.remember(key, cacheable, recorded{commandType: cmd.Type, outcome: replayed})
	return outcome, nil
}

// State returns the committed state of a challenge without waiting on writers
// once it is held in memory.
func (e *Engine) State(ctx context.Context, challengeID string) (challenge.State, error) {
	if snap, ok := e.published(challengeID); ok {
		return snap.state, nil
	}
	if err := ctx.Err(); err != nil {
		return challenge.State{}, err
	}
	unlock := e.locks.lock(challengeID)
	defer unlock()
	if snap, ok := e.published(challengeID); ok {
		return snap.state, nil
	}
	state, err := e.Load(ctx, command.Command{ChallengeID: challengeID})
	if err != nil {
		return challenge.State{}, err
	}
	current := state.(challenge.State)
	if !current.Created {
		return challenge.State{}, apperrors.WithMetadata(apperrors.CodeNotFound, "challenge not found", map[string]string{"ChallengeID": challengeID})
	}
	return current, nil
}

// Load implements StateLoader: the published snapshot when present, else a
// replay of the journal that is then published.
func (e *Engine) Load(ctx context.Context, cmd command.Command) (any, error) {
	if snap, ok := e.published(cmd.ChallengeID); ok {
		return snap.state, nil
	}
	state, seq, err := e.loader.LoadWithSeq(ctx, cmd.ChallengeID)
	if err != nil {
		return nil, err
	}
	current, err := challengeState(state)
	if err != nil {
		return nil, err
	}
	if current.Created {
		e.publish(cmd.ChallengeID, snapshot{state: current, seq: seq})
	}
	return current, nil
}

// Subscribe streams committed events for challengeID, or every challenge when
// empty, until ctx is done or cancel is called.
func (e *Engine) Subscribe(ctx context.Context, challengeID string) (<-chan event.Event, func()) {
	ch, cancel := e.broker.Subscribe(challengeID)
	stop := context.AfterFunc(ctx, cancel)
	return ch, func() {
		stop()
		cancel()
	}
}

// Close ends every subscription.
func (e *Engine) Close() {
	e.broker.Close()
}

func (e *Engine) published(challengeID string) (snapshot, bool) {
	e.mu.RLock()
	ptr, ok := e.states[challengeID]
	e.mu.RUnlock()
	if !ok {
		return snapshot{}, false
	}
	snap := ptr.Load()
	if snap == nil {
		return snapshot{}, false
	}
	return *snap, true
}

func (e *Engine) publish(challengeID string, snap snapshot) {
	e.mu.RLock()
	ptr, ok := e.states[challengeID]
	e.mu.RUnlock()
	if ok {
		ptr.Store(&snap)
		return
	}
	e.mu.Lock()
	ptr, ok = e.states[challengeID]
	if !ok {
		ptr = atomic.NewPointer[snapshot](nil)
		e.states[challengeID] = ptr
	}
	count := len(e.states)
	e.mu.Unlock()
	ptr.Store(&snap)
	e.metrics.InstancesLoaded(count)
}

func (e *Engine) forget(challengeID string) {
	e.mu.Lock()
	delete(e.states, challengeID)
	count := len(e.states)
	e.mu.Unlock()
	e.metrics.InstancesLoaded(count)
}

func (e *Engine) requestKey(cmd command.Command) (requestKey, bool) {
	if e.recent == nil || cmd.RequestID == "" {
		return requestKey{}, false
	}
	scope := cmd.ChallengeID
	if cmd.Type == challenge.CommandTypeCreate {
		// Creation ids are minted per call; retries share only the caller.
		scope = "create:" + cmd.ActorID
	}
	return requestKey{scope: scope, requestID: cmd.RequestID}, true
}

func (e *Engine) remembered(key requestKey, cacheable bool) (recorded, bool) {
	if !cacheable {
		return recorded{}, false
	}
	return e.recent.Get(key)
}

// replayRecorded serves a retry from the cache. A request id reused by a
// different command type is rejected instead of answered with the other
// command's outcome.
func (e *Engine) replayRecorded(cmd command.Command, prior recorded, started time.Time) (Outcome, error) {
	if prior.commandType != cmd.Type {
		e.metrics.CommandHandled(string(cmd.Type), metrics.OutcomeRejected, time.Since(started))
		return Outcome{}, apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			fmt.Sprintf("request id %q was already used for %s", cmd.RequestID, prior.commandType),
			map[string]string{"ChallengeID": cmd.ChallengeID, "RequestID": cmd.RequestID})
	}
	e.metrics.CommandHandled(string(cmd.Type), metrics.OutcomeReplayed, time.Since(started))
	return prior.outcome, prior.err
}

func (e *Engine) remember(key requestKey, cacheable bool, value recorded) {
	if cacheable {
		e.recent.Add(key, value)
	}
}

// escrowMovement reports the units an event moves into or out of escrow.
func escrowMovement(evt event.Event) (string, uint64, bool) {
	switch evt.Type {
	case challenge.EventTypeContributed:
		var payload challenge.ContributedPayload
		if json.Unmarshal(evt.PayloadJSON, &payload) == nil && payload.Amount > 0 {
			return "deposit", payload.Amount, true
		}
	case challenge.EventTypeCompleted:
		var payload challenge.CompletedPayload
		if json.Unmarshal(evt.PayloadJSON, &payload) == nil && payload.Reward > 0 {
			return "payout", payload.Reward, true
		}
	case challenge.EventTypeBalanceFlushed:
		var payload challenge.BalanceFlushedPayload
		if json.Unmarshal(evt.PayloadJSON, &payload) == nil && payload.Amount > 0 {
			return "payout", payload.Amount, true
		}
	}
	return "", 0, false
}
