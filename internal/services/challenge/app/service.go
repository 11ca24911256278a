package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/wager.space/internal/platform/id"
	"github.com/louisbranch/wager.space/internal/platform/logging"
	"github.com/louisbranch/wager.space/internal/platform/metrics"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/challenge"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/engine"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/journal"
	"github.com/louisbranch/wager.space/internal/services/challenge/projection"
	"github.com/louisbranch/wager.space/internal/services/challenge/storage"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
)

var (
	// ErrEventStoreRequired indicates a service without a journal.
	ErrEventStoreRequired = errors.New("event store is required")
	// ErrProjectionStoreRequired indicates a service without read models.
	ErrProjectionStoreRequired = errors.New("projection store is required")
)

const defaultIdempotencyCacheSize = 1024

// Config wires a Service.
type Config struct {
	Events      storage.EventStore
	Projections storage.ProjectionStore
	// Verifier checks journal signatures; VerifyJournal is unavailable without it.
	Verifier journal.Verifier
	Metrics  metrics.EngineMetrics
	Logger   zerolog.Logger
	Tracer   trace.Tracer
	Now      func() time.Time
	NewID    func() (string, error)
	// FlushRecipient decides who receives a flushed balance; owner when empty.
	FlushRecipient challenge.FlushRecipient
	// IdempotencyCacheSize bounds remembered request outcomes; negative disables it.
	IdempotencyCacheSize int
	SubscriberBuffer     int
	// Closers are released by Close after the engine stops.
	Closers []func() error
}

// Service runs challenge commands and answers queries.
type Service struct {
	engine         *engine.Engine
	events         storage.EventStore
	projections    storage.ProjectionStore
	applier        projection.Applier
	verifier       journal.Verifier
	metrics        metrics.EngineMetrics
	log            zerolog.Logger
	now            func() time.Time
	newID          func() (string, error)
	flushRecipient challenge.FlushRecipient
	closers        []func() error
}

// New builds a service over cfg's stores. Call Bootstrap before serving.
func New(cfg Config) (*Service, error) {
	if cfg.Events == nil {
		return nil, ErrEventStoreRequired
	}
	if cfg.Projections == nil {
		return nil, ErrProjectionStoreRequired
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = id.NewID
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopCollector()
	}
	switch cfg.FlushRecipient {
	case "":
		cfg.FlushRecipient = challenge.FlushToOwner
	case challenge.FlushToOwner, challenge.FlushToChallenger:
	default:
		return nil, fmt.Errorf("unknown flush recipient %q", cfg.FlushRecipient)
	}
	cacheSize := cfg.IdempotencyCacheSize
	switch {
	case cacheSize == 0:
		cacheSize = defaultIdempotencyCacheSize
	case cacheSize < 0:
		cacheSize = 0
	}

	registries, err := engine.BuildRegistries()
	if err != nil {
		return nil, fmt.Errorf("build registries: %w", err)
	}
	applier := projection.NewApplier(cfg.Projections)
	eng, err := engine.New(engine.Config{
		Registries:           registries,
		Journal:              journal.StoreAdapter{Store: cfg.Events},
		Events:               cfg.Events,
		Projector:            applier,
		Metrics:              cfg.Metrics,
		Logger:               cfg.Logger,
		Tracer:               cfg.Tracer,
		Now:                  cfg.Now,
		IdempotencyCacheSize: cacheSize,
		SubscriberBuffer:     cfg.SubscriberBuffer,
	})
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	return &Service{
		engine:         eng,
		events:         cfg.Events,
		projections:    cfg.Projections,
		applier:        applier,
		verifier:       cfg.Verifier,
		metrics:        cfg.Metrics,
		log:            logging.Component(cfg.Logger, "challenge_service"),
		now:            cfg.Now,
		newID:          cfg.NewID,
		flushRecipient: cfg.FlushRecipient,
		closers:        cfg.Closers,
	}, nil
}

// Bootstrap catches the projections up to the journal head and loads every
// journaled challenge into the engine.
func (s *Service) Bootstrap(ctx context.Context) error {
	applied, err := s.applier.CatchUpAll(ctx, s.events)
	if err != nil {
		return fmt.Errorf("catch up projections: %w", err)
	}
	ids, err := s.events.ListChallengeIDs(ctx)
	if err != nil {
		return fmt.Errorf("list challenge ids: %w", err)
	}
	for _, challengeID := range ids {
		if _, err := s.engine.State(ctx, challengeID); err != nil {
			return fmt.Errorf("load challenge %s: %w", challengeID, err)
		}
	}
	s.log.Info().
		Int("challenges", len(ids)).
		Int("projected_events", applied).
		Msg("bootstrap complete")
	return nil
}

// Close ends subscriptions and releases the stores.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	s.engine.Close()
	var err error
	for _, closeFn := range s.closers {
		if closeFn != nil {
			err = multierr.Append(err, closeFn())
		}
	}
	return err
}
