package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/wager.space/internal/platform/config"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/challenge"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/engine"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/journal"
	"github.com/louisbranch/wager.space/internal/services/challenge/storage/integrity"
	"github.com/louisbranch/wager.space/internal/services/challenge/storage/memory"
	storagesqlite "github.com/louisbranch/wager.space/internal/services/challenge/storage/sqlite"
)

// Storage backends accepted by Env.Storage.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Env holds service settings read from the environment.
type Env struct {
	Storage              string `env:"WAGER_SPACE_STORAGE" envDefault:"sqlite"`
	EventsDBPath         string `env:"WAGER_SPACE_EVENTS_DB_PATH" envDefault:"data/challenge-events.db"`
	ProjectionsDBPath    string `env:"WAGER_SPACE_PROJECTIONS_DB_PATH" envDefault:"data/challenge-projections.db"`
	FlushRecipient       string `env:"WAGER_SPACE_FLUSH_RECIPIENT" envDefault:"owner"`
	IdempotencyCacheSize int    `env:"WAGER_SPACE_IDEMPOTENCY_CACHE_SIZE" envDefault:"1024"`
	SubscriberBuffer     int    `env:"WAGER_SPACE_SUBSCRIBER_BUFFER" envDefault:"64"`
}

// LoadEnv reads Env from the environment.
func LoadEnv() (Env, error) {
	var env Env
	if err := config.ParseEnv(&env); err != nil {
		return Env{}, err
	}
	return env, nil
}

// Open builds and bootstraps a service from env. base supplies the ambient
// dependencies (logger, metrics, tracer, clock); its stores are replaced.
func Open(ctx context.Context, env Env, keyring *integrity.Keyring, base Config) (*Service, error) {
	if keyring == nil {
		return nil, fmt.Errorf("event integrity keyring is required")
	}
	base.FlushRecipient = challenge.FlushRecipient(strings.TrimSpace(env.FlushRecipient))
	if env.IdempotencyCacheSize <= 0 {
		base.IdempotencyCacheSize = -1
	} else {
		base.IdempotencyCacheSize = env.IdempotencyCacheSize
	}
	base.SubscriberBuffer = env.SubscriberBuffer
	base.Verifier = keyring

	switch strings.ToLower(strings.TrimSpace(env.Storage)) {
	case StorageMemory:
		return OpenMemory(ctx, keyring, base)
	case "", StorageSQLite:
		return OpenSQLite(ctx, env.EventsDBPath, env.ProjectionsDBPath, keyring, base)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", env.Storage)
	}
}

// OpenMemory builds a service over an in-process journal and read models.
func OpenMemory(ctx context.Context, signer journal.Signer, base Config) (*Service, error) {
	registries, err := engine.BuildRegistries()
	if err != nil {
		return nil, fmt.Errorf("build registries: %w", err)
	}
	if verifier, ok := signer.(journal.Verifier); ok && base.Verifier == nil {
		base.Verifier = verifier
	}
	base.Events = journal.NewMemory(registries.Events, journal.WithSigner(signer))
	base.Projections = memory.NewProjections()
	return start(ctx, base)
}

// OpenSQLite builds a service over the SQLite journal and projections at the
// given paths. The journal is verified before anything is served.
func OpenSQLite(ctx context.Context, eventsPath, projectionsPath string, keyring *integrity.Keyring, base Config) (*Service, error) {
	bundle, err := openStorageBundle(ctx, eventsPath, projectionsPath, keyring)
	if err != nil {
		return nil, err
	}
	base.Events = bundle.events
	base.Projections = bundle.projections
	base.Verifier = keyring
	base.Closers = append(base.Closers, bundle.events.Close, bundle.projections.Close)
	svc, err := start(ctx, base)
	if err != nil {
		bundle.Close()
		return nil, err
	}
	return svc, nil
}

func start(ctx context.Context, cfg Config) (*Service, error) {
	svc, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := svc.Bootstrap(ctx); err != nil {
		svc.engine.Close()
		return nil, err
	}
	return svc, nil
}

type storageBundle struct {
	events      *storagesqlite.Store
	projections *storagesqlite.Store
}

// Close closes both stores, ignoring errors; it is used on failed startup.
func (b *storageBundle) Close() {
	if b == nil {
		return
	}
	_ = b.events.Close()
	_ = b.projections.Close()
}

func openStorageBundle(ctx context.Context, eventsPath, projectionsPath string, keyring *integrity.Keyring) (*storageBundle, error) {
	eventStore, err := openEventStore(ctx, eventsPath, keyring)
	if err != nil {
		return nil, err
	}
	projStore, err := openProjectionStore(projectionsPath)
	if err != nil {
		_ = eventStore.Close()
		return nil, err
	}
	return &storageBundle{events: eventStore, projections: projStore}, nil
}

// openEventStore opens the immutable event store and verifies chain integrity on boot.
func openEventStore(ctx context.Context, path string, keyring *integrity.Keyring) (*storagesqlite.Store, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	registries, err := engine.BuildRegistries()
	if err != nil {
		return nil, fmt.Errorf("build registries: %w", err)
	}
	store, err := storagesqlite.OpenEvents(path, keyring, registries.Events)
	if err != nil {
		return nil, fmt.Errorf("open events store: %w", err)
	}
	if err := store.VerifyEventIntegrity(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("verify event integrity: %w", err)
	}
	return store, nil
}

func openProjectionStore(path string) (*storagesqlite.Store, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	store, err := storagesqlite.OpenProjections(path)
	if err != nil {
		return nil, fmt.Errorf("open projections store: %w", err)
	}
	return store, nil
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	return nil
}
