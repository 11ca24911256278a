package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/wager.space/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/wager.space/internal/platform/timeouts"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
	"github.com/louisbranch/wager.space/internal/services/challenge/storage"
	"github.com/louisbranch/wager.space/internal/services/challenge/storage/integrity"
	"github.com/louisbranch/wager.space/internal/services/challenge/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis reverses toMillis for persisted millisecond timestamps.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func boolToInt(value bool) int64 {
	if value {
		return 1
	}
	return 0
}

// Store provides a SQLite-backed store implementing all storage interfaces.
type Store struct {
	sqlDB         *sql.DB
	keyring       *integrity.Keyring
	eventRegistry *event.Registry
	appendRetries uint64
}

var _ storage.Store = (*Store)(nil)

// OpenEventsOption configures event-store behavior.
type OpenEventsOption func(*Store)

// WithAppendRetries bounds how many times an append is retried while the
// database is busy.
func WithAppendRetries(retries uint64) OpenEventsOption {
	return func(s *Store) {
		s.appendRetries = retries
	}
}

// OpenEvents opens a SQLite event journal store at the provided path.
//
// The keyring signs every appended chain hash and the registry validates
// events before they are hashed.
func OpenEvents(path string, keyring *integrity.Keyring, registry *event.Registry, opts ...OpenEventsOption) (*Store, error) {
	if keyring == nil {
		return nil, fmt.Errorf("event integrity keyring is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("event registry is required")
	}
	store, err := openStore(path, migrations.EventsFS, "events", keyring)
	if err != nil {
		return nil, err
	}
	store.eventRegistry = registry
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// OpenProjections opens a SQLite projections store at the provided path.
func OpenProjections(path string) (*Store, error) {
	return openStore(path, migrations.ProjectionsFS, "projections", nil)
}

// Close closes the underlying SQLite database. It is nil-safe.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Migrations lists the migrations applied to the database.
func (s *Store) Migrations(ctx context.Context) ([]string, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	return sqlitemigrate.Applied(ctx, s.sqlDB)
}

func openStore(path string, migrationFS fs.FS, migrationRoot string, keyring *integrity.Keyring) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cleanPath,
		timeouts.SQLiteBusy.Milliseconds(),
	)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{
		sqlDB:         sqlDB,
		keyring:       keyring,
		appendRetries: defaultAppendRetries,
	}

	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrationFS, migrationRoot); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}
