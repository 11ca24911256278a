package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/journal"
	"github.com/sethvargo/go-retry"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	defaultAppendRetries = 5
	appendRetryBase      = 10 * time.Millisecond
	appendRetryMax       = 250 * time.Millisecond
)

const eventColumns = `challenge_id, seq, event_hash, prev_event_hash, chain_hash, signature_key_id,
	event_signature, timestamp, event_type, request_id, actor_id, entity_type, entity_id, payload_json`

// AppendEvent atomically appends an event and returns it with sequence and hash set.
// Busy databases are retried with capped exponential backoff.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}
	if s.eventRegistry == nil {
		return event.Event{}, fmt.Errorf("event registry is required")
	}
	if s.keyring == nil {
		return event.Event{}, fmt.Errorf("event integrity keyring is required")
	}

	validated, err := s.eventRegistry.ValidateForAppend(evt)
	if err != nil {
		return event.Event{}, err
	}

	backoff := retry.NewExponential(appendRetryBase)
	backoff = retry.WithCappedDuration(appendRetryMax, backoff)
	backoff = retry.WithMaxRetries(s.appendRetries, backoff)

	var stored event.Event
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		appended, err := s.appendEventTx(ctx, validated)
		if err != nil {
			if isSQLiteBusyError(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		stored = appended
		return nil
	})
	if err != nil {
		return event.Event{}, err
	}
	return stored, nil
}

func (s *Store) appendEventTx(ctx context.Context, evt event.Event) (event.Event, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO event_seq (challenge_id, next_seq) VALUES (?, 1)",
		evt.ChallengeID,
	); err != nil {
		return event.Event{}, fmt.Errorf("init event seq: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		"SELECT next_seq FROM event_seq WHERE challenge_id = ?",
		evt.ChallengeID,
	).Scan(&seq); err != nil {
		return event.Event{}, fmt.Errorf("get event seq: %w", err)
	}
	evt.Seq = uint64(seq)

	if _, err := tx.ExecContext(ctx,
		"UPDATE event_seq SET next_seq = next_seq + 1 WHERE challenge_id = ?",
		evt.ChallengeID,
	); err != nil {
		return event.Event{}, fmt.Errorf("increment event seq: %w", err)
	}

	prevHash := ""
	if evt.Seq > 1 {
		if err := tx.QueryRowContext(ctx,
			"SELECT chain_hash FROM events WHERE challenge_id = ? AND seq = ?",
			evt.ChallengeID, int64(evt.Seq-1),
		).Scan(&prevHash); err != nil {
			return event.Event{}, fmt.Errorf("load previous event: %w", err)
		}
	}

	if err := journal.Seal(&evt, prevHash, s.keyring); err != nil {
		return event.Event{}, err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		evt.ChallengeID,
		int64(evt.Seq),
		evt.Hash,
		evt.PrevHash,
		evt.ChainHash,
		evt.SignatureKeyID,
		evt.Signature,
		toMillis(evt.Timestamp),
		string(evt.Type),
		evt.RequestID,
		evt.ActorID,
		evt.EntityType,
		evt.EntityID,
		evt.PayloadJSON,
	); err != nil {
		if isConstraintError(err) {
			return event.Event{}, fmt.Errorf("append event seq=%d: concurrent writer: %w", evt.Seq, err)
		}
		return event.Event{}, fmt.Errorf("append event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return event.Event{}, fmt.Errorf("commit: %w", err)
	}
	return evt, nil
}

// ListEvents returns events ordered by sequence ascending. A limit of zero or
// less returns every remaining event.
func (s *Store) ListEvents(ctx context.Context, challengeID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE challenge_id = ? AND seq > ? ORDER BY seq LIMIT ?",
		challengeID, int64(afterSeq), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ListChallengeIDs returns every challenge with at least one event.
func (s *Store) ListChallengeIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT DISTINCT challenge_id FROM events ORDER BY challenge_id")
	if err != nil {
		return nil, fmt.Errorf("list challenge ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan challenge id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate challenge ids: %w", err)
	}
	return ids, nil
}

// VerifyEventIntegrity checks the hash chain and signatures of every stream.
func (s *Store) VerifyEventIntegrity(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if s.keyring == nil {
		return fmt.Errorf("event integrity keyring is required")
	}
	ids, err := s.ListChallengeIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := journal.VerifyStream(ctx, s, id, s.keyring); err != nil {
			return fmt.Errorf("challenge_id=%s: %w", id, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (event.Event, error) {
	var (
		evt       event.Event
		seq       int64
		timestamp int64
		eventType string
	)
	if err := row.Scan(
		&evt.ChallengeID,
		&seq,
		&evt.Hash,
		&evt.PrevHash,
		&evt.ChainHash,
		&evt.SignatureKeyID,
		&evt.Signature,
		&timestamp,
		&eventType,
		&evt.RequestID,
		&evt.ActorID,
		&evt.EntityType,
		&evt.EntityID,
		&evt.PayloadJSON,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return event.Event{}, err
		}
		return event.Event{}, fmt.Errorf("scan event: %w", err)
	}
	evt.Seq = uint64(seq)
	evt.Timestamp = fromMillis(timestamp)
	evt.Type = event.Type(eventType)
	return evt, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func isSQLiteBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}
