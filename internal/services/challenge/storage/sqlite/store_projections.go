package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/wager.space/internal/services/challenge/core/filter"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/replay"
	"github.com/louisbranch/wager.space/internal/services/challenge/storage"
)

const challengeColumns = `id, description, challenger, contender, owner, address, phase,
	extended, paused, flushed, deposits, payouts, reward, flushed_to,
	days, hours, minutes, created_at, deadline, updated_at, last_seq`

// PutChallenge inserts or replaces a challenge record.
func (s *Store) PutChallenge(ctx context.Context, rec storage.ChallengeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("challenge id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO challenges (`+challengeColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    description = excluded.description,
    challenger = excluded.challenger,
    contender = excluded.contender,
    owner = excluded.owner,
    address = excluded.address,
    phase = excluded.phase,
    extended = excluded.extended,
    paused = excluded.paused,
    flushed = excluded.flushed,
    deposits = excluded.deposits,
    payouts = excluded.payouts,
    reward = excluded.reward,
    flushed_to = excluded.flushed_to,
    days = excluded.days,
    hours = excluded.hours,
    minutes = excluded.minutes,
    created_at = excluded.created_at,
    deadline = excluded.deadline,
    updated_at = excluded.updated_at,
    last_seq = excluded.last_seq`,
		rec.ID,
		rec.Description,
		rec.Challenger,
		rec.Contender,
		rec.Owner,
		rec.Address,
		rec.Phase,
		boolToInt(rec.Extended),
		boolToInt(rec.Paused),
		boolToInt(rec.Flushed),
		int64(rec.Deposits),
		int64(rec.Payouts),
		int64(rec.Reward),
		rec.FlushedTo,
		rec.Days,
		rec.Hours,
		rec.Minutes,
		toMillis(rec.CreatedAt),
		toMillis(rec.Deadline),
		toMillis(rec.UpdatedAt),
		int64(rec.LastSeq),
	)
	if err != nil {
		return fmt.Errorf("put challenge: %w", err)
	}
	return nil
}

// GetChallenge fetches a challenge record by id.
func (s *Store) GetChallenge(ctx context.Context, id string) (storage.ChallengeRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ChallengeRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ChallengeRecord{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return storage.ChallengeRecord{}, fmt.Errorf("challenge id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+challengeColumns+" FROM challenges WHERE id = ?", id)
	rec, err := scanChallenge(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ChallengeRecord{}, storage.ErrNotFound
		}
		return storage.ChallengeRecord{}, fmt.Errorf("get challenge: %w", err)
	}
	return rec, nil
}

// ListChallenges returns a filtered page of challenge records ordered by id.
func (s *Store) ListChallenges(ctx context.Context, req storage.ListChallengesRequest) (storage.ChallengePage, error) {
	if err := ctx.Err(); err != nil {
		return storage.ChallengePage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ChallengePage{}, fmt.Errorf("storage is not configured")
	}
	pageSize := storage.ClampPageSize(req.PageSize)
	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	cond, err := filter.ParseChallengeFilter(req.Filter, now)
	if err != nil {
		return storage.ChallengePage{}, err
	}

	query := "SELECT " + challengeColumns + " FROM challenges WHERE id > ?"
	params := []any{req.PageToken}
	if cond.Clause != "" {
		query += " AND " + cond.Clause
		params = append(params, cond.Params...)
	}
	query += " ORDER BY id LIMIT ?"
	params = append(params, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return storage.ChallengePage{}, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()

	page := storage.ChallengePage{Challenges: make([]storage.ChallengeRecord, 0, pageSize)}
	for rows.Next() {
		rec, err := scanChallenge(rows)
		if err != nil {
			return storage.ChallengePage{}, fmt.Errorf("scan challenge: %w", err)
		}
		if len(page.Challenges) == pageSize {
			page.NextPageToken = page.Challenges[pageSize-1].ID
			break
		}
		page.Challenges = append(page.Challenges, rec)
	}
	if err := rows.Err(); err != nil {
		return storage.ChallengePage{}, fmt.Errorf("iterate challenges: %w", err)
	}
	return page, nil
}

// CreditWallet adds amount to address once per (challengeID, seq).
func (s *Store) CreditWallet(ctx context.Context, address string, amount uint64, challengeID string, seq uint64, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("wallet address is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO wallet_credits (challenge_id, seq, address, amount, credited_at) VALUES (?, ?, ?, ?, ?)",
		challengeID, int64(seq), address, int64(amount), toMillis(at),
	)
	if err != nil {
		return fmt.Errorf("record wallet credit: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("record wallet credit: %w", err)
	}
	if inserted == 0 {
		return nil
	}

	var current int64
	err = tx.QueryRowContext(ctx, "SELECT balance FROM wallets WHERE address = ?", address).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read wallet: %w", err)
	}
	if amount > storage.MaxWalletBalance || uint64(current) > storage.MaxWalletBalance-amount {
		return fmt.Errorf("%w: %s", storage.ErrWalletOverflow, address)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO wallets (address, balance, updated_at) VALUES (?, ?, ?)
ON CONFLICT(address) DO UPDATE SET
    balance = wallets.balance + excluded.balance,
    updated_at = excluded.updated_at`,
		address, int64(amount), toMillis(at),
	); err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetWallet returns the balance credited to address. Unknown addresses hold
// nothing.
func (s *Store) GetWallet(ctx context.Context, address string) (storage.WalletRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.WalletRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.WalletRecord{}, fmt.Errorf("storage is not configured")
	}

	var (
		balance   int64
		updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT balance, updated_at FROM wallets WHERE address = ?", address,
	).Scan(&balance, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.WalletRecord{Address: address}, nil
		}
		return storage.WalletRecord{}, fmt.Errorf("get wallet: %w", err)
	}
	return storage.WalletRecord{
		Address:   address,
		Balance:   uint64(balance),
		UpdatedAt: fromMillis(updatedAt),
	}, nil
}

// Get returns the projection checkpoint for a challenge.
func (s *Store) Get(ctx context.Context, challengeID string) (replay.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return replay.Checkpoint{}, err
	}
	if s == nil || s.sqlDB == nil {
		return replay.Checkpoint{}, fmt.Errorf("storage is not configured")
	}

	var (
		lastSeq   int64
		updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT last_seq, updated_at FROM projection_checkpoints WHERE challenge_id = ?", challengeID,
	).Scan(&lastSeq, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return replay.Checkpoint{}, replay.ErrCheckpointNotFound
		}
		return replay.Checkpoint{}, fmt.Errorf("get checkpoint: %w", err)
	}
	return replay.Checkpoint{
		ChallengeID: challengeID,
		LastSeq:     uint64(lastSeq),
		UpdatedAt:   fromMillis(updatedAt),
	}, nil
}

// Save stores the projection checkpoint for a challenge.
func (s *Store) Save(ctx context.Context, cp replay.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(cp.ChallengeID) == "" {
		return fmt.Errorf("challenge id is required")
	}
	updatedAt := cp.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO projection_checkpoints (challenge_id, last_seq, updated_at) VALUES (?, ?, ?)
ON CONFLICT(challenge_id) DO UPDATE SET
    last_seq = excluded.last_seq,
    updated_at = excluded.updated_at`,
		cp.ChallengeID, int64(cp.LastSeq), toMillis(updatedAt),
	); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func scanChallenge(row rowScanner) (storage.ChallengeRecord, error) {
	var (
		rec                       storage.ChallengeRecord
		extended, paused, flushed int64
		deposits, payouts, reward int64
		createdAt, deadline       int64
		updatedAt, lastSeq        int64
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Description,
		&rec.Challenger,
		&rec.Contender,
		&rec.Owner,
		&rec.Address,
		&rec.Phase,
		&extended,
		&paused,
		&flushed,
		&deposits,
		&payouts,
		&reward,
		&rec.FlushedTo,
		&rec.Days,
		&rec.Hours,
		&rec.Minutes,
		&createdAt,
		&deadline,
		&updatedAt,
		&lastSeq,
	); err != nil {
		return storage.ChallengeRecord{}, err
	}
	rec.Extended = extended != 0
	rec.Paused = paused != 0
	rec.Flushed = flushed != 0
	rec.Deposits = uint64(deposits)
	rec.Payouts = uint64(payouts)
	rec.Reward = uint64(reward)
	rec.CreatedAt = fromMillis(createdAt)
	rec.Deadline = fromMillis(deadline)
	rec.UpdatedAt = fromMillis(updatedAt)
	rec.LastSeq = uint64(lastSeq)
	return rec, nil
}
