package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/wager.space/internal/services/challenge/core/filter"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/challenge"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/replay"
	"github.com/louisbranch/wager.space/internal/services/challenge/storage"
)

type creditKey struct {
	challengeID string
	seq         uint64
}

// Projections is a storage.ProjectionStore held in memory.
type Projections struct {
	mu          sync.RWMutex
	challenges  map[string]storage.ChallengeRecord
	wallets     map[string]storage.WalletRecord
	credits     map[creditKey]struct{}
	checkpoints map[string]replay.Checkpoint
}

var _ storage.ProjectionStore = (*Projections)(nil)

// NewProjections creates an empty projection store.
func NewProjections() *Projections {
	return &Projections{
		challenges:  make(map[string]storage.ChallengeRecord),
		wallets:     make(map[string]storage.WalletRecord),
		credits:     make(map[creditKey]struct{}),
		checkpoints: make(map[string]replay.Checkpoint),
	}
}

// PutChallenge inserts or replaces a challenge record.
func (p *Projections) PutChallenge(ctx context.Context, rec storage.ChallengeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("challenge id is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.challenges[rec.ID] = rec
	return nil
}

// GetChallenge fetches a challenge record by id.
func (p *Projections) GetChallenge(ctx context.Context, id string) (storage.ChallengeRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ChallengeRecord{}, err
	}
	if strings.TrimSpace(id) == "" {
		return storage.ChallengeRecord{}, fmt.Errorf("challenge id is required")
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.challenges[id]
	if !ok {
		return storage.ChallengeRecord{}, storage.ErrNotFound
	}
	return rec, nil
}

// ListChallenges returns a filtered page of challenge records ordered by id.
func (p *Projections) ListChallenges(ctx context.Context, req storage.ListChallengesRequest) (storage.ChallengePage, error) {
	if err := ctx.Err(); err != nil {
		return storage.ChallengePage{}, err
	}
	parsed, err := filter.Parse(req.Filter)
	if err != nil {
		return storage.ChallengePage{}, err
	}
	pageSize := storage.ClampPageSize(req.PageSize)
	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	p.mu.RLock()
	ids := make([]string, 0, len(p.challenges))
	for id := range p.challenges {
		if id > req.PageToken {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	page := storage.ChallengePage{Challenges: make([]storage.ChallengeRecord, 0, pageSize)}
	for _, id := range ids {
		rec := p.challenges[id]
		match, err := filter.Evaluate(parsed, recordRow{rec: rec, now: now})
		if err != nil {
			p.mu.RUnlock()
			return storage.ChallengePage{}, fmt.Errorf("evaluate filter: %w", err)
		}
		if !match {
			continue
		}
		if len(page.Challenges) == pageSize {
			page.NextPageToken = page.Challenges[pageSize-1].ID
			break
		}
		page.Challenges = append(page.Challenges, rec)
	}
	p.mu.RUnlock()
	return page, nil
}

// CreditWallet adds amount to address once per (challengeID, seq).
func (p *Projections) CreditWallet(ctx context.Context, address string, amount uint64, challengeID string, seq uint64, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("wallet address is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	key := creditKey{challengeID: challengeID, seq: seq}
	if _, ok := p.credits[key]; ok {
		return nil
	}
	wallet := p.wallets[address]
	if amount > storage.MaxWalletBalance || wallet.Balance > storage.MaxWalletBalance-amount {
		return fmt.Errorf("%w: %s", storage.ErrWalletOverflow, address)
	}
	p.credits[key] = struct{}{}
	wallet.Address = address
	wallet.Balance += amount
	wallet.UpdatedAt = at
	p.wallets[address] = wallet
	return nil
}

// GetWallet returns the balance credited to address. Unknown addresses hold
// nothing.
func (p *Projections) GetWallet(ctx context.Context, address string) (storage.WalletRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.WalletRecord{}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	wallet, ok := p.wallets[address]
	if !ok {
		return storage.WalletRecord{Address: address}, nil
	}
	return wallet, nil
}

// Get returns the projection checkpoint for a challenge.
func (p *Projections) Get(ctx context.Context, challengeID string) (replay.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return replay.Checkpoint{}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp, ok := p.checkpoints[challengeID]
	if !ok {
		return replay.Checkpoint{}, replay.ErrCheckpointNotFound
	}
	return cp, nil
}

// Save stores the projection checkpoint for a challenge.
func (p *Projections) Save(ctx context.Context, cp replay.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(cp.ChallengeID) == "" {
		return fmt.Errorf("challenge id is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkpoints[cp.ChallengeID] = cp
	return nil
}

// recordRow exposes a challenge record to filter evaluation.
type recordRow struct {
	rec storage.ChallengeRecord
	now time.Time
}

func (r recordRow) Text(field string) (string, bool) {
	switch field {
	case filter.FieldID:
		return r.rec.ID, true
	case filter.FieldDescription:
		return r.rec.Description, true
	case filter.FieldChallenger:
		return r.rec.Challenger, true
	case filter.FieldContender:
		return r.rec.Contender, true
	case filter.FieldOwner:
		return r.rec.Owner, true
	case filter.FieldPhase:
		return r.rec.Phase, true
	case filter.FieldFlushedTo:
		return r.rec.FlushedTo, true
	case filter.FieldStatus:
		return string(recordStatus(r.rec, r.now)), true
	default:
		return "", false
	}
}

func (r recordRow) Amount(field string) (uint64, bool) {
	switch field {
	case filter.FieldBalance:
		return r.rec.Balance(), true
	case filter.FieldDeposits:
		return r.rec.Deposits, true
	case filter.FieldPayouts:
		return r.rec.Payouts, true
	case filter.FieldReward:
		return r.rec.Reward, true
	case filter.FieldDays:
		if r.rec.Days < 0 {
			return 0, true
		}
		return uint64(r.rec.Days), true
	default:
		return 0, false
	}
}

func recordStatus(rec storage.ChallengeRecord, now time.Time) challenge.Status {
	phase, _ := challenge.ParsePhase(rec.Phase)
	state := challenge.State{Phase: phase, Deadline: rec.Deadline}
	return state.Status(now)
}
