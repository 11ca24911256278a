package storage

import (
	"context"
	"errors"
	"math"
	"time"

	apperrors "github.com/louisbranch/wager.space/internal/platform/errors"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/replay"
)

// ErrNotFound indicates a requested persistence record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrAlreadyExists indicates a write collided with an existing unique record.
var ErrAlreadyExists = apperrors.New(apperrors.CodeAlreadyExists, "record already exists")

// ErrWalletOverflow indicates a credit that would exceed MaxWalletBalance.
var ErrWalletOverflow = errors.New("wallet balance overflow")

// MaxWalletBalance is the largest balance a wallet projection stores.
const MaxWalletBalance = math.MaxInt64

// DefaultPageSize and MaxPageSize bound listing pages.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// ClampPageSize applies the default and maximum page sizes.
func ClampPageSize(size int) int {
	switch {
	case size <= 0:
		return DefaultPageSize
	case size > MaxPageSize:
		return MaxPageSize
	default:
		return size
	}
}

// ChallengeRecord is the listing row for one challenge.
type ChallengeRecord struct {
	ID          string
	Description string
	Challenger  string
	Contender   string
	Owner       string
	// Address is the escrow handle derived from the id.
	Address   string
	Phase     string
	Extended  bool
	Paused    bool
	Flushed   bool
	Deposits  uint64
	Payouts   uint64
	Reward    uint64
	FlushedTo string
	// Days, Hours and Minutes are the duration requested at creation.
	Days      int
	Hours     int
	Minutes   int
	CreatedAt time.Time
	Deadline  time.Time
	UpdatedAt time.Time
	// LastSeq is the last journal sequence folded into the row.
	LastSeq uint64
}

// Balance returns the escrow currently held.
func (r ChallengeRecord) Balance() uint64 {
	return r.Deposits - r.Payouts
}

// ListChallengesRequest selects a page of challenges.
type ListChallengesRequest struct {
	PageSize  int
	PageToken string
	// Filter is an AIP-160 expression over the listing fields.
	Filter string
	// Now resolves time-derived fields such as status.
	Now time.Time
}

// ChallengePage describes a page of challenge records.
type ChallengePage struct {
	Challenges    []ChallengeRecord
	NextPageToken string
}

// ChallengeStore owns the challenge listing read model.
type ChallengeStore interface {
	PutChallenge(ctx context.Context, rec ChallengeRecord) error
	GetChallenge(ctx context.Context, id string) (ChallengeRecord, error)
	// ListChallenges returns challenges ordered by id; the page token is the
	// last id of the previous page.
	ListChallenges(ctx context.Context, req ListChallengesRequest) (ChallengePage, error)
}

// WalletRecord is the external balance of an address.
type WalletRecord struct {
	Address   string
	Balance   uint64
	UpdatedAt time.Time
}

// WalletStore owns balances credited to addresses by escrow payouts.
type WalletStore interface {
	// CreditWallet adds amount to address once per (challengeID, seq).
	CreditWallet(ctx context.Context, address string, amount uint64, challengeID string, seq uint64, at time.Time) error
	GetWallet(ctx context.Context, address string) (WalletRecord, error)
}

// ProjectionStore groups read models and their replay checkpoints.
type ProjectionStore interface {
	ChallengeStore
	WalletStore
	replay.CheckpointStore
}

// EventStore owns the event stream that drives replay; it is the source of
// truth for state reconstruction.
type EventStore interface {
	// AppendEvent atomically appends an event and returns it with sequence and hash set.
	AppendEvent(ctx context.Context, evt event.Event) (event.Event, error)
	// ListEvents returns events ordered by sequence ascending.
	ListEvents(ctx context.Context, challengeID string, afterSeq uint64, limit int) ([]event.Event, error)
	// ListChallengeIDs returns every challenge with at least one event.
	ListChallengeIDs(ctx context.Context) ([]string, error)
}

// Store is every persistence concern used by the challenge service.
type Store interface {
	EventStore
	ProjectionStore
	Close() error
}
