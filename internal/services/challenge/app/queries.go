package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/wager.space/internal/platform/errors"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/challenge"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/clock"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/journal"
	"github.com/louisbranch/wager.space/internal/services/challenge/projection"
	"github.com/louisbranch/wager.space/internal/services/challenge/storage"
)

// ChallengeView is the listing tuple of a challenge plus its derived fields.
type ChallengeView struct {
	ID          string
	Description string
	Challenger  string
	Contender   string
	Owner       string
	// Address is the escrow handle.
	Address        string
	Phase          challenge.Phase
	Accepted       bool
	Completed      bool
	Finished       bool
	Expired        bool
	Extended       bool
	Paused         bool
	Flushed        bool
	Status         challenge.Status
	ExpirationDate time.Time
	Duration       clock.Duration
	Countdown      clock.Countdown
	Balance        uint64
	Deposits       uint64
	Payouts        uint64
	Reward         uint64
	FinalBalance   uint64
	FlushedTo      string
	CreatedAt      time.Time
}

// ChallengeList is a page of challenges.
type ChallengeList struct {
	Challenges    []ChallengeView
	NextPageToken string
}

// ListRequest selects a page of challenges.
type ListRequest struct {
	PageSize  int
	PageToken string
	Filter    string
}

// Actions lists what a caller may do on a challenge right now.
type Actions struct {
	Accept     bool
	Complete   bool
	Finish     bool
	Contribute bool
	Flush      bool
}

func viewFromState(state challenge.State, now time.Time) ChallengeView {
	return ChallengeView{
		ID:             state.ChallengeID,
		Description:    state.Description,
		Challenger:     state.Challenger,
		Contender:      state.Contender,
		Owner:          state.Owner,
		Address:        challenge.EscrowAddress(state.ChallengeID),
		Phase:          state.Phase,
		Accepted:       state.Accepted(),
		Completed:      state.Completed(),
		Finished:       state.Finished(),
		Expired:        state.Expired(now),
		Extended:       state.Extended,
		Paused:         state.Paused,
		Flushed:        state.Flushed,
		Status:         state.Status(now),
		ExpirationDate: state.Deadline,
		Duration:       state.Duration,
		Countdown:      state.Countdown(now),
		Balance:        state.Balance(),
		Deposits:       state.Ledger.Deposits,
		Payouts:        state.Ledger.Payouts,
		Reward:         state.Reward,
		FinalBalance:   state.FinalBalance(),
		FlushedTo:      state.FlushedTo,
		CreatedAt:      state.CreatedAt,
	}
}

func (s *Service) state(ctx context.Context, challengeID string) (challenge.State, error) {
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return challenge.State{}, apperrors.New(apperrors.CodeInvalidArgument, "challenge id is required")
	}
	return s.engine.State(ctx, challengeID)
}

// GetChallenge returns the committed view of a challenge.
func (s *Service) GetChallenge(ctx context.Context, challengeID string) (ChallengeView, error) {
	state, err := s.state(ctx, challengeID)
	if err != nil {
		return ChallengeView{}, err
	}
	return viewFromState(state, s.now()), nil
}

// GetDescription returns the challenge description.
func (s *Service) GetDescription(ctx context.Context, challengeID string) (string, error) {
	state, err := s.state(ctx, challengeID)
	if err != nil {
		return "", err
	}
	return state.Description, nil
}

// Expired reports whether the deadline passed without completion.
func (s *Service) Expired(ctx context.Context, challengeID string) (bool, error) {
	state, err := s.state(ctx, challengeID)
	if err != nil {
		return false, err
	}
	return state.Expired(s.now()), nil
}

// Extended reports whether the expiration was already extended.
func (s *Service) Extended(ctx context.Context, challengeID string) (bool, error) {
	state, err := s.state(ctx, challengeID)
	if err != nil {
		return false, err
	}
	return state.Extended, nil
}

// ChallengeBalance returns the escrow currently held.
func (s *Service) ChallengeBalance(ctx context.Context, challengeID string) (uint64, error) {
	state, err := s.state(ctx, challengeID)
	if err != nil {
		return 0, err
	}
	return state.Balance(), nil
}

// FinalBalance returns what the contender gets on completion.
func (s *Service) FinalBalance(ctx context.Context, challengeID string) (uint64, error) {
	state, err := s.state(ctx, challengeID)
	if err != nil {
		return 0, err
	}
	return state.FinalBalance(), nil
}

// Status returns the display status.
func (s *Service) Status(ctx context.Context, challengeID string) (challenge.Status, error) {
	state, err := s.state(ctx, challengeID)
	if err != nil {
		return "", err
	}
	return state.Status(s.now()), nil
}

// Countdown returns the time left until the deadline.
func (s *Service) Countdown(ctx context.Context, challengeID string) (clock.Countdown, error) {
	state, err := s.state(ctx, challengeID)
	if err != nil {
		return clock.Countdown{}, err
	}
	return state.Countdown(s.now()), nil
}

// Actions evaluates the per-caller predicates a client renders as buttons.
func (s *Service) Actions(ctx context.Context, challengeID string, caller string) (Actions, error) {
	state, err := s.state(ctx, challengeID)
	if err != nil {
		return Actions{}, err
	}
	now := s.now()
	return Actions{
		Accept:     state.CanBeAccepted(caller),
		Complete:   state.CanBeCompleted(caller),
		Finish:     state.CanBeFinished(caller, now),
		Contribute: state.CanContribute(caller, now),
		Flush:      state.CanFlush(caller),
	}, nil
}

// ListChallenges pages through the challenge read model.
func (s *Service) ListChallenges(ctx context.Context, req ListRequest) (ChallengeList, error) {
	now := s.now()
	page, err := s.projections.ListChallenges(ctx, storage.ListChallengesRequest{
		PageSize:  storage.ClampPageSize(req.PageSize),
		PageToken: strings.TrimSpace(req.PageToken),
		Filter:    strings.TrimSpace(req.Filter),
		Now:       now,
	})
	if err != nil {
		if ctx.Err() != nil || apperrors.CodeOf(err) != apperrors.CodeUnknown {
			return ChallengeList{}, err
		}
		return ChallengeList{}, apperrors.Wrap(apperrors.CodeInvalidArgument, fmt.Sprintf("list challenges: %v", err), err)
	}
	list := ChallengeList{
		Challenges:    make([]ChallengeView, 0, len(page.Challenges)),
		NextPageToken: page.NextPageToken,
	}
	for _, rec := range page.Challenges {
		list.Challenges = append(list.Challenges, viewFromState(projection.StateFromRecord(rec), now))
	}
	return list, nil
}

// WalletBalance returns what escrow payouts credited to address.
func (s *Service) WalletBalance(ctx context.Context, address string) (uint64, error) {
	address = challenge.NormalizeAddress(address)
	if address == "" {
		return 0, apperrors.New(apperrors.CodeInvalidArgument, "address is required")
	}
	wallet, err := s.projections.GetWallet(ctx, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return wallet.Balance, nil
}

// ListEvents returns the journal of a challenge in sequence order.
func (s *Service) ListEvents(ctx context.Context, challengeID string) ([]event.Event, error) {
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "challenge id is required")
	}
	events, err := s.events.ListEvents(ctx, challengeID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if len(events) == 0 {
		return nil, apperrors.WithMetadata(apperrors.CodeNotFound, "challenge not found", map[string]string{"ChallengeID": challengeID})
	}
	return events, nil
}

// Subscribe streams committed events for challengeID, or for every challenge
// when it is empty.
func (s *Service) Subscribe(ctx context.Context, challengeID string) (<-chan event.Event, func()) {
	return s.engine.Subscribe(ctx, strings.TrimSpace(challengeID))
}

// VerifyJournal checks the hash chain and signatures of every stream and
// returns how many events were verified.
func (s *Service) VerifyJournal(ctx context.Context) (int, error) {
	if s.verifier == nil {
		return 0, errors.New("journal verifier is not configured")
	}
	ids, err := s.events.ListChallengeIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list challenge ids: %w", err)
	}
	total := 0
	for _, challengeID := range ids {
		verified, err := journal.VerifyStream(ctx, s.events, challengeID, s.verifier)
		if err != nil {
			return total, fmt.Errorf("challenge_id=%s: %w", challengeID, err)
		}
		total += verified
	}
	return total, nil
}
