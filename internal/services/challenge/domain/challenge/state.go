package challenge

import (
	"time"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/clock"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/ledger"
)

// State captures the replayed state of one challenge instance.
type State struct {
	Created     bool
	ChallengeID string
	Description string
	Challenger  string
	Contender   string
	Owner       string
	CreatedAt   time.Time
	Deadline    time.Time
	// Duration is the span requested at creation, kept for listings.
	Duration clock.Duration
	Phase    Phase
	Extended bool
	Paused   bool
	Flushed  bool
	Ledger   ledger.Ledger
	// Reward is the amount paid to the contender on completion.
	Reward uint64
	// FlushedTo is the address that received the flushed balance.
	FlushedTo string
}
