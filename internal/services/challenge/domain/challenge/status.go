package challenge

import (
	"time"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/clock"
)

// Status is the display status of a challenge.
type Status string

const (
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
	StatusFinished Status = "finished"
)

// Accepted reports whether the contender has accepted.
func (s State) Accepted() bool { return s.Phase.Accepted() }

// Completed reports whether the owner has completed the challenge.
func (s State) Completed() bool { return s.Phase.Completed() }

// Finished reports whether the challenger has finished the challenge.
func (s State) Finished() bool { return s.Phase.Finished() }

// Balance returns the escrow currently held.
func (s State) Balance() uint64 { return s.Ledger.Balance() }

// Expired reports whether the deadline has passed without completion.
func (s State) Expired(now time.Time) bool {
	return clock.Expired(now, s.Deadline) && !s.Completed()
}

// Status resolves the display status; finished wins over expired.
func (s State) Status(now time.Time) Status {
	switch {
	case s.Finished():
		return StatusFinished
	case s.Expired(now):
		return StatusExpired
	default:
		return StatusActive
	}
}

// Countdown returns the time left until the deadline.
func (s State) Countdown(now time.Time) clock.Countdown {
	return clock.Remaining(now, s.Deadline)
}

// FinalBalance is the reward the contender gets: what was paid on completion,
// or what would be paid if the challenge were completed now.
func (s State) FinalBalance() uint64 {
	if s.Completed() {
		return s.Reward
	}
	return s.Balance()
}

// CanBeAccepted reports whether caller may accept right now.
func (s State) CanBeAccepted(caller string) bool {
	return s.Created && !s.Accepted() && NormalizeAddress(caller) == s.Contender
}

// CanBeCompleted reports whether caller may complete right now.
func (s State) CanBeCompleted(caller string) bool {
	return s.Created && !s.Completed() && !s.Paused && NormalizeAddress(caller) == s.Owner
}

// CanBeFinished reports whether caller may finish right now.
func (s State) CanBeFinished(caller string, now time.Time) bool {
	return s.Created && NormalizeAddress(caller) == s.Challenger && s.finishable(now)
}

// CanContribute reports whether caller may deposit right now.
func (s State) CanContribute(caller string, now time.Time) bool {
	return s.Created && NormalizeAddress(caller) != s.Contender && s.contributable(now) && !s.Paused
}

// CanFlush reports whether caller may flush right now.
func (s State) CanFlush(caller string) bool {
	return s.Created && NormalizeAddress(caller) == s.Owner && s.Completed() &&
		!s.Paused && !s.Flushed && s.Balance() > 0
}

func (s State) finishable(now time.Time) bool {
	return s.Completed() && s.Accepted() && !s.Expired(now) && !s.Finished()
}

func (s State) contributable(now time.Time) bool {
	return !s.Expired(now) && !s.Finished() && !s.Flushed
}
