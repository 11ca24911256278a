package projection

import (
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/challenge"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/clock"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/ledger"
	"github.com/louisbranch/wager.space/internal/services/challenge/storage"
)

// RecordFromState flattens challenge state into a listing row. LastSeq and
// UpdatedAt are left for the caller.
func RecordFromState(state challenge.State) storage.ChallengeRecord {
	return storage.ChallengeRecord{
		ID:          state.ChallengeID,
		Description: state.Description,
		Challenger:  state.Challenger,
		Contender:   state.Contender,
		Owner:       state.Owner,
		Address:     challenge.EscrowAddress(state.ChallengeID),
		Phase:       state.Phase.String(),
		Extended:    state.Extended,
		Paused:      state.Paused,
		Flushed:     state.Flushed,
		Deposits:    state.Ledger.Deposits,
		Payouts:     state.Ledger.Payouts,
		Reward:      state.Reward,
		FlushedTo:   state.FlushedTo,
		Days:        state.Duration.Days,
		Hours:       state.Duration.Hours,
		Minutes:     state.Duration.Minutes,
		CreatedAt:   state.CreatedAt,
		Deadline:    state.Deadline,
	}
}

// StateFromRecord rebuilds challenge state from a listing row. An empty
// record yields the zero state.
func StateFromRecord(rec storage.ChallengeRecord) challenge.State {
	if rec.ID == "" {
		return challenge.State{}
	}
	phase, _ := challenge.ParsePhase(rec.Phase)
	return challenge.State{
		Created:     true,
		ChallengeID: rec.ID,
		Description: rec.Description,
		Challenger:  rec.Challenger,
		Contender:   rec.Contender,
		Owner:       rec.Owner,
		CreatedAt:   rec.CreatedAt,
		Deadline:    rec.Deadline,
		Duration:    clock.Duration{Days: rec.Days, Hours: rec.Hours, Minutes: rec.Minutes},
		Phase:       phase,
		Extended:    rec.Extended,
		Paused:      rec.Paused,
		Flushed:     rec.Flushed,
		Ledger:      ledger.Ledger{Deposits: rec.Deposits, Payouts: rec.Payouts},
		Reward:      rec.Reward,
		FlushedTo:   rec.FlushedTo,
	}
}
