package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/challenge"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/replay"
	"github.com/louisbranch/wager.space/internal/services/challenge/storage"
)

var (
	// ErrChallengeStoreRequired indicates an applier without a challenge store.
	ErrChallengeStoreRequired = errors.New("challenge store is required")
	// ErrWalletStoreRequired indicates an applier without a wallet store.
	ErrWalletStoreRequired = errors.New("wallet store is required")
)

// Applier applies journal entries to projection stores.
type Applier struct {
	// Challenges writes the challenge listing read model.
	Challenges storage.ChallengeStore
	// Wallets receives escrow payouts.
	Wallets storage.WalletStore
	// Checkpoints, when set, records the last applied sequence per challenge.
	Checkpoints replay.CheckpointStore
}

// NewApplier wires an applier to a projection store.
func NewApplier(store storage.ProjectionStore) Applier {
	return Applier{Challenges: store, Wallets: store, Checkpoints: store}
}

// Apply folds evt into the challenge row and credits any payout it carries.
// Events at or below the row's last sequence are skipped.
func (a Applier) Apply(ctx context.Context, evt event.Event) error {
	if a.Challenges == nil {
		return ErrChallengeStoreRequired
	}
	if a.Wallets == nil {
		return ErrWalletStoreRequired
	}

	rec, err := a.Challenges.GetChallenge(ctx, evt.ChallengeID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if evt.Type != challenge.EventTypeCreated {
			return fmt.Errorf("apply %s seq=%d: challenge %s is not projected", evt.Type, evt.Seq, evt.ChallengeID)
		}
		rec = storage.ChallengeRecord{}
	case err != nil:
		return fmt.Errorf("load challenge %s: %w", evt.ChallengeID, err)
	}

	if rec.ID != "" {
		if evt.Seq <= rec.LastSeq {
			return nil
		}
		if evt.Seq != rec.LastSeq+1 {
			return fmt.Errorf("projection gap for challenge %s: expected seq %d got %d", evt.ChallengeID, rec.LastSeq+1, evt.Seq)
		}
	}

	if err := a.credit(ctx, evt); err != nil {
		return err
	}

	state := challenge.Fold(StateFromRecord(rec), evt)
	next := RecordFromState(state)
	next.LastSeq = evt.Seq
	next.UpdatedAt = evt.Timestamp.UTC()
	if err := a.Challenges.PutChallenge(ctx, next); err != nil {
		return fmt.Errorf("put challenge %s: %w", evt.ChallengeID, err)
	}

	if a.Checkpoints != nil {
		if err := a.Checkpoints.Save(ctx, replay.Checkpoint{
			ChallengeID: evt.ChallengeID,
			LastSeq:     evt.Seq,
			UpdatedAt:   time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("save projection checkpoint: %w", err)
		}
	}
	return nil
}

func (a Applier) credit(ctx context.Context, evt event.Event) error {
	var (
		recipient string
		amount    uint64
	)
	switch evt.Type {
	case challenge.EventTypeCompleted:
		var payload challenge.CompletedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", evt.Type, err)
		}
		recipient, amount = payload.Recipient, payload.Reward
	case challenge.EventTypeBalanceFlushed:
		var payload challenge.BalanceFlushedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", evt.Type, err)
		}
		recipient, amount = payload.Recipient, payload.Amount
	default:
		return nil
	}
	if amount == 0 || recipient == "" {
		return nil
	}
	if err := a.Wallets.CreditWallet(ctx, recipient, amount, evt.ChallengeID, evt.Seq, evt.Timestamp.UTC()); err != nil {
		return fmt.Errorf("credit wallet %s: %w", recipient, err)
	}
	return nil
}
