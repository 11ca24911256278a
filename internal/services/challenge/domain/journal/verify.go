package journal

import (
	"context"
	"fmt"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
)

// Verifier checks chain hash signatures.
type Verifier interface {
	VerifyChainHash(challengeID, chainHash, signature, keyID string) error
}

// Lister lists a challenge stream in sequence order.
type Lister interface {
	ListEvents(ctx context.Context, challengeID string, afterSeq uint64, limit int) ([]event.Event, error)
}

// VerifyChain recomputes every hash of a stream and checks the links between
// events. Signatures are checked when verifier is not nil.
func VerifyChain(events []event.Event, verifier Verifier) error {
	prevHash := ""
	for idx, evt := range events {
		if evt.Seq != uint64(idx)+1 {
			return fmt.Errorf("event %d: seq = %d, want %d", idx, evt.Seq, idx+1)
		}
		hash, err := event.EventHash(evt)
		if err != nil {
			return fmt.Errorf("seq %d: %w", evt.Seq, err)
		}
		if hash != evt.Hash {
			return fmt.Errorf("seq %d: content hash mismatch", evt.Seq)
		}
		if evt.PrevHash != prevHash {
			return fmt.Errorf("seq %d: broken link to previous event", evt.Seq)
		}
		chainHash, err := event.ChainHash(evt, prevHash)
		if err != nil {
			return fmt.Errorf("seq %d: %w", evt.Seq, err)
		}
		if chainHash != evt.ChainHash {
			return fmt.Errorf("seq %d: chain hash mismatch", evt.Seq)
		}
		if verifier != nil {
			if err := verifier.VerifyChainHash(evt.ChallengeID, evt.ChainHash, evt.Signature, evt.SignatureKeyID); err != nil {
				return fmt.Errorf("seq %d: %w", evt.Seq, err)
			}
		}
		prevHash = evt.ChainHash
	}
	return nil
}

// VerifyStream pages through a stored stream and verifies it.
func VerifyStream(ctx context.Context, store Lister, challengeID string, verifier Verifier) (int, error) {
	const pageSize = 200
	var all []event.Event
	afterSeq := uint64(0)
	for {
		page, err := store.ListEvents(ctx, challengeID, afterSeq, pageSize)
		if err != nil {
			return 0, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			break
		}
		afterSeq = page[len(page)-1].Seq
	}
	if err := VerifyChain(all, verifier); err != nil {
		return 0, err
	}
	return len(all), nil
}
