package event

import (
	"encoding/json"
	"errors"
	"fmt"

	coreencoding "github.com/louisbranch/wager.space/internal/services/challenge/domain/core/encoding"
)

// envelope lists the fields covered by the content hash. Seq and integrity
// fields are excluded so the hash can be computed before persistence.
func envelope(evt Event) map[string]any {
	payload := json.RawMessage(evt.PayloadJSON)
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return map[string]any{
		"challenge_id": evt.ChallengeID,
		"type":         string(evt.Type),
		"timestamp_ms": evt.Timestamp.UTC().UnixMilli(),
		"request_id":   evt.RequestID,
		"actor_id":     evt.ActorID,
		"entity_type":  evt.EntityType,
		"entity_id":    evt.EntityID,
		"payload":      payload,
	}
}

// EventHash computes the content hash for a single event.
func EventHash(evt Event) (string, error) {
	hash, err := coreencoding.ContentHash(envelope(evt))
	if err != nil {
		return "", fmt.Errorf("event hash: %w", err)
	}
	return hash, nil
}

// ChainHash computes the SHA-256 hash that links an event to its predecessor.
// evt.Hash and evt.Seq must already be assigned.
func ChainHash(evt Event, prevHash string) (string, error) {
	if evt.Hash == "" {
		return "", errors.New("event hash is required")
	}
	if evt.Seq == 0 {
		return "", errors.New("event seq is required")
	}
	hash, err := coreencoding.FullHash(map[string]any{
		"challenge_id": evt.ChallengeID,
		"seq":          evt.Seq,
		"hash":         evt.Hash,
		"prev_hash":    prevHash,
	})
	if err != nil {
		return "", fmt.Errorf("chain hash: %w", err)
	}
	return hash, nil
}
