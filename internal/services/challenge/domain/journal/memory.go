// Package journal holds the append-only, hash-chained event log.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
)

// ErrRegistryRequired indicates a journal built without an event registry.
var ErrRegistryRequired = errors.New("event registry is required")

// Signer signs chain hashes for a challenge.
type Signer interface {
	SignChainHash(challengeID, chainHash string) (signature string, keyID string, err error)
}

// Option configures a Memory journal.
type Option func(*Memory)

// WithSigner signs every appended chain hash.
func WithSigner(signer Signer) Option {
	return func(m *Memory) {
		m.signer = signer
	}
}

// Memory is an in-process journal. Events are never mutated after append.
type Memory struct {
	mu       sync.RWMutex
	registry *event.Registry
	signer   Signer
	events   map[string][]event.Event
}

// NewMemory creates an empty journal validating events against registry.
func NewMemory(registry *event.Registry, opts ...Option) *Memory {
	m := &Memory{
		registry: registry,
		events:   make(map[string][]event.Event),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Append validates evt, assigns its sequence and hashes, and stores it.
func (m *Memory) Append(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if m.registry == nil {
		return event.Event{}, ErrRegistryRequired
	}
	validated, err := m.registry.ValidateForAppend(evt)
	if err != nil {
		return event.Event{}, err
	}
	evt = validated

	m.mu.Lock()
	defer m.mu.Unlock()

	stream := m.events[evt.ChallengeID]
	evt.Seq = uint64(len(stream)) + 1
	prevHash := ""
	if len(stream) > 0 {
		prevHash = stream[len(stream)-1].ChainHash
	}
	if err := Seal(&evt, prevHash, m.signer); err != nil {
		return event.Event{}, err
	}
	m.events[evt.ChallengeID] = append(stream, evt)
	return evt, nil
}

// AppendEvent is Append under the storage naming.
func (m *Memory) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	return m.Append(ctx, evt)
}

// ListEvents returns up to limit events after afterSeq, ordered by sequence.
func (m *Memory) ListEvents(ctx context.Context, challengeID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	stream := m.events[strings.TrimSpace(challengeID)]
	if afterSeq >= uint64(len(stream)) {
		return nil, nil
	}
	tail := stream[afterSeq:]
	if limit > 0 && len(tail) > limit {
		tail = tail[:limit]
	}
	out := make([]event.Event, len(tail))
	copy(out, tail)
	return out, nil
}

// ListChallengeIDs returns every challenge with at least one event.
func (m *Memory) ListChallengeIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.events))
	for id := range m.events {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Seal assigns the content hash, chain hash and optional signature to evt.
// evt.Seq must already be set.
func Seal(evt *event.Event, prevHash string, signer Signer) error {
	hash, err := event.EventHash(*evt)
	if err != nil {
		return fmt.Errorf("compute event hash: %w", err)
	}
	evt.Hash = hash
	chainHash, err := event.ChainHash(*evt, prevHash)
	if err != nil {
		return fmt.Errorf("compute chain hash: %w", err)
	}
	evt.PrevHash = prevHash
	evt.ChainHash = chainHash
	if signer != nil {
		signature, keyID, err := signer.SignChainHash(evt.ChallengeID, chainHash)
		if err != nil {
			return fmt.Errorf("sign chain hash: %w", err)
		}
		evt.Signature = signature
		evt.SignatureKeyID = keyID
	}
	return nil
}
