package engine

import (
	"sync"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
	"go.uber.org/atomic"
)

// DefaultSubscriberBuffer is the per-subscriber channel capacity.
const DefaultSubscriberBuffer = 64

// Broker fans committed events out to subscribers. Publishing never blocks:
// a subscriber whose buffer is full misses the event.
type Broker struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscription
	nextID  atomic.Uint64
	dropped atomic.Uint64
	buffer  int
	onDrop  func()
	closed  bool
}

type subscription struct {
	challengeID string
	ch          chan event.Event
}

// NewBroker builds a broker. onDrop, when set, is called for every dropped event.
func NewBroker(buffer int, onDrop func()) *Broker {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Broker{
		subs:   make(map[uint64]*subscription),
		buffer: buffer,
		onDrop: onDrop,
	}
}

// Subscribe registers interest in challengeID, or every challenge when empty.
// The returned cancel func closes the channel.
func (b *Broker) Subscribe(challengeID string) (<-chan event.Event, func()) {
	ch := make(chan event.Event, b.buffer)
	id := b.nextID.Inc()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = &subscription{challengeID: challengeID, ch: ch}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub.ch)
			}
		})
	}
}

// Publish delivers evt to every matching subscriber without blocking.
func (b *Broker) Publish(evt event.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.challengeID != "" && sub.challengeID != evt.ChallengeID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			b.dropped.Inc()
			if b.onDrop != nil {
				b.onDrop()
			}
		}
	}
}

// Dropped returns how many deliveries were skipped.
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel and rejects new subscriptions.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
