package engine

import "sync"

// instanceLocks hands out one mutex per challenge and forgets it once no
// caller holds or waits on it.
type instanceLocks struct {
	mu    sync.Mutex
	locks map[string]*instanceLock
}

type instanceLock struct {
	mu   sync.Mutex
	refs int
}

func newInstanceLocks() *instanceLocks {
	return &instanceLocks{locks: make(map[string]*instanceLock)}
}

// lock blocks until the caller owns challengeID and returns the release func.
func (l *instanceLocks) lock(challengeID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[challengeID]
	if !ok {
		entry = &instanceLock{}
		l.locks[challengeID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, challengeID)
		}
		l.mu.Unlock()
	}
}

func (l *instanceLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
