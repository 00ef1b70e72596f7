package gameserver

import (
	"slices"
	"sync"
)

// Locker serializes mutations per player id. Entries are reference counted
// and removed when the last holder releases them, so the map only holds ids
// with a command in flight.
type Locker struct {
	mu    sync.Mutex
	locks map[int64]*keyLock
}

type keyLock struct {
	mu      sync.Mutex
	holders int
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[int64]*keyLock)}
}

// Lock acquires every id in ascending order and returns the function that
// releases them. Duplicate ids are acquired once.
//
// Postcondition: the returned func must be called exactly once.
func (l *Locker) Lock(ids ...int64) func() {
	keys := slices.Clone(ids)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*keyLock, 0, len(keys))
	for _, id := range keys {
		kl := l.acquire(id)
		kl.mu.Lock()
		held = append(held, kl)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.release(keys[i])
		}
	}
}

func (l *Locker) acquire(id int64) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[id]
	if !ok {
		kl = &keyLock{}
		l.locks[id] = kl
	}
	kl.holders++
	return kl
}

func (l *Locker) release(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl := l.locks[id]
	kl.holders--
	if kl.holders == 0 {
		delete(l.locks, id)
	}
}

// inFlight reports how many ids currently have holders. Used by tests.
func (l *Locker) inFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
