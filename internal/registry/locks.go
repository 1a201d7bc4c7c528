package registry

import "sync"

// IDLocks serializes callers per task id. Acquiring the lock for one id
// never blocks callers on a different id. The zero value is not usable;
// use NewIDLocks.
type IDLocks struct {
	mu    sync.Mutex
	locks map[string]*idLock
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

// NewIDLocks creates an empty lock set.
func NewIDLocks() *IDLocks {
	return &IDLocks{locks: make(map[string]*idLock)}
}

// Acquire blocks until the lock for id is held. The returned release
// function must be called exactly once. The locks are not reentrant:
// acquiring an id already held by the same goroutine deadlocks.
func (l *IDLocks) Acquire(id string) (release func()) {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &idLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
