package session

import (
	"context"
	"errors"
	"sync"
)

// ErrLocked is returned when another holder owns a session's lock.
var ErrLocked = errors.New("session is locked")

// TurnLocker grants at most one holder per session ID. Acquire does not
// block: it fails with ErrLocked when the session is already held. The
// returned func releases the lock.
type TurnLocker interface {
	Acquire(ctx context.Context, id string) (release func(), err error)
}

// Locker is the in-process TurnLocker, paired with MemoryStore.
type Locker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocker creates an empty Locker.
func NewLocker() *Locker {
	return &Locker{held: make(map[string]struct{})}
}

// TryLock acquires the lock for id and reports whether it succeeded.
func (l *Locker) TryLock(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[id]; busy {
		return false
	}
	l.held[id] = struct{}{}
	return true
}

// Unlock releases the lock for id.
func (l *Locker) Unlock(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, id)
}

// Acquire implements TurnLocker.
func (l *Locker) Acquire(_ context.Context, id string) (func(), error) {
	if !l.TryLock(id) {
		return nil, ErrLocked
	}
	return func() { l.Unlock(id) }, nil
}
