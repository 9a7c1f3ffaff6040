package settlement

import (
	"sync"

	"github.com/google/uuid"
)

// ResidentLocker serializes payment attempts per resident. Two concurrent
// requests touching the same wallet and rewards would otherwise interleave
// the read-redeem-debit sequence; the row-level guards would still prevent
// double spends, but the failure mode would be confusing partial results
// instead of a clean queue.
type ResidentLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*residentLock
}

type residentLock struct {
	mu   sync.Mutex
	refs int
}

func NewResidentLocker() *ResidentLocker {
	return &ResidentLocker{
		locks: make(map[uuid.UUID]*residentLock),
	}
}

// Lock blocks until the resident's lock is held. The returned function
// releases it and must be called exactly once.
func (l *ResidentLocker) Lock(residentID uuid.UUID) func() {
	l.mu.Lock()
	rl, ok := l.locks[residentID]
	if !ok {
		rl = &residentLock{}
		l.locks[residentID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()

	return func() {
		rl.mu.Unlock()

		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, residentID)
		}
		l.mu.Unlock()
	}
}
