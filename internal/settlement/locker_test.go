package settlement

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestResidentLocker_SerializesSameResident(t *testing.T) {
	locker := NewResidentLocker()
	residentID := uuid.New()

	var mu sync.Mutex
	var active, maxActive int

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock(residentID)
			defer unlock()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive, "same resident must never run concurrently")
	assert.Empty(t, locker.locks, "released locks must be reclaimed")
}

func TestResidentLocker_IndependentResidents(t *testing.T) {
	locker := NewResidentLocker()

	unlockA := locker.Lock(uuid.New())
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := locker.Lock(uuid.New())
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different resident should not block")
	}
}

func TestResidentLocker_ReclaimsEntryAfterRelease(t *testing.T) {
	locker := NewResidentLocker()
	residentID := uuid.New()

	unlock := locker.Lock(residentID)
	assert.Len(t, locker.locks, 1)

	unlock()
	assert.Empty(t, locker.locks)
}
