package workflow

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTenantLocksExcludeSameName(t *testing.T) {
	locks := newTenantLocks()

	const workers = 16
	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			release := locks.Acquire("shoes")
			defer release()
			// Unsynchronized increment; the lock must make this safe.
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
	locks.mu.Lock()
	assert.Empty(t, locks.entries, "released locks must not leak entries")
	locks.mu.Unlock()
}

func TestTenantLocksParallelAcrossNames(t *testing.T) {
	locks := newTenantLocks()

	releaseA := locks.Acquire("alpha")
	defer releaseA()

	acquired := make(chan struct{})
	go func() {
		release := locks.Acquire("bravo")
		defer release()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on a different tenant must not block")
	}
}

func TestTenantLocksBlockUntilReleased(t *testing.T) {
	locks := newTenantLocks()

	release := locks.Acquire("shoes")

	acquired := make(chan struct{})
	go func() {
		second := locks.Acquire("shoes")
		defer second()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire must wait for release")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second acquire must proceed after release")
	}
}
