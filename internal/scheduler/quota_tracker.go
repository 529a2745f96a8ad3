package scheduler

import (
	"fmt"
	"sync"
	"time"
)

// QuotaTracker accounts for a remote device's bounded input buffer. Callers
// reserve bytes before writing (Consume) and release them once the device
// acknowledges, errors, or requests a resend (Reclaim). It is a
// condition-variable-guarded semaphore with FIFO reclaim order: one mutex,
// explicit broadcast wakes, no buffered channel.
type QuotaTracker struct {
	mu        sync.Mutex
	cond      *sync.Cond
	maxBytes  int
	freeBytes int
	inFlight  []int
}

// NewQuotaTracker builds a tracker that assumes the device has maxBytes of
// free input buffer to start with. It panics if maxBytes is not positive,
// treating a non-positive capacity as a programmer error (unlike
// NewCommandTracker, which falls back to its default limit).
func NewQuotaTracker(maxBytes int) *QuotaTracker {
	if maxBytes <= 0 {
		panic("scheduler: max_bytes must be positive")
	}
	q := &QuotaTracker{maxBytes: maxBytes, freeBytes: maxBytes}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Consume blocks until size bytes of buffer are free or timeout elapses.
// On success it reserves size bytes (recorded as the newest in-flight
// entry). Returns ErrConsumeTimeout on deadline.
func (q *QuotaTracker) Consume(size int, timeout time.Duration) error {
	if size <= 0 {
		return fmt.Errorf("scheduler: size must be positive")
	}
	if timeout <= 0 {
		return fmt.Errorf("scheduler: timeout must be positive")
	}

	q.mu.Lock()
	if size > q.maxBytes {
		q.mu.Unlock()
		return fmt.Errorf("scheduler: size %d exceeds buffer capacity %d", size, q.maxBytes)
	}

	deadline := time.Now().Add(timeout)
	for q.freeBytes < size {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			q.mu.Unlock()
			return ErrConsumeTimeout
		}
		waitOnCond(q.cond, remaining)
	}

	q.inFlight = append(q.inFlight, size)
	q.freeBytes -= size
	q.mu.Unlock()
	return nil
}

// Reclaim releases the oldest in-flight reservation, if any, and wakes all
// waiters so they can re-check whether their own reservation now fits.
func (q *QuotaTracker) Reclaim() {
	q.mu.Lock()
	if len(q.inFlight) > 0 {
		size := q.inFlight[0]
		q.inFlight = q.inFlight[1:]
		q.freeBytes += size
	}
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Join blocks while any reservation remains in flight.
func (q *QuotaTracker) Join() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.inFlight) > 0 {
		q.cond.Wait()
	}
}

// Flush clears every in-flight reservation and restores full capacity,
// waking all waiters. Used on reset or fault.
func (q *QuotaTracker) Flush() {
	q.mu.Lock()
	q.inFlight = q.inFlight[:0]
	q.freeBytes = q.maxBytes
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Pending reports whether any reservation is currently in flight.
func (q *QuotaTracker) Pending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inFlight) > 0
}

// FreeBytes returns the current estimate of free device buffer space.
// Exposed for tests asserting that it always stays within [0, maxBytes].
func (q *QuotaTracker) FreeBytes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.freeBytes
}
