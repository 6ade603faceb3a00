package testutil

import (
	"sync"
	"time"
)

// ManualClock is a thread-safe time source that only moves when told to.
//
// Checkpoint expiry is checked lazily against an injected now func, so
// tests advance this clock past a TTL instead of sleeping.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock pinned to start. A zero start pins the
// clock to a fixed reference instant so golden output stays stable.
func NewManualClock(start time.Time) *ManualClock {
	if start.IsZero() {
		start = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	}
	return &ManualClock{now: start.UTC()}
}

// Now returns the current instant without advancing.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new instant.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
