package market

import (
	"sync"
	"time"
)

// Clock is the interface the manager reads the current time through. Having
// this behind an interface makes the price curve and expiry behavior fully
// deterministic in tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock reads the time from the wall clock.
type SystemClock struct{}

// Now returns the current wall clock time.
//
// NOTE: This method is part of the Clock interface.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// TestClock returns a fixed, manually advanced time.
type TestClock struct {
	mtx sync.Mutex
	now time.Time
}

// NewTestClock returns a clock pinned to the given time.
func NewTestClock(now time.Time) *TestClock {
	return &TestClock{now: now}
}

// Now returns the currently set time.
//
// NOTE: This method is part of the Clock interface.
func (c *TestClock) Now() time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.now
}

// SetTime pins the clock to the given time.
func (c *TestClock) SetTime(now time.Time) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.now = now
}

// Advance moves the clock forward by the given duration.
func (c *TestClock) Advance(d time.Duration) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.now = c.now.Add(d)
}

var _ Clock = (*SystemClock)(nil)
var _ Clock = (*TestClock)(nil)
