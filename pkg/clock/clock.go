// Package clock implements C9: the scenario's logical time, distinct from
// wall time. No package-level singleton — a Clock is held explicitly by
// whatever owns a scenario (spec §9's "no process-wide singletons" note).
package clock

import (
	"sync"
	"time"
)

// Clock holds the scenario's current and previous logical time behind a
// single mutex, matching the single-writer/read-by-all model (spec §5).
type Clock struct {
	mu       sync.Mutex
	now      time.Time
	previous time.Time
}

// New returns a Clock initialized to t, with previous equal to now.
func New(t time.Time) *Clock {
	return &Clock{now: t, previous: t}
}

// Now returns the current scenario time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Previous returns the scenario time before the last Set/Advance call.
func (c *Clock) Previous() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previous
}

// Set moves the scenario clock to t: previous becomes the prior now, now
// becomes t (spec §4.7). invalidate, if non-nil, is called while still
// holding the lock so no reader can observe the new time against a stale
// cache namespace.
func (c *Clock) Set(t time.Time, invalidate func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.previous = c.now
	c.now = t
	if invalidate != nil {
		invalidate()
	}
}

// Advance is shorthand for Set(now + hours) (spec §4.7).
func (c *Clock) Advance(hours float64, invalidate func()) {
	c.mu.Lock()
	next := c.now.Add(time.Duration(hours * float64(time.Hour)))
	c.mu.Unlock()
	c.Set(next, invalidate)
}

// InWindow reports whether ts falls in (previous, now] — the filter
// gather_new() applies to every adapter's reports (spec §4.7, invariant 5).
func (c *Clock) InWindow(ts time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ts.After(c.previous) && !ts.After(c.now)
}
