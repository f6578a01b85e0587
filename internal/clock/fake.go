package clock

import "time"

// FakeClock is a manually advanced Clock for tests. Mock gateway sessions
// derive their id from the clock's unix-milli reading, so pinning it makes
// those ids assertable.
type FakeClock struct {
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start.UTC()}
}

func (c *FakeClock) Now() time.Time { return c.now }

// Advance moves the clock forward. Callers use it to separate record
// timestamps that would otherwise collide.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
