package clock

import (
	"sync"
	"time"

	"example.com/ntp-clock/base/timebase"
)

// ManualClock is a monotonic clock that only moves when told to.
type ManualClock struct {
	mu   sync.Mutex
	mark timebase.Mark
}

var _ timebase.MonotonicClock = (*ManualClock)(nil)

func (c *ManualClock) Now() timebase.Mark {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mark
}

func (c *ManualClock) Advance(d time.Duration) {
	if d < 0 {
		panic("monotonic clock must not go backwards")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mark += timebase.Mark(d)
}
