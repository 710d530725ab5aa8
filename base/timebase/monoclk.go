package timebase

import (
	"time"
)

// Mark is an opaque monotonic clock reading. Marks are only meaningful
// relative to other marks taken from the same clock in the same process.
type Mark int64

func (m Mark) Sub(n Mark) time.Duration {
	return time.Duration(m - n)
}

type MonotonicClock interface {
	Now() Mark
}

func Since(clk MonotonicClock, m Mark) time.Duration {
	return clk.Now().Sub(m)
}
