//go:build !linux

package clock

import (
	"time"

	"go.uber.org/zap"

	"example.com/ntp-clock/base/timebase"
)

type MonotonicClock struct {
	Log *zap.Logger
}

var _ timebase.MonotonicClock = (*MonotonicClock)(nil)

// time.Since uses the monotonic reading carried by start.
var start = time.Now()

func (c *MonotonicClock) Now() timebase.Mark {
	return timebase.Mark(time.Since(start))
}
