//go:build linux

package clock

import (
	"go.uber.org/zap"

	"golang.org/x/sys/unix"

	"example.com/ntp-clock/base/timebase"
)

type MonotonicClock struct {
	Log *zap.Logger
}

var _ timebase.MonotonicClock = (*MonotonicClock)(nil)

func (c *MonotonicClock) Now() timebase.Mark {
	var ts unix.Timespec
	err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	if err != nil {
		c.Log.Fatal("unix.ClockGettime failed", zap.Error(err))
	}
	return timebase.Mark(ts.Nano())
}
