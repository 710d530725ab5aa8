package timemath

import (
	"math"
	"time"
)

func Duration(seconds float64) time.Duration {
	if seconds >= float64(math.MaxInt64)/float64(time.Second) {
		return math.MaxInt64
	}
	if seconds <= float64(math.MinInt64)/float64(time.Second) {
		return math.MinInt64
	}
	return time.Duration(seconds * float64(time.Second))
}

func Seconds(d time.Duration) float64 {
	return float64(d) / float64(time.Second)
}

func Sgn(d time.Duration) int {
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}

func Inv(d time.Duration) time.Duration {
	switch {
	case d == math.MinInt64:
		return math.MaxInt64
	default:
		return -d
	}
}

func Abs(d time.Duration) time.Duration {
	if d < 0 {
		return Inv(d)
	}
	return d
}
