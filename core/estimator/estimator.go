package estimator

import (
	"sync"
	"time"

	"example.com/ntp-clock/base/timebase"
	"example.com/ntp-clock/base/timemath"
)

// DriftThreshold is the deviation between extrapolated and observed time
// above which a sync is reported as a drift correction.
const DriftThreshold = 100 * time.Millisecond

// Fallback anchors the estimate until the first successful sync.
var Fallback = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

type Anchor struct {
	Time time.Time
	Mark timebase.Mark
}

// Correction describes the re-anchoring performed by a sync.
type Correction struct {
	Predicted time.Time
	Observed  time.Time
	// Drift is Observed - Predicted; positive if the estimate was behind.
	Drift time.Duration
	// Exceeded is set if |Drift| > DriftThreshold.
	Exceeded bool
	// Initial is set for the first sync after the fallback anchor.
	Initial bool
}

func (c Correction) Direction() string {
	switch timemath.Sgn(c.Drift) {
	case 1:
		return "forward"
	case -1:
		return "backward"
	default:
		return "none"
	}
}

// Estimator extrapolates calendar time from the last anchor using a
// monotonic clock. It is safe for concurrent use.
type Estimator struct {
	clk    timebase.MonotonicClock
	mu     sync.RWMutex
	anchor Anchor
	synced bool
}

func New(clk timebase.MonotonicClock, fallback time.Time) *Estimator {
	if clk == nil {
		panic("monotonic clock must not be nil")
	}
	return &Estimator{
		clk: clk,
		anchor: Anchor{
			Time: fallback.UTC(),
			Mark: clk.Now(),
		},
	}
}

func (e *Estimator) extrapolate(m timebase.Mark) time.Time {
	return e.anchor.Time.Add(m.Sub(e.anchor.Mark))
}

func (e *Estimator) Now() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.extrapolate(e.clk.Now())
}

// ApplySync re-anchors the estimate at observed. The anchor is replaced
// on every call; the threshold only determines Correction.Exceeded.
func (e *Estimator) ApplySync(observed time.Time) Correction {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.clk.Now()
	predicted := e.extrapolate(m)
	drift := observed.Sub(predicted)
	c := Correction{
		Predicted: predicted,
		Observed:  observed.UTC(),
		Drift:     drift,
		Exceeded:  timemath.Abs(drift) > DriftThreshold,
		Initial:   !e.synced,
	}
	e.anchor = Anchor{Time: c.Observed, Mark: m}
	e.synced = true
	return c
}

// ApplyFailure leaves the anchor untouched so that extrapolation continues
// from the last good sync. It returns the unchanged anchor.
func (e *Estimator) ApplyFailure() Anchor {
	return e.Anchor()
}

func (e *Estimator) Anchor() Anchor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.anchor
}

// Synced reports whether any sync has been applied since New.
func (e *Estimator) Synced() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.synced
}
