package sync

import (
	gosync "sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"example.com/ntp-clock/core/client"
)

const (
	// Round trip latencies are recorded in microseconds.
	latencyMin     = 1
	latencyMax     = int64(time.Minute / time.Microsecond)
	latencySigFigs = 3
)

type SyncStats struct {
	Attempts  uint64
	Successes uint64

	LastServer string
	LastSync   time.Time

	LatencySamples int64
	LatencyP50     time.Duration
	LatencyP99     time.Duration
}

func (s SyncStats) Failures() uint64 {
	return s.Attempts - s.Successes
}

// SuccessRate returns the percentage of successful attempts, 0 if there
// were none.
func (s SyncStats) SuccessRate() float64 {
	if s.Attempts == 0 {
		return 0.0
	}
	return float64(s.Successes) / float64(s.Attempts) * 100.0
}

type stats struct {
	mu    gosync.Mutex
	s     SyncStats
	histo *hdrhistogram.Histogram
}

func newStats() *stats {
	return &stats{
		histo: hdrhistogram.New(latencyMin, latencyMax, latencySigFigs),
	}
}

func (st *stats) recordSuccess(r client.Result, at time.Time) {
	v := r.RoundTrip.Microseconds()
	if v < latencyMin {
		v = latencyMin
	} else if v > latencyMax {
		v = latencyMax
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Attempts++
	st.s.Successes++
	st.s.LastServer = r.Server
	st.s.LastSync = at
	_ = st.histo.RecordValue(v)
}

func (st *stats) recordFailure() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Attempts++
}

func (st *stats) snapshot() SyncStats {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.s
	s.LatencySamples = st.histo.TotalCount()
	if s.LatencySamples != 0 {
		s.LatencyP50 = time.Duration(st.histo.ValueAtQuantile(50)) * time.Microsecond
		s.LatencyP99 = time.Duration(st.histo.ValueAtQuantile(99)) * time.Microsecond
	}
	return s
}
