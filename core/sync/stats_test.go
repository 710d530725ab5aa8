package sync

import (
	"testing"
	"time"

	"example.com/ntp-clock/core/client"
)

func TestSuccessRate(t *testing.T) {
	tests := []struct {
		attempts, successes uint64
		want                float64
	}{
		{0, 0, 0},
		{1, 0, 0},
		{1, 1, 100},
		{10, 8, 80},
		{100, 95, 95},
	}

	for _, tt := range tests {
		s := SyncStats{Attempts: tt.attempts, Successes: tt.successes}
		if got := s.SuccessRate(); got != tt.want {
			t.Errorf("SuccessRate() for %d/%d = %v, want %v", tt.successes, tt.attempts, got, tt.want)
		}
		if got := s.Failures(); got != tt.attempts-tt.successes {
			t.Errorf("Failures() for %d/%d = %d", tt.successes, tt.attempts, got)
		}
	}
}

func TestStatsRecording(t *testing.T) {
	st := newStats()
	s := st.snapshot()
	if s.Attempts != 0 || s.Successes != 0 || s.LatencySamples != 0 || s.LatencyP50 != 0 {
		t.Errorf("new stats = %+v, want zero", s)
	}

	at := time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 100; i++ {
		st.recordSuccess(client.Result{
			Server:    "a:123",
			RoundTrip: time.Duration(i) * time.Millisecond,
		}, at)
	}
	st.recordFailure()
	st.recordSuccess(client.Result{Server: "b:123", RoundTrip: time.Hour}, at.Add(time.Second))

	s = st.snapshot()
	if s.Attempts != 102 || s.Successes != 101 {
		t.Errorf("stats = %d/%d, want 101/102", s.Successes, s.Attempts)
	}
	if s.LastServer != "b:123" || !s.LastSync.Equal(at.Add(time.Second)) {
		t.Errorf("last sync = %s at %v", s.LastServer, s.LastSync)
	}
	if s.LatencySamples != 101 {
		t.Errorf("LatencySamples = %d, want 101", s.LatencySamples)
	}
	if s.LatencyP50 < 49*time.Millisecond || s.LatencyP50 > 52*time.Millisecond {
		t.Errorf("LatencyP50 = %v, want about 50ms", s.LatencyP50)
	}
	if s.LatencyP99 < 98*time.Millisecond || s.LatencyP99 > 101*time.Millisecond {
		t.Errorf("LatencyP99 = %v, want about 99ms", s.LatencyP99)
	}
}
