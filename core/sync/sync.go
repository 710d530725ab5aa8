package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"go.uber.org/zap"

	"example.com/ntp-clock/base/metrics"
	"example.com/ntp-clock/base/timemath"

	"example.com/ntp-clock/core/client"
	"example.com/ntp-clock/core/estimator"
)

const DefaultInterval = 10 * time.Second

type Resolver interface {
	Resolve(ctx context.Context, log *zap.Logger, servers []string) (client.Result, error)
}

// Observer receives the outcome of every sync cycle. Calls are made from
// the loop goroutine and must not block.
type Observer interface {
	SyncSucceeded(r client.Result, c estimator.Correction)
	DriftCorrected(r client.Result, c estimator.Correction)
	SyncFailed(err error)
}

type LoopConfig struct {
	Servers  []string
	Interval time.Duration
}

type Loop struct {
	log      *zap.Logger
	cfg      LoopConfig
	resolver Resolver
	est      *estimator.Estimator
	obs      Observer
	stats    *stats
	running  atomic.Bool
}

type syncMetrics struct {
	attempts    prometheus.Counter
	successes   prometheus.Counter
	failures    prometheus.Counter
	corrections prometheus.Counter
	drift       prometheus.Gauge
	rate        prometheus.Gauge
}

type nopObserver struct{}

var (
	errNoServers       = errors.New("at least one server required")
	errInvalidInterval = errors.New("sync interval must be positive")

	loopMetrics atomic.Pointer[syncMetrics]
)

func init() {
	loopMetrics.Store(newSyncMetrics())
}

func newSyncMetrics() *syncMetrics {
	return &syncMetrics{
		attempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.SyncAttemptsN,
			Help: metrics.SyncAttemptsH,
		}),
		successes: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.SyncSuccessesN,
			Help: metrics.SyncSuccessesH,
		}),
		failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.SyncFailuresN,
			Help: metrics.SyncFailuresH,
		}),
		corrections: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.SyncCorrectionsN,
			Help: metrics.SyncCorrectionsH,
		}),
		drift: promauto.NewGauge(prometheus.GaugeOpts{
			Name: metrics.SyncDriftN,
			Help: metrics.SyncDriftH,
		}),
		rate: promauto.NewGauge(prometheus.GaugeOpts{
			Name: metrics.SyncRateN,
			Help: metrics.SyncRateH,
		}),
	}
}

func (nopObserver) SyncSucceeded(client.Result, estimator.Correction) {}
func (nopObserver) DriftCorrected(client.Result, estimator.Correction) {}
func (nopObserver) SyncFailed(error) {}

// NewLoop validates cfg; an empty server list is the only unrecoverable
// configuration error and is rejected here, before any cycle runs.
func NewLoop(log *zap.Logger, cfg LoopConfig, resolver Resolver,
	est *estimator.Estimator, obs Observer) (*Loop, error) {
	if len(cfg.Servers) == 0 {
		return nil, errNoServers
	}
	if cfg.Interval <= 0 {
		return nil, errInvalidInterval
	}
	if resolver == nil || est == nil {
		panic("sync loop requires a resolver and an estimator")
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &Loop{
		log:      log,
		cfg:      LoopConfig{Servers: append([]string(nil), cfg.Servers...), Interval: cfg.Interval},
		resolver: resolver,
		est:      est,
		obs:      obs,
		stats:    newStats(),
	}, nil
}

func (l *Loop) Stats() SyncStats {
	return l.stats.snapshot()
}

// SyncOnce runs a single cycle and reports whether it succeeded. A cycle
// interrupted by ctx is not counted.
func (l *Loop) SyncOnce(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	mtrcs := loopMetrics.Load()

	r, err := l.resolver.Resolve(ctx, l.log, l.cfg.Servers)
	if err != nil {
		if ctx.Err() != nil {
			l.log.Debug("sync cycle interrupted", zap.Error(err))
			return false
		}
		l.est.ApplyFailure()
		l.stats.recordFailure()
		mtrcs.attempts.Inc()
		mtrcs.failures.Inc()
		mtrcs.rate.Set(l.stats.snapshot().SuccessRate())
		l.obs.SyncFailed(err)
		return false
	}

	c := l.est.ApplySync(r.Time)
	l.stats.recordSuccess(r, c.Observed)
	mtrcs.attempts.Inc()
	mtrcs.successes.Inc()
	mtrcs.rate.Set(l.stats.snapshot().SuccessRate())
	mtrcs.drift.Set(timemath.Seconds(c.Drift))
	l.obs.SyncSucceeded(r, c)
	if c.Exceeded {
		mtrcs.corrections.Inc()
		l.obs.DriftCorrected(r, c)
	}
	return true
}

// Run performs a sync cycle immediately and then once per interval until
// ctx is done. A query in flight when ctx is cancelled is allowed to run
// into its own timeout.
func (l *Loop) Run(ctx context.Context) {
	swapped := l.running.CompareAndSwap(false, true)
	if !swapped {
		panic("sync loop already running")
	}
	defer l.running.Store(false)

	l.log.Info("starting sync loop",
		zap.Strings("servers", l.cfg.Servers),
		zap.Duration("interval", l.cfg.Interval),
	)
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()
	for {
		_ = l.SyncOnce(ctx)
		select {
		case <-ctx.Done():
			l.log.Info("sync loop stopped")
			return
		case <-ticker.C:
		}
	}
}
