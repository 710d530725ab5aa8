// NTP synchronized clock

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"example.com/ntp-clock/base/timemath"

	"example.com/ntp-clock/core/client"
	"example.com/ntp-clock/core/config"
	"example.com/ntp-clock/core/estimator"
	ntpsync "example.com/ntp-clock/core/sync"

	"example.com/ntp-clock/driver/clock"
)

var (
	log *zap.Logger

	errEmptyServer = errors.New("server address must not be empty")
)

type serverList []string

func (l *serverList) String() string {
	return strings.Join(*l, ",")
}

func (l *serverList) Set(s string) error {
	if strings.TrimSpace(s) == "" {
		return errEmptyServer
	}
	*l = append(*l, s)
	return nil
}

type options struct {
	configFile      string
	interval        float64
	displayInterval float64
	timeout         float64
	servers         serverList
	timezoneOffset  int
	verbose         bool
	showStats       bool

	// Names of the flags given on the command line
	set map[string]bool
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var opts options
	fs.StringVar(&opts.configFile, "config", "", "Config file")
	fs.Float64Var(&opts.interval, "interval", config.DefaultUpdateInterval,
		"NTP update interval in seconds")
	fs.Float64Var(&opts.displayInterval, "display-interval", config.DefaultDisplayInterval,
		"Display interval in seconds")
	fs.Float64Var(&opts.timeout, "timeout", config.DefaultQueryTimeout,
		"Per server query timeout in seconds")
	fs.Var(&opts.servers, "server", "NTP server (can be specified multiple times)")
	fs.IntVar(&opts.timezoneOffset, "timezone-offset", 0,
		"Timezone offset in hours (e.g., -5 for EST, 0 for UTC)")
	fs.BoolVar(&opts.verbose, "verbose", false, "Verbose logging")
	fs.BoolVar(&opts.showStats, "show-stats", false, "Show statistics")

	err := fs.Parse(args)
	if err != nil {
		return options{}, err
	}
	if fs.NArg() != 0 {
		err = fmt.Errorf("unexpected arguments: %v", fs.Args())
		fmt.Fprintln(fs.Output(), err)
		return options{}, err
	}
	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		opts.set[f.Name] = true
	})
	return opts, nil
}

// loadConfig reads the configuration file, if any, and overrides its values
// with the flags given on the command line.
func loadConfig(opts options) (config.Config, error) {
	cfg := config.Default()
	if opts.configFile != "" {
		var err error
		cfg, err = config.Load(opts.configFile)
		if err != nil {
			return config.Config{}, err
		}
	}
	if opts.set["interval"] {
		cfg.UpdateInterval = opts.interval
	}
	if opts.set["display-interval"] {
		cfg.DisplayInterval = opts.displayInterval
	}
	if opts.set["timeout"] {
		cfg.QueryTimeout = opts.timeout
	}
	if opts.set["server"] {
		cfg.Servers = append([]string(nil), opts.servers...)
	}
	if opts.set["timezone-offset"] {
		cfg.TimezoneOffset = opts.timezoneOffset
	}
	if opts.set["verbose"] {
		cfg.Verbose = opts.verbose
	}
	if opts.set["show-stats"] {
		cfg.ShowStats = opts.showStats
	}
	config.Normalize(&cfg)
	err := config.Validate(&cfg)
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func initLogger(verbose bool) {
	c := zap.NewDevelopmentConfig()
	c.DisableStacktrace = true
	c.EncoderConfig.EncodeCaller = func(
		caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		p := caller.TrimmedPath()
		if len(p) > 30 {
			p = "..." + p[len(p)-27:]
		}
		enc.AppendString(fmt.Sprintf("%30s", p))
	}
	if !verbose {
		c.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var err error
	log, err = c.Build()
	if err != nil {
		panic(err)
	}
}

func runMonitor(log *zap.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	err := http.ListenAndServe(addr, mux)
	log.Fatal("failed to serve metrics", zap.Error(err))
}

type logObserver struct {
	log *zap.Logger
}

func (o logObserver) SyncSucceeded(r client.Result, c estimator.Correction) {
	o.log.Info("NTP sync successful",
		zap.String("server", r.Server),
		zap.Time("time", c.Observed),
		zap.Duration("round trip", r.RoundTrip),
	)
}

func (o logObserver) DriftCorrected(r client.Result, c estimator.Correction) {
	o.log.Info("correcting drift",
		zap.String("server", r.Server),
		zap.Duration("drift", timemath.Abs(c.Drift)),
		zap.String("direction", c.Direction()),
		zap.Bool("initial", c.Initial),
	)
}

func (o logObserver) SyncFailed(err error) {
	o.log.Warn("NTP sync failed, keeping previous estimate", zap.Error(err))
}

func formatDisplayLine(now time.Time, timezoneOffset int, st ntpsync.SyncStats,
	showStats bool) string {
	loc := time.FixedZone("", timezoneOffset*60*60)
	var b strings.Builder
	fmt.Fprintf(&b, "Time (UTC%+d): %s", timezoneOffset, now.In(loc).Format(time.DateTime))
	if showStats {
		fmt.Fprintf(&b, " | Syncs: %d/%d (%.1f%% success)",
			st.Successes, st.Attempts, st.SuccessRate())
		if st.LatencySamples != 0 {
			fmt.Fprintf(&b, " | RTT p50: %v, p99: %v", st.LatencyP50, st.LatencyP99)
		}
	}
	return b.String()
}

func runDisplay(ctx context.Context, w io.Writer, est *estimator.Estimator,
	loop *ntpsync.Loop, cfg config.Config) {
	ticker := time.NewTicker(cfg.DisplayPeriod())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprintln(w, formatDisplayLine(est.Now(), cfg.TimezoneOffset, loop.Stats(), cfg.ShowStats))
		}
	}
}

func newClient(cfg config.Config) (*client.Client, error) {
	c := &client.Client{
		Timeout:          cfg.Timeout(),
		DSCP:             cfg.DSCP,
		StrictValidation: cfg.StrictValidation,
	}
	if cfg.LocalAddr != "" {
		localAddr, err := net.ResolveUDPAddr("udp", cfg.LocalAddr)
		if err != nil {
			return nil, err
		}
		c.LocalAddr = localAddr
	}
	return c, nil
}

func runClock(cfg config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting NTP synchronized clock",
		zap.Strings("servers", cfg.Servers),
		zap.Duration("interval", cfg.UpdatePeriod()),
		zap.Duration("display interval", cfg.DisplayPeriod()),
		zap.Int("timezone offset", cfg.TimezoneOffset),
	)

	c, err := newClient(cfg)
	if err != nil {
		log.Fatal("failed to resolve local address", zap.Error(err))
	}
	est := estimator.New(&clock.MonotonicClock{Log: log}, estimator.Fallback)
	loop, err := ntpsync.NewLoop(log, ntpsync.LoopConfig{
		Servers:  cfg.Servers,
		Interval: cfg.UpdatePeriod(),
	}, c, est, logObserver{log: log})
	if err != nil {
		log.Fatal("failed to create sync loop", zap.Error(err))
	}

	if cfg.MonitorAddr != "" {
		go runMonitor(log, cfg.MonitorAddr)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(ctx)
	}()

	runDisplay(ctx, os.Stdout, est, loop, cfg)
	log.Info("shutting down gracefully")
	<-done
}

func main() {
	opts, err := parseFlags(flag.NewFlagSet("ntpclock", flag.ContinueOnError), os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	cfg, err := loadConfig(opts)
	initLogger(opts.verbose || cfg.Verbose)
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	runClock(cfg)
}
