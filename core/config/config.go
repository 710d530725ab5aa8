package config

import (
	"bytes"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"example.com/ntp-clock/base/timemath"
)

// DSCP is the default Differentiated Services Codepoint for requests.
// Valid values must be in range [0, 63]; 0 leaves packets unmarked.
const DSCP = 0

const (
	DefaultUpdateInterval  = 10.0
	DefaultDisplayInterval = 1.0
	DefaultQueryTimeout    = 3.0
)

var DefaultServers = []string{
	"time.google.com:123",
	"time.cloudflare.com:123",
	"pool.ntp.org:123",
}

// Config holds the settings of the clock. Intervals and timeouts are in
// seconds.
type Config struct {
	Servers          []string `toml:"servers,omitempty"`
	UpdateInterval   float64  `toml:"update_interval,omitempty"`
	DisplayInterval  float64  `toml:"display_interval,omitempty"`
	QueryTimeout     float64  `toml:"query_timeout,omitempty"`
	TimezoneOffset   int      `toml:"timezone_offset,omitempty"`
	LocalAddr        string   `toml:"local_address,omitempty"`
	DSCP             uint8    `toml:"dscp,omitempty"`
	StrictValidation bool     `toml:"strict_validation,omitempty"`
	MonitorAddr      string   `toml:"monitor_address,omitempty"`
	ShowStats        bool     `toml:"show_stats,omitempty"`
	Verbose          bool     `toml:"verbose,omitempty"`
}

func Default() Config {
	return Config{
		Servers:         append([]string(nil), DefaultServers...),
		UpdateInterval:  DefaultUpdateInterval,
		DisplayInterval: DefaultDisplayInterval,
		QueryTimeout:    DefaultQueryTimeout,
		DSCP:            DSCP,
	}
}

// Load decodes a TOML configuration file. Unknown fields are rejected;
// fields not present in the file keep their default values.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Decode(raw)
}

func Decode(raw []byte) (Config, error) {
	var cfg Config
	err := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(&cfg)
	if err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Servers == nil {
		cfg.Servers = def.Servers
	}
	if cfg.UpdateInterval == 0 {
		cfg.UpdateInterval = def.UpdateInterval
	}
	if cfg.DisplayInterval == 0 {
		cfg.DisplayInterval = def.DisplayInterval
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = def.QueryTimeout
	}
}

func (c *Config) UpdatePeriod() time.Duration {
	return timemath.Duration(c.UpdateInterval)
}

func (c *Config) DisplayPeriod() time.Duration {
	return timemath.Duration(c.DisplayInterval)
}

func (c *Config) Timeout() time.Duration {
	return timemath.Duration(c.QueryTimeout)
}
