package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"example.com/ntp-clock/net/udp"
)

var (
	ErrNoServers = errors.New("server list must not be empty")
)

// Validate checks configuration correctness. It does not mutate cfg.
func Validate(cfg *Config) error {
	if len(cfg.Servers) == 0 {
		return ErrNoServers
	}
	for _, s := range cfg.Servers {
		host, port, err := net.SplitHostPort(s)
		if err != nil {
			return fmt.Errorf("server %q: %w", s, err)
		}
		if host == "" {
			return fmt.Errorf("server %q: missing host", s)
		}
		p, err := strconv.ParseUint(port, 10, 16)
		if err != nil || p == 0 {
			return fmt.Errorf("server %q: invalid port", s)
		}
	}
	if cfg.UpdateInterval <= 0 {
		return fmt.Errorf("update_interval must be > 0, got %v", cfg.UpdateInterval)
	}
	if cfg.DisplayInterval <= 0 {
		return fmt.Errorf("display_interval must be > 0, got %v", cfg.DisplayInterval)
	}
	if cfg.QueryTimeout <= 0 {
		return fmt.Errorf("query_timeout must be > 0, got %v", cfg.QueryTimeout)
	}
	if cfg.TimezoneOffset < -24 || cfg.TimezoneOffset > 24 {
		return fmt.Errorf("timezone_offset must be in [-24, 24], got %d", cfg.TimezoneOffset)
	}
	if cfg.DSCP > udp.DSCPMax {
		return fmt.Errorf("dscp must be in [0, %d], got %d", udp.DSCPMax, cfg.DSCP)
	}
	if cfg.LocalAddr != "" {
		_, err := net.ResolveUDPAddr("udp", cfg.LocalAddr)
		if err != nil {
			return fmt.Errorf("local_address %q: %w", cfg.LocalAddr, err)
		}
	}
	return nil
}
