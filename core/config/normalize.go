package config

import (
	"net"
	"strconv"
	"strings"

	"example.com/ntp-clock/net/ntp"
)

// ServerAddress returns server as host:port, adding the NTP port if server
// does not name one.
func ServerAddress(server string) string {
	server = strings.TrimSpace(server)
	_, _, err := net.SplitHostPort(server)
	if err == nil {
		return server
	}
	host := strings.TrimSuffix(strings.TrimPrefix(server, "["), "]")
	return net.JoinHostPort(host, strconv.Itoa(ntp.ServerPort))
}

// Normalize completes server addresses. It must be called before Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	for i, s := range cfg.Servers {
		if strings.TrimSpace(s) == "" {
			continue
		}
		cfg.Servers[i] = ServerAddress(s)
	}
}
