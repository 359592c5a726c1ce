package config

import (
	"net"
	"strconv"
	"time"
)

const (
	// DefaultAuthorizationCodePath is the default base path of the callback handler.
	DefaultAuthorizationCodePath = "/oauth/code"

	// DefaultCatalogVariable is the environment variable the platform uses for bound services.
	DefaultCatalogVariable = "VCAP_SERVICES"

	// DefaultMetricsPath is where Prometheus metrics are served.
	DefaultMetricsPath = "/metrics"

	DefaultPort              = 8090
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultTokenTimeout      = 15 * time.Second
	DefaultUpstreamTimeout   = 60 * time.Second
)

// GetDefaultConfig returns the configuration used when no file overrides it.
func GetDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:              "localhost",
			Port:              DefaultPort,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Timeouts: TimeoutsConfig{
			Token:    DefaultTokenTimeout,
			Upstream: DefaultUpstreamTimeout,
		},
		Catalog: CatalogConfig{
			Variable: DefaultCatalogVariable,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
		AuthorizationCodePath: DefaultAuthorizationCodePath,
	}
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
