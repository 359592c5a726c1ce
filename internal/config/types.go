package config

import "time"

// Config is the top-level configuration structure for tokenrelay.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	// AuthorizationCodePath is the base path of the authorization code
	// callback and the status listing.
	AuthorizationCodePath string `yaml:"authorizationCodePath"`

	// Routes are matched in order; list them from most to least specific.
	Routes []RouteConfig `yaml:"routes"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Host              string        `yaml:"host,omitempty"`              // Host to bind to (default: localhost)
	Port              int           `yaml:"port,omitempty"`              // Port to listen on (default: 8090)
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout,omitempty"` // default: 10s
	WriteTimeout      time.Duration `yaml:"writeTimeout,omitempty"`      // 0 disables; proxied responses stream
	IdleTimeout       time.Duration `yaml:"idleTimeout,omitempty"`       // default: 120s
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text or json
}

// TimeoutsConfig bounds outbound calls.
type TimeoutsConfig struct {
	// Token bounds each token endpoint exchange and destination lookup.
	Token time.Duration `yaml:"token,omitempty"`
	// Upstream bounds the wait for a proxied backend's response headers.
	Upstream time.Duration `yaml:"upstream,omitempty"`
}

// CatalogConfig locates the bound service credentials.
type CatalogConfig struct {
	// Variable is the environment variable holding the service catalog JSON.
	Variable string `yaml:"variable,omitempty"`
	// EnvFile is an optional dotenv file loaded before reading Variable.
	EnvFile string `yaml:"envFile,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// Grant type literals accepted in RouteConfig.GrantType.
const (
	GrantTypeClientCredentials = "clientCredentials"
	GrantTypeAuthorizationCode = "authorizationCode"
)

// RouteConfig describes one proxied backend.
type RouteConfig struct {
	// Path is the request path prefix this route serves.
	Path string `yaml:"path"`
	// PathPrefix replaces Path in the forwarded request (default: Path).
	PathPrefix string `yaml:"pathPrefix,omitempty"`
	// Service is matched against the "sap.cloud.service" credential of a bound service.
	Service string `yaml:"service,omitempty"`
	// Endpoint names an entry of the bound service's endpoints map.
	Endpoint string `yaml:"endpoint,omitempty"`
	// Destination is resolved through the destination service instead of Service.
	Destination string `yaml:"destination,omitempty"`
	// GrantType is clientCredentials (default) or authorizationCode.
	GrantType string `yaml:"grantType,omitempty"`
}

// EffectiveGrantType returns the route's grant type with the default applied.
func (r RouteConfig) EffectiveGrantType() string {
	if r.GrantType == "" {
		return GrantTypeClientCredentials
	}
	return r.GrantType
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return joinHostPort(s.Host, s.Port)
}
