package app

import (
	"io"

	"tokenrelay/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of logging.level.
	Debug bool

	// Port overrides server.port when non-zero.
	Port int

	// Custom configuration directory (optional). When empty the user
	// configuration directory is used.
	ConfigPath string

	// LogOutput receives log lines; stderr when nil.
	LogOutput io.Writer

	// Relay is the loaded configuration. When set, NewApplication does not
	// read the configuration file.
	Relay *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string, port int) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
		Port:       port,
	}
}
