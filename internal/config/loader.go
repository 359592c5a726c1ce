package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"tokenrelay/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/tokenrelay"
	configFileName = "config.yaml"
)

// osUserHomeDir is swapped in tests.
var osUserHomeDir = os.UserHomeDir

// GetDefaultConfigPath returns the user configuration directory.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads config.yaml from configPath, or from the user config
// directory when configPath is empty. A missing file yields the defaults.
func LoadConfig(configPath string) (Config, error) {
	if configPath == "" {
		p, err := GetDefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		configPath = p
	}

	return LoadConfigFile(filepath.Join(configPath, configFileName))
}

// LoadConfigFile loads a single YAML file over the defaults and validates the result.
func LoadConfigFile(configFilePath string) (Config, error) {
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("Config", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return Config{}, fmt.Errorf("error reading config from %s: %w", configFilePath, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		// config malformed
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", configFilePath, err)
	}

	logging.Info("Config", "Loaded configuration from %s (%d routes)", configFilePath, len(config.Routes))
	return config, nil
}
