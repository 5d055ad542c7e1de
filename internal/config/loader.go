package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"toolshed/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/toolshed"
	configFileName = "config.yaml"
)

// osUserHomeDir is a package variable so tests can point home elsewhere.
var osUserHomeDir = os.UserHomeDir

// DefaultConfigPath returns ~/.config/toolshed/config.yaml, or a relative
// path when the home directory cannot be determined.
func DefaultConfigPath() string {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return filepath.Join(userConfigDir, configFileName)
	}
	return filepath.Join(homeDir, userConfigDir, configFileName)
}

// LoadConfig loads configuration from configFilePath on top of the
// defaults. A missing file is not an error.
func LoadConfig(configFilePath string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		// config malformed
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", configFilePath, err)
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~")), nil
}
