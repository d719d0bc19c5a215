package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"testrig/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/testrig"
	configFileName = "config.yaml"
)

// GetDefaultConfigPath returns ~/.config/testrig.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}

	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads configuration from a single specified directory.
// Missing config.yaml yields DefaultConfig. Values present in the file
// override the defaults; relative paths are resolved against configPath.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := DefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			config.resolvePaths(configPath)
			return config, nil
		}
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return Config{}, NewConfigurationError(configFilePath, "io", err.Error())
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, NewConfigurationError(configFilePath, "parse", err.Error())
	}
	if err := config.Validate(); err != nil {
		return Config{}, NewConfigurationError(configFilePath, "validation", err.Error())
	}
	config.resolvePaths(configPath)

	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	if c.Reporter.HaltTimeout < 0 {
		return fmt.Errorf("reporter.haltTimeout must not be negative")
	}
	if c.Modules.StopTimeout < 0 {
		return fmt.Errorf("modules.stopTimeout must not be negative")
	}
	return nil
}

func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{
		&c.Runner.LogPath,
		&c.Runner.CaseLogPath,
		&c.Runner.DefaultCaseSettingPath,
		&c.Modules.ListFile,
		&c.Modules.SettingPath,
		&c.Resource.File,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}
