package config

import "time"

// Config is the top-level configuration structure for testrig. It is built
// once at startup and handed to the components that need it.
type Config struct {
	Runner   RunnerConfig   `yaml:"runner"`
	Reporter ReporterConfig `yaml:"reporter"`
	Modules  ModulesConfig  `yaml:"modules"`
	Resource ResourceConfig `yaml:"resource"`
}

// RunnerConfig controls where the case runner writes its logs and where case
// settings are looked up when a list does not name a location.
type RunnerConfig struct {
	LogPath                string `yaml:"logPath,omitempty"`
	CaseLogPath            string `yaml:"caseLogPath,omitempty"`
	LogLevel               string `yaml:"logLevel,omitempty"`
	DefaultCaseSettingPath string `yaml:"defaultCaseSettingPath,omitempty"`
}

// ReporterConfig holds the halt-on-* switches. A HaltTimeout of zero waits
// until an explicit resume.
type ReporterConfig struct {
	HaltOnFailure   bool          `yaml:"haltOnFailure,omitempty"`
	HaltOnException bool          `yaml:"haltOnException,omitempty"`
	HaltOnStop      bool          `yaml:"haltOnStop,omitempty"`
	HaltTimeout     time.Duration `yaml:"haltTimeout,omitempty"`
}

// ModulesConfig points at the logic module list and its settings directory.
type ModulesConfig struct {
	ListFile    string        `yaml:"listFile,omitempty"`
	SettingPath string        `yaml:"settingPath,omitempty"`
	StopTimeout time.Duration `yaml:"stopTimeout,omitempty"`
}

// ResourceConfig names the resource file to load and the identity used when
// reserving it.
type ResourceConfig struct {
	File  string `yaml:"file,omitempty"`
	Owner string `yaml:"owner,omitempty"`
	Watch bool   `yaml:"watch,omitempty"`
}
