package config

import (
	"os"
	"time"
)

const (
	// DefaultLogPath is where run logs go when nothing else is configured.
	DefaultLogPath = "log"

	// DefaultCaseLogPath is the root for per-case log files.
	DefaultCaseLogPath = "log/cases"

	// DefaultCaseSettingPath is used for case settings when a list entry
	// does not name a setting path.
	DefaultCaseSettingPath = "settings/cases"

	// DefaultModuleSettingPath holds module settings files.
	DefaultModuleSettingPath = "settings/modules"

	// DefaultModuleStopTimeout bounds how long stop_module waits for
	// parallel modules to return.
	DefaultModuleStopTimeout = 10 * time.Second
)

// DefaultConfig returns the configuration used when no config.yaml exists.
func DefaultConfig() Config {
	return Config{
		Runner: RunnerConfig{
			LogPath:                DefaultLogPath,
			CaseLogPath:            DefaultCaseLogPath,
			LogLevel:               "info",
			DefaultCaseSettingPath: DefaultCaseSettingPath,
		},
		Modules: ModulesConfig{
			SettingPath: DefaultModuleSettingPath,
			StopTimeout: DefaultModuleStopTimeout,
		},
		Resource: ResourceConfig{
			Owner: defaultOwner(),
		},
	}
}

// defaultOwner identifies this process for reservations: the login name,
// else the host name.
func defaultOwner() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "testrig"
}
