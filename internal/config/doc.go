// Package config provides configuration management for testrig.
//
// Configuration is an explicit Config value: it is loaded once at startup by
// LoadConfig and then passed to the runner, the reporter and the module
// manager. There is no package-level settings singleton.
//
// # Configuration Directory
//
// Configuration is loaded from a single directory containing config.yaml.
//
// Default location: ~/.config/testrig
// Custom location: Specified via --config-path flag
//
// When config.yaml is missing DefaultConfig is used. Relative paths in the
// file are resolved against the configuration directory.
//
// Example config.yaml:
//
//	runner:
//	  logPath: log
//	  caseLogPath: log/cases
//	  logLevel: debug
//	  defaultCaseSettingPath: settings/cases
//	reporter:
//	  haltOnFailure: true
//	  haltTimeout: 5m
//	modules:
//	  listFile: modules.yaml
//	  settingPath: settings/modules
//	  stopTimeout: 10s
//	resource:
//	  file: lab.json
//	  owner: alice
//	  watch: true
//
// # Settings Storage
//
// Storage keeps the per-case and per-module settings files as YAML. The
// usual entry point is LoadOrInit, which fills a settings struct from disk
// and writes the struct's defaults when the file does not exist yet:
//
//	settings := &PingSettings{Count: 3}
//	if err := storage.LoadOrInit("", "ping", settings); err != nil {
//		return err
//	}
//
// # Thread Safety
//
// Storage is safe for concurrent use. Config is a plain value and is not
// mutated after loading.
package config
