// Package logging provides the structured logging used across testrig.
//
// It is a thin layer over Go's log/slog package: every entry carries a
// subsystem attribute so output from the runner, the resource pool, the module
// manager and the CLI can be told apart and filtered.
//
// # Log Levels
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about a run
//   - **Warn**: Conditions worth attention that do not stop a run
//   - **Error**: Failures, always with the causing error attached
//
// # Usage Examples
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("CaseRunner", "Loaded test list %s", list.Name)
//	logging.Debug("ResourcePool", "Wired %d remote ports", n)
//	logging.Error("ModuleManager", err, "Module %s failed", name)
//
// # File Loggers
//
// The runner keeps one log file per run and one per executed case. Those are
// created with NewFileLogger, which returns a plain *slog.Logger and the file
// closer. Case loggers are attached to the result reporter for the duration
// of a case so that step narration lands in the case's own file.
//
// # Thread Safety
//
// All functions are safe for concurrent use. InitForCLI may be called again
// (tests do this) and later log calls pick up the new handler.
package logging
