package cmd

import (
	"errors"
	"os"

	"testrig/internal/config"
	"testrig/internal/demo"
	"testrig/internal/formatting"
	"testrig/internal/module"
	"testrig/internal/resource"
	"testrig/internal/runner"
	"testrig/internal/testcase"
	"testrig/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error or a run with failed cases.
	ExitCodeError = 1
	// ExitCodeNotReady indicates the run could not start: the resource file
	// is reserved by someone else or no test list was given.
	ExitCodeNotReady = 2
)

var (
	configPath   string
	logLevel     string
	outputFormat string
)

// rootCmd represents the base command for the testrig application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "testrig",
	Short: "Run test lists against a pool of lab devices",
	Long: `testrig runs lists of test cases against the devices described in a
resource file. Cases are gated by their type, priority and pre-tests, logic
modules run before, alongside and after every case, and results are collected
in a tree that can halt the run on failures.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "testrig version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	var failed *RunFailedError
	if errors.As(err, &failed) {
		return ExitCodeError
	}
	if runner.IsKind(err, runner.KindNotReady) || resource.IsKind(err, resource.KindNotReleased) {
		return ExitCodeNotReady
	}
	return ExitCodeError
}

// environment is what every command needs: the loaded configuration and the
// registries of cases, modules and comm handles.
type environment struct {
	cfg     config.Config
	cases   *testcase.Registry
	modules *module.Registry
	comms   *resource.CommRegistry
	out     *formatting.TableFormatter
}

// structured reports whether output is meant for scripts rather than a
// terminal.
func (e *environment) structured() bool {
	f := e.out.GetOptions().Format
	return f == formatting.FormatJSON || f == formatting.FormatYAML
}

// loadEnvironment initialises logging, loads config.yaml from --config-path
// (default ~/.config/testrig) and registers the built-in cases and modules.
func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	logging.InitForCLI(logging.ParseLevel(logLevel), cmd.ErrOrStderr())

	dir := configPath
	if dir == "" {
		var err error
		if dir, err = config.GetDefaultConfigPath(); err != nil {
			return nil, err
		}
	}
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, err
	}

	format, err := formatting.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}

	env := &environment{
		cfg:     cfg,
		cases:   testcase.NewRegistry(),
		modules: module.NewRegistry(),
		comms:   resource.NewCommRegistry(),
		out:     formatting.NewTableFormatter(formatting.Options{Format: format, Out: cmd.OutOrStdout()}),
	}
	if err := demo.Register(env.cases, env.modules, env.comms); err != nil {
		return nil, err
	}
	return env, nil
}

// init is a special Go function that is executed when the package is initialized.
// It is used here to add subcommands to the root command.
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "", "Configuration directory (default ~/.config/testrig)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Console log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, plain, json, yaml)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newResourceCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newCasesCmd())
}
