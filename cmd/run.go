package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"testrig/internal/module"
	"testrig/internal/reporter"
	"testrig/internal/runner"
	"testrig/internal/testlist"
	"testrig/pkg/logging"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	runResourceFile    string
	runModuleFile      string
	runReportFile      string
	runReserve         bool
	runShowTree        bool
	runNoSpinner       bool
	runHaltOnFailure   bool
	runHaltOnException bool
	runHaltOnStop      bool
	runHaltTimeout     time.Duration
)

// RunFailedError is returned by the run command when any case failed,
// errored or raised an exception.
type RunFailedError struct {
	Stats reporter.Stats
}

func (e *RunFailedError) Error() string {
	return fmt.Sprintf("run failed: %d failed, %d errors, %d exceptions", e.Stats.Fail, e.Stats.Error, e.Stats.Exception)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <test-list>",
		Short: "Run a test list against the resource pool",
		Long: `Loads the resource file and the test list, then runs every case of the
list and its sub-lists. The command exits with status 1 when any case failed.

With --halt-on-failure, --halt-on-exception or --halt-on-stop the run pauses on
the matching step and prompts for confirmation before continuing.`,
		Args: cobra.ExactArgs(1),
		RunE: runRun,
	}

	cmd.Flags().StringVarP(&runResourceFile, "resource", "r", "", "Resource file (default from config)")
	cmd.Flags().StringVarP(&runModuleFile, "modules", "m", "", "Module list file (default from config)")
	cmd.Flags().StringVar(&runReportFile, "report", "", "Write the result tree to this file (.json, .yaml or text)")
	cmd.Flags().BoolVar(&runReserve, "reserve", false, "Reserve the resource file for the duration of the run")
	cmd.Flags().BoolVar(&runShowTree, "tree", false, "Print the result tree after the run")
	cmd.Flags().BoolVar(&runNoSpinner, "no-spinner", false, "Disable the progress spinner")
	cmd.Flags().BoolVar(&runHaltOnFailure, "halt-on-failure", false, "Pause the run on FAIL steps")
	cmd.Flags().BoolVar(&runHaltOnException, "halt-on-exception", false, "Pause the run on EXCEPTION steps")
	cmd.Flags().BoolVar(&runHaltOnStop, "halt-on-stop", false, "Pause the run on STOP steps")
	cmd.Flags().DurationVar(&runHaltTimeout, "halt-timeout", 0, "Resume a paused run after this long (0 waits for input)")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	cfg := env.cfg

	flags := cmd.Flags()
	if flags.Changed("halt-on-failure") {
		cfg.Reporter.HaltOnFailure = runHaltOnFailure
	}
	if flags.Changed("halt-on-exception") {
		cfg.Reporter.HaltOnException = runHaltOnException
	}
	if flags.Changed("halt-on-stop") {
		cfg.Reporter.HaltOnStop = runHaltOnStop
	}
	if flags.Changed("halt-timeout") {
		cfg.Reporter.HaltTimeout = runHaltTimeout
	}
	if runResourceFile != "" {
		cfg.Resource.File = runResourceFile
	}
	if runModuleFile != "" {
		cfg.Modules.ListFile = runModuleFile
	}

	modules := module.NewManager(env.modules,
		module.WithSettingPath(cfg.Modules.SettingPath),
		module.WithStopTimeout(cfg.Modules.StopTimeout))
	if cfg.Modules.ListFile != "" {
		if err := modules.Load(cfg.Modules.ListFile); err != nil {
			return err
		}
	}

	halts := make(chan reporter.HaltEvent, 1)
	r, err := runner.New(cfg, env.cases,
		runner.WithModuleManager(modules),
		runner.WithCommRegistry(env.comms),
		runner.WithReporterOptions(reporter.WithOnHalt(func(ev reporter.HaltEvent) {
			select {
			case halts <- ev:
			default:
			}
		})))
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			logging.Warn("Run", "Closing runner: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Resource.File != "" {
		if err := r.LoadResource(ctx, cfg.Resource.File, cfg.Resource.Owner); err != nil {
			return err
		}
		if runReserve {
			if err := r.Pool().Reserve(); err != nil {
				return err
			}
			defer func() {
				if err := r.Pool().Release(); err != nil {
					logging.Warn("Run", "Releasing %s: %v", cfg.Resource.File, err)
				}
			}()
		}
	}

	tl, err := testlist.Load(args[0])
	if err != nil {
		return err
	}
	if err := r.SetTestList(tl); err != nil {
		logging.Warn("Run", "%v", err)
	}

	if err := r.Start(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s of %s\n", r.RunID(), tl.Name)
	waitForRun(ctx, cmd, r, halts, !runNoSpinner && !env.structured())

	rep := r.Reporter()
	if runReportFile != "" {
		if err := writeReport(rep, runReportFile); err != nil {
			return err
		}
	}
	if runShowTree {
		if err := env.out.Report(rep.Snapshot()); err != nil {
			return err
		}
	}
	if err := env.out.Ledger(r.Ledger().Results()); err != nil {
		return err
	}
	stats := rep.CaseStats()
	if err := env.out.Stats(stats, rep.LeafStats()); err != nil {
		return err
	}
	fmt.Fprintf(out, "Case logs: %s\n", r.CaseLogDir())

	if stats.Failed() {
		return &RunFailedError{Stats: stats}
	}
	return nil
}

// waitForRun blocks until the run ends, prompting on every halt.
func waitForRun(ctx context.Context, cmd *cobra.Command, r *runner.Runner, halts <-chan reporter.HaltEvent, withSpinner bool) {
	var s *spinner.Spinner
	if withSpinner {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		s.Suffix = " Running..."
		s.Start()
		defer s.Stop()
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.Done():
			return
		case <-ctx.Done():
			r.Cancel()
			r.Wait()
			return
		case ev := <-halts:
			if s != nil {
				s.Stop()
			}
			if !promptResume(cmd, ev) {
				r.Cancel()
			}
			r.Resume()
			if s != nil {
				s.Start()
			}
		case <-ticker.C:
			if s != nil {
				s.Lock()
				s.Suffix = " Running " + r.Reporter().Current().Header
				s.Unlock()
			}
		}
	}
}

// promptResume asks whether to continue a halted run. It returns false when
// the user asked to abort.
func promptResume(cmd *cobra.Command, ev reporter.HaltEvent) bool {
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "\n%s %s step %q\n", text.FgYellow.Sprint("Run halted on"), ev.Status, ev.Header)
	if ev.Message != "" {
		fmt.Fprintf(out, "  %s\n", ev.Message)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt: "Press Enter to resume or type 'abort': ",
		Stdout: out,
	})
	if err != nil {
		logging.Warn("Run", "Cannot open prompt, resuming: %v", err)
		return true
	}
	defer rl.Close()

	line, err := rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(line), "abort")
}

// writeReport stores the result tree as JSON or YAML by extension, else as
// text.
func writeReport(rep *reporter.Reporter, path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = rep.JSON()
	case ".yaml", ".yml":
		data, err = rep.YAML()
	default:
		data = []byte(rep.Text())
	}
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}
