package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"testrig/internal/config"
	"testrig/internal/module"
	"testrig/internal/precondition"
	"testrig/internal/reporter"
	"testrig/internal/resource"
	"testrig/internal/testcase"
	"testrig/internal/testlist"
	"testrig/pkg/logging"
)

// Status is the runner's execution state.
type Status int32

const (
	StatusIdle Status = iota
	StatusRunning
)

func (s Status) String() string {
	if s == StatusRunning {
		return "Running"
	}
	return "Idle"
}

// runStampLayout names the per-run case log directory.
const runStampLayout = "20060102_150405"

// Runner executes a test list against a resource pool. Start launches the
// run on its own goroutine; Wait blocks until it finishes.
type Runner struct {
	cfg      config.Config
	cases    *testcase.Registry
	modules  *module.Manager
	comms    *resource.CommRegistry
	reporter *reporter.Reporter
	repOpts  []reporter.Option
	ledger   *precondition.Ledger
	logLevel logging.LogLevel

	logger    *slog.Logger
	logCloser io.Closer

	status atomic.Int32

	mu         sync.Mutex
	pool       *resource.Pool
	list       *testlist.TestList
	tree       *listItem
	runID      string
	caseLogDir string
	done       chan struct{}
	cancel     context.CancelFunc
	watch      *watch
}

// Option configures a Runner.
type Option func(*runnerOptions)

type runnerOptions struct {
	modules     *module.Manager
	comms       *resource.CommRegistry
	reporterOps []reporter.Option
}

// WithModuleManager sets the module manager run around every case.
func WithModuleManager(m *module.Manager) Option {
	return func(o *runnerOptions) { o.modules = m }
}

// WithCommRegistry sets the comm factories used by loaded pools.
func WithCommRegistry(c *resource.CommRegistry) Option {
	return func(o *runnerOptions) { o.comms = c }
}

// WithReporterOptions passes extra options to the run's reporter, for
// example reporter.WithOnHalt.
func WithReporterOptions(opts ...reporter.Option) Option {
	return func(o *runnerOptions) { o.reporterOps = append(o.reporterOps, opts...) }
}

// New creates a runner. The runner log is written to runner.log under the
// configured log path.
func New(cfg config.Config, cases *testcase.Registry, opts ...Option) (*Runner, error) {
	o := runnerOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.modules == nil {
		o.modules = module.NewManager(module.NewRegistry(),
			module.WithSettingPath(cfg.Modules.SettingPath),
			module.WithStopTimeout(cfg.Modules.StopTimeout))
	}

	r := &Runner{
		cfg:      cfg,
		cases:    cases,
		modules:  o.modules,
		comms:    o.comms,
		ledger:   precondition.NewLedger(),
		logLevel: logging.ParseLevel(cfg.Runner.LogLevel),
		logger:   logging.Logger(),
	}

	if cfg.Runner.LogPath != "" {
		l, closer, err := logging.NewFileLogger(filepath.Join(cfg.Runner.LogPath, "runner.log"), r.logLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to open runner log: %w", err)
		}
		r.logger, r.logCloser = l, closer
	}

	repOpts := []reporter.Option{
		reporter.WithLogger(r.logger),
		reporter.WithHaltPolicy(reporter.HaltPolicy{
			OnFailure:   cfg.Reporter.HaltOnFailure,
			OnException: cfg.Reporter.HaltOnException,
			OnStop:      cfg.Reporter.HaltOnStop,
			Timeout:     cfg.Reporter.HaltTimeout,
		}),
	}
	r.repOpts = append(repOpts, o.reporterOps...)
	r.reporter = reporter.New(r.repOpts...)

	r.logger.Info("Case runner ready")
	return r, nil
}

// Reporter returns the reporter of the current or last run. Every Start
// replaces it with an empty one.
func (r *Runner) Reporter() *reporter.Reporter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reporter
}

// Ledger returns the case results of the current or last run.
func (r *Runner) Ledger() *precondition.Ledger {
	return r.ledger
}

// Modules returns the module manager.
func (r *Runner) Modules() *module.Manager {
	return r.modules
}

// Status returns whether a run is in progress.
func (r *Runner) Status() Status {
	return Status(r.status.Load())
}

// RunID identifies the current or last run.
func (r *Runner) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

// CaseLogDir returns the per-run directory holding the case logs.
func (r *Runner) CaseLogDir() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.caseLogDir
}

// LoadResource loads and connects the resource pool. On any failure the
// error is logged and the runner is left without a pool, so ResourceReady
// and Start report it as not loaded. The error is also returned for callers
// that want to stop early.
func (r *Runner) LoadResource(ctx context.Context, path, owner string) error {
	r.mu.Lock()
	old := r.pool
	r.pool = nil
	r.mu.Unlock()
	r.stopWatch()
	if old != nil {
		if err := old.Close(); err != nil {
			r.logger.Warn("Closing previous resource pool", "error", err)
		}
	}

	pool := resource.NewPool(resource.WithCommRegistry(r.comms))
	if err := pool.Load(path, owner); err != nil {
		r.logger.Error("Failed to load resources", "file", path, "error", err)
		return err
	}
	if err := pool.ConnectPreConnect(ctx); err != nil {
		r.logger.Error("Failed to connect devices", "file", path, "error", err)
		_ = pool.Close()
		return err
	}

	r.mu.Lock()
	r.pool = pool
	r.mu.Unlock()

	if r.cfg.Resource.Watch {
		if err := r.startWatch(path, owner); err != nil {
			r.logger.Warn("Cannot watch resource file", "file", path, "error", err)
		}
	}
	r.logger.Info("Resources loaded", "file", path, "devices", len(pool.Devices()))
	return nil
}

// Pool returns the loaded resource pool, or nil.
func (r *Runner) Pool() *resource.Pool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pool
}

// ResourceReady reports whether a pool is loaded.
func (r *Runner) ResourceReady() bool {
	return r.Pool() != nil
}

// TestListReady reports whether a test list is set.
func (r *Runner) TestListReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list != nil
}

// SetTestList resolves a test list against the case registry and makes it
// the list to run. Entries naming unregistered cases are skipped; their
// KindCaseImport errors are returned joined while the rest of the list is
// still installed.
func (r *Runner) SetTestList(tl *testlist.TestList) error {
	if r.Status() == StatusRunning {
		return fmt.Errorf("cannot change the test list while running")
	}
	tree, err := r.resolve(tl, "")

	r.mu.Lock()
	r.list = tl
	r.tree = tree
	r.mu.Unlock()

	r.logger.Info("Test list set", "list", tl.Name, "cases", tree.caseCount())
	return err
}

// Start launches the run. It returns immediately; a second Start while a
// run is in progress does nothing.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status() == StatusRunning {
		return nil
	}
	if r.pool == nil {
		return &Error{Kind: KindNotReady, Name: "resource"}
	}
	if r.tree == nil {
		return &Error{Kind: KindNotReady, Name: "test list"}
	}

	r.status.Store(int32(StatusRunning))
	r.runID = uuid.NewString()
	r.caseLogDir = filepath.Join(r.cfg.Runner.CaseLogPath,
		time.Now().Format(runStampLayout)+"_"+r.runID[:8])
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	opts := make([]reporter.Option, 0, len(r.repOpts)+1)
	opts = append(opts, r.repOpts...)
	r.reporter = reporter.New(append(opts, reporter.WithContext(runCtx))...)
	r.ledger.Reset()
	r.modules.SetEnv(module.Env{Reporter: r.reporter, Pool: r.pool})

	r.done = make(chan struct{})

	r.logger.Info("Run started", "run", r.runID, "list", r.tree.name)
	go r.mainLoop(runCtx, r.tree, r.done)
	return nil
}

func (r *Runner) mainLoop(ctx context.Context, tree *listItem, done chan struct{}) {
	defer func() {
		if p := recover(); p != nil {
			logging.Error("CaseRunner", fmt.Errorf("panic: %v", p), "Run %s aborted", r.RunID())
		}
		r.mu.Lock()
		r.cancel()
		r.status.Store(int32(StatusIdle))
		r.mu.Unlock()
		close(done)
	}()
	r.runList(ctx, tree)
	r.logger.Info("Run finished", "run", r.RunID())
}

// Wait blocks until the current run finishes. Without a run it returns at
// once.
func (r *Runner) Wait() {
	if ch := r.Done(); ch != nil {
		<-ch
	}
}

// Done returns a channel closed when the current run finishes, or nil when
// no run was started.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return nil
	}
	return r.done
}

// Cancel asks the current run to stop after the case in progress. Cases
// observe it through their context; a step paused by a halt is released.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Resume releases a run halted by the reporter's halt policy.
func (r *Runner) Resume() bool {
	return r.Reporter().Resume()
}

// Close stops watching, releases comm handles and closes the runner log.
func (r *Runner) Close() error {
	r.stopWatch()
	var errs []error
	if pool := r.Pool(); pool != nil {
		errs = append(errs, pool.Close())
	}
	if r.logCloser != nil {
		errs = append(errs, r.logCloser.Close())
	}
	return errors.Join(errs...)
}
