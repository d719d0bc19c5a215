package module

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/yaml"

	"testrig/internal/config"
	"testrig/internal/reporter"
	"testrig/internal/testcase"
	"testrig/pkg/logging"
)

// ErrStopTimeout is returned by StopModule when parallel modules did not
// return within the stop timeout.
var ErrStopTimeout = errors.New("parallel modules did not stop in time")

// Entry is one line of the module list file.
type Entry struct {
	Name        string `json:"name"`
	SettingFile string `json:"setting_file,omitempty"`
	SettingPath string `json:"setting_path,omitempty"`
}

type listFile struct {
	Modules []Entry `json:"modules"`
}

type namedModule struct {
	name   string
	module Module
}

type parallelRun struct {
	modules []namedModule
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// Manager runs the modules named in the module list around each case.
// Instances are created fresh for every phase run.
type Manager struct {
	registry    *Registry
	settingPath string
	stopTimeout time.Duration

	mu       sync.Mutex
	entries  []Entry
	env      Env
	parallel *parallelRun
}

// Option configures a Manager.
type Option func(*Manager)

// WithSettingPath sets the directory for module settings files when an
// entry names none.
func WithSettingPath(path string) Option {
	return func(m *Manager) { m.settingPath = path }
}

// WithStopTimeout bounds how long StopModule waits for parallel modules.
// Zero waits until they return.
func WithStopTimeout(d time.Duration) Option {
	return func(m *Manager) { m.stopTimeout = d }
}

// NewManager creates a manager resolving module names through registry.
func NewManager(registry *Registry, opts ...Option) *Manager {
	m := &Manager{
		registry:    registry,
		settingPath: config.DefaultModuleSettingPath,
		stopTimeout: config.DefaultModuleStopTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load reads the module list file. A missing file leaves the manager with
// no modules. Entries naming unregistered modules are logged and skipped.
func (m *Manager) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Info("ModuleManager", "No module list at %s, running without modules", path)
			m.mu.Lock()
			m.entries = nil
			m.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read module list %s: %w", path, err)
	}

	var lf listFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return fmt.Errorf("failed to parse module list %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(lf.Modules))
	for _, e := range lf.Modules {
		if _, ok := m.registry.Lookup(e.Name); !ok {
			logging.Warn("ModuleManager", "Module %s in %s is not registered, skipping", e.Name, path)
			continue
		}
		entries = append(entries, e)
	}

	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()

	logging.Info("ModuleManager", "Loaded %d modules from %s", len(entries), path)
	return nil
}

// Add appends a registered module to the list.
func (m *Manager) Add(e Entry) error {
	if _, ok := m.registry.Lookup(e.Name); !ok {
		return fmt.Errorf("module %s is not registered", e.Name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns the current module list.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

// Save writes the module list to path, as JSON for a .json file and YAML
// otherwise.
func (m *Manager) Save(path string) error {
	lf := listFile{Modules: m.Entries()}

	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(lf, "", "    ")
	} else {
		data, err = yaml.Marshal(lf)
	}
	if err != nil {
		return fmt.Errorf("failed to encode module list: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write module list %s: %w", path, err)
	}
	return nil
}

// SetEnv sets the reporter and pool handed to modules.
func (m *Manager) SetEnv(env Env) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.env = env
}

// instances creates the modules of one phase, configured and sorted by
// priority. Modules whose settings cannot be loaded are skipped.
func (m *Manager) instances(phase Phase) []namedModule {
	var out []namedModule
	for _, e := range m.Entries() {
		factory, ok := m.registry.Lookup(e.Name)
		if !ok {
			continue
		}
		mod := factory()
		if mod.Phase() != phase {
			continue
		}
		if err := m.configure(mod, e); err != nil {
			logging.Error("ModuleManager", err, "Skipping module %s", e.Name)
			continue
		}
		out = append(out, namedModule{name: e.Name, module: mod})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return priorityOf(out[i].module) < priorityOf(out[j].module)
	})
	return out
}

func (m *Manager) configure(mod Module, e Entry) error {
	c, ok := mod.(testcase.Configurable)
	if !ok {
		return nil
	}
	path := e.SettingPath
	if path == "" {
		path = m.settingPath
	}
	name := e.SettingFile
	if name == "" {
		name = e.Name
	}
	return config.NewStorage(path).LoadOrInit("", name, c.Settings())
}

// RunModule runs the modules of a phase. PRE and POST modules run in turn
// on the calling goroutine; a failing module is reported as an exception
// and the rest still run. PARALLEL modules are started and left running
// until StopModule.
func (m *Manager) RunModule(ctx context.Context, phase Phase) error {
	if phase == PhaseParallel {
		return m.startParallel(ctx)
	}

	m.mu.Lock()
	env := m.env
	m.mu.Unlock()

	var errs []error
	for _, nm := range m.instances(phase) {
		logging.Debug("ModuleManager", "Running %s module %s", phase, nm.name)
		err := testcase.Protect(func() error { return nm.module.Action(ctx, env) })
		if err != nil {
			logging.Error("ModuleManager", err, "Module %s failed", nm.name)
			if env.Reporter != nil {
				env.Reporter.Add(reporter.StatusException, fmt.Sprintf("Module %s failed", nm.name), err.Error())
			}
			errs = append(errs, fmt.Errorf("module %s: %w", nm.name, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) startParallel(ctx context.Context) error {
	mods := m.instances(PhaseParallel)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.parallel != nil {
		return fmt.Errorf("parallel modules are already running")
	}
	if len(mods) == 0 {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &parallelRun{modules: mods, cancel: cancel, group: &errgroup.Group{}}
	for _, nm := range mods {
		nm := nm
		env := m.env
		if env.Reporter != nil {
			env.Events = env.Reporter.AddEventGroup("Module " + nm.name)
		}
		run.group.Go(func() error {
			err := testcase.Protect(func() error { return nm.module.Action(runCtx, env) })
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			logging.Error("ModuleManager", err, "Parallel module %s failed", nm.name)
			if env.Events != nil {
				env.Events.Add(reporter.StatusException, fmt.Sprintf("Module %s failed", nm.name), err.Error())
			}
			return fmt.Errorf("module %s: %w", nm.name, err)
		})
		logging.Debug("ModuleManager", "Started parallel module %s", nm.name)
	}
	m.parallel = run
	return nil
}

// StopModule stops the running parallel modules and waits for them. It
// returns the first module error, or ErrStopTimeout when the modules did
// not return in time.
func (m *Manager) StopModule() error {
	m.mu.Lock()
	run := m.parallel
	m.parallel = nil
	m.mu.Unlock()

	if run == nil {
		return nil
	}

	for _, nm := range run.modules {
		if err := testcase.Protect(func() error { nm.module.Stop(); return nil }); err != nil {
			logging.Error("ModuleManager", err, "Stopping module %s", nm.name)
		}
	}
	run.cancel()

	done := make(chan error, 1)
	go func() { done <- run.group.Wait() }()

	if m.stopTimeout <= 0 {
		return <-done
	}
	select {
	case err := <-done:
		return err
	case <-time.After(m.stopTimeout):
		logging.Warn("ModuleManager", "Parallel modules still running after %s", m.stopTimeout)
		return ErrStopTimeout
	}
}
