package module

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"testrig/internal/reporter"
)

type recorder struct {
	mu  sync.Mutex
	log []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, s)
}

func (r *recorder) entries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}

type seqModule struct {
	name     string
	phase    Phase
	priority int
	rec      *recorder
	err      error
	panics   bool
}

func (m *seqModule) Phase() Phase  { return m.phase }
func (m *seqModule) Priority() int { return m.priority }
func (m *seqModule) Stop()         {}
func (m *seqModule) Action(_ context.Context, env Env) error {
	if m.panics {
		panic("module blew up")
	}
	m.rec.add(m.name)
	return m.err
}

type loopModule struct {
	rec     *recorder
	started chan struct{}
	ignore  bool
}

func (m *loopModule) Phase() Phase { return PhaseParallel }
func (m *loopModule) Stop()        { m.rec.add("stop") }
func (m *loopModule) Action(ctx context.Context, env Env) error {
	env.Events.Add(reporter.StatusPass, "monitoring", "")
	close(m.started)
	if m.ignore {
		time.Sleep(300 * time.Millisecond)
		return nil
	}
	<-ctx.Done()
	m.rec.add("done")
	return ctx.Err()
}

type settingsModule struct {
	seqModule
	settings struct {
		Greeting string `yaml:"greeting"`
	}
}

func (m *settingsModule) Settings() any { return &m.settings }

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPhase(t *testing.T) {
	assert.Equal(t, "PARALLEL", PhaseParallel.String())
	p, err := ParsePhase("post")
	require.NoError(t, err)
	assert.Equal(t, PhasePost, p)
	_, err = ParsePhase("during")
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("b", func() Module { return &seqModule{} }))
	require.NoError(t, r.Register("a", func() Module { return &seqModule{} }))
	assert.Error(t, r.Register("a", func() Module { return &seqModule{} }))
	assert.Error(t, r.Register("", func() Module { return &seqModule{} }))
	assert.Error(t, r.Register("c", nil))
	assert.Equal(t, []string{"a", "b"}, r.Names())
}

func TestManager_SequentialOrder(t *testing.T) {
	rec := &recorder{}
	reg := NewRegistry()
	reg.MustRegister("late", func() Module { return &seqModule{name: "late", phase: PhasePre, rec: rec} })
	reg.MustRegister("early", func() Module { return &seqModule{name: "early", phase: PhasePre, priority: 1, rec: rec} })
	reg.MustRegister("after", func() Module { return &seqModule{name: "after", phase: PhasePost, rec: rec} })

	m := NewManager(reg)
	require.NoError(t, m.Add(Entry{Name: "late"}))
	require.NoError(t, m.Add(Entry{Name: "early"}))
	require.NoError(t, m.Add(Entry{Name: "after"}))
	assert.Error(t, m.Add(Entry{Name: "unknown"}))

	require.NoError(t, m.RunModule(context.Background(), PhasePre))
	assert.Equal(t, []string{"early", "late"}, rec.entries())

	require.NoError(t, m.RunModule(context.Background(), PhasePost))
	assert.Equal(t, []string{"early", "late", "after"}, rec.entries())
}

func TestManager_SequentialFailures(t *testing.T) {
	rec := &recorder{}
	reg := NewRegistry()
	reg.MustRegister("broken", func() Module {
		return &seqModule{name: "broken", phase: PhasePost, rec: rec, err: errors.New("no banner")}
	})
	reg.MustRegister("panicky", func() Module { return &seqModule{name: "panicky", phase: PhasePost, rec: rec, panics: true} })
	reg.MustRegister("fine", func() Module { return &seqModule{name: "fine", phase: PhasePost, rec: rec, priority: 100} })

	rep := reporter.New()
	m := NewManager(reg)
	m.SetEnv(Env{Reporter: rep})
	for _, n := range []string{"broken", "panicky", "fine"} {
		require.NoError(t, m.Add(Entry{Name: n}))
	}

	err := m.RunModule(context.Background(), PhasePost)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no banner")
	assert.Contains(t, err.Error(), "module blew up")
	assert.Equal(t, []string{"broken", "fine"}, rec.entries(), "later modules still run")

	children := rep.Root().Children
	require.Len(t, children, 2)
	assert.Equal(t, "Module broken failed", children[0].Header)
	assert.Equal(t, reporter.StatusException, children[1].Status)
}

func TestManager_Parallel(t *testing.T) {
	rec := &recorder{}
	mod := &loopModule{rec: rec, started: make(chan struct{})}
	reg := NewRegistry()
	reg.MustRegister("monitor", func() Module { return mod })

	rep := reporter.New()
	m := NewManager(reg, WithStopTimeout(2*time.Second))
	m.SetEnv(Env{Reporter: rep})
	require.NoError(t, m.Add(Entry{Name: "monitor"}))

	require.NoError(t, m.RunModule(context.Background(), PhaseParallel))
	assert.Error(t, m.RunModule(context.Background(), PhaseParallel), "already running")

	select {
	case <-mod.started:
	case <-time.After(2 * time.Second):
		t.Fatal("parallel module did not start")
	}

	require.NoError(t, m.StopModule())
	assert.Equal(t, []string{"stop", "done"}, rec.entries())
	require.NoError(t, m.StopModule(), "stopping twice is a no-op")

	events := rep.Root().Children
	require.Len(t, events, 1)
	assert.Equal(t, "Module monitor", events[0].Header)
	assert.Equal(t, reporter.StatusPass, events[0].Status)
}

func TestManager_StopTimeout(t *testing.T) {
	mod := &loopModule{rec: &recorder{}, started: make(chan struct{}), ignore: true}
	reg := NewRegistry()
	reg.MustRegister("stubborn", func() Module { return mod })

	m := NewManager(reg, WithStopTimeout(20*time.Millisecond))
	m.SetEnv(Env{Reporter: reporter.New()})
	require.NoError(t, m.Add(Entry{Name: "stubborn"}))
	require.NoError(t, m.RunModule(context.Background(), PhaseParallel))
	<-mod.started

	assert.ErrorIs(t, m.StopModule(), ErrStopTimeout)

	// let the module finish so no goroutine outlives the test
	time.Sleep(400 * time.Millisecond)
}

func TestManager_LoadSave(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	reg.MustRegister("banner", func() Module { return &seqModule{phase: PhasePost, rec: &recorder{}} })

	listPath := filepath.Join(dir, "modules.yaml")
	require.NoError(t, os.WriteFile(listPath, []byte(`
modules:
  - name: banner
    setting_file: banner-lab
  - name: ghost
`), 0644))

	m := NewManager(reg)
	require.NoError(t, m.Load(listPath))
	assert.Equal(t, []Entry{{Name: "banner", SettingFile: "banner-lab"}}, m.Entries())

	jsonPath := filepath.Join(dir, "out", "modules.json")
	require.NoError(t, m.Save(jsonPath))
	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"setting_file": "banner-lab"`)

	reloaded := NewManager(reg)
	require.NoError(t, reloaded.Load(jsonPath))
	assert.Equal(t, m.Entries(), reloaded.Entries())

	missing := NewManager(reg)
	require.NoError(t, missing.Load(filepath.Join(dir, "none.yaml")))
	assert.Empty(t, missing.Entries())

	require.NoError(t, os.WriteFile(listPath, []byte("modules: [oops"), 0644))
	assert.Error(t, m.Load(listPath))
}

func TestManager_Settings(t *testing.T) {
	dir := t.TempDir()
	var seen *settingsModule
	reg := NewRegistry()
	reg.MustRegister("greeter", func() Module {
		seen = &settingsModule{seqModule: seqModule{name: "greeter", phase: PhasePre, rec: &recorder{}}}
		seen.settings.Greeting = "hello"
		return seen
	})

	m := NewManager(reg, WithSettingPath(dir))
	require.NoError(t, m.Add(Entry{Name: "greeter"}))
	require.NoError(t, m.RunModule(context.Background(), PhasePre))

	raw, err := os.ReadFile(filepath.Join(dir, "greeter.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "greeting: hello")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeter.yaml"), []byte("greeting: hi\n"), 0644))
	require.NoError(t, m.RunModule(context.Background(), PhasePre))
	assert.Equal(t, "hi", seen.settings.Greeting)
}
