package demo

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"testrig/internal/config"
	"testrig/internal/module"
	"testrig/internal/reporter"
	"testrig/internal/resource"
	"testrig/internal/runner"
	"testrig/internal/testcase"
	"testrig/internal/testlist"
)

const (
	sampleLab   = "../../samples/lab.yaml"
	sampleData  = "../../samples/data/login.yaml"
	sampleSmoke = "../../samples/lists/smoke.yaml"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func registries(t *testing.T) (*testcase.Registry, *module.Registry, *resource.CommRegistry) {
	t.Helper()
	cases, modules, comms := testcase.NewRegistry(), module.NewRegistry(), resource.NewCommRegistry()
	require.NoError(t, Register(cases, modules, comms))
	return cases, modules, comms
}

func samplePool(t *testing.T) *resource.Pool {
	t.Helper()
	_, _, comms := registries(t)
	pool := resource.NewPool(resource.WithCommRegistry(comms))
	require.NoError(t, pool.Load(sampleLab, "tester"))
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func TestRegister_Twice(t *testing.T) {
	cases, modules, comms := registries(t)
	err := Register(cases, modules, comms)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestHelloWorld(t *testing.T) {
	pool := samplePool(t)
	rep := reporter.New()
	c := NewHelloWorld(rep).(*HelloWorld)
	c.settings.Repeat = 2

	scope := rep.AddTest("hello_world")
	require.NoError(t, c.CollectResource(pool))
	require.NoError(t, c.Setup(context.Background()))
	require.NoError(t, c.Test(context.Background()))
	require.NoError(t, c.Cleanup(context.Background()))
	scope.End()

	assert.Equal(t, reporter.StatusPass, scope.Status())
	h, err := pool.Comm("srv1")
	require.NoError(t, err)
	assert.Equal(t, []string{"echo hello", "echo hello"}, h.(*Console).Transcript())
}

func TestHelloWorld_NoServer(t *testing.T) {
	pool := resource.NewPool()
	c := NewHelloWorld(reporter.New())
	assert.Error(t, c.CollectResource(pool))
}

func TestLinkCheck(t *testing.T) {
	pool := samplePool(t)
	rep := reporter.New()
	c := NewLinkCheck(rep).(*LinkCheck)

	require.NoError(t, c.CollectResource(pool))
	require.Len(t, c.links, 1)
	assert.Equal(t, "srv1:eth0", c.links[0].Local.String())
	assert.Equal(t, "sw1:p1", c.links[0].Remote.String())
}

func TestVersionGate(t *testing.T) {
	pool := samplePool(t)
	rep := reporter.New()
	c := NewVersionGate(rep)

	scope := rep.AddTest("version_gate")
	require.NoError(t, c.CollectResource(pool))
	require.NoError(t, c.Test(context.Background()))
	scope.End()

	assert.Equal(t, reporter.StatusFail, scope.Status())
	stats := rep.LeafStats()
	assert.Equal(t, 1, stats.Pass)
	assert.Equal(t, 1, stats.Fail)
}

func TestVersionGate_BadConstraint(t *testing.T) {
	c := NewVersionGate(reporter.New()).(*VersionGate)
	c.settings.Constraint = "not a version"
	assert.Error(t, c.CollectResource(samplePool(t)))
}

func TestLoginData(t *testing.T) {
	rep := reporter.New()
	c := NewLoginData(rep).(*LoginData)
	c.settings.DataFile = sampleData
	c.settings.Domain = "example.org"

	scope := rep.AddTest("login_data")
	require.NoError(t, c.Test(context.Background()))
	scope.End()

	assert.Equal(t, reporter.StatusPass, scope.Status())
	node := scope.Node()
	require.Len(t, node.Children, 2)
	assert.Equal(t, "login as admin", node.Children[0].Header)
	require.NotEmpty(t, node.Children[0].Children)
	assert.Equal(t, "Logged in as admin@example.org", node.Children[0].Children[0].Header)
}

func TestLoginData_MissingFile(t *testing.T) {
	c := NewLoginData(reporter.New()).(*LoginData)
	c.settings.DataFile = filepath.Join(t.TempDir(), "none.yaml")
	assert.ErrorIs(t, c.Test(context.Background()), testcase.ErrDataFileNotFound)
}

func TestTCPClient(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan struct{})
	go func() {
		defer close(accepted)
		conn, err := ln.Accept()
		if err == nil {
			_ = conn.Close()
		}
	}()

	d := resource.NewDevice("probe", "tcp")
	d.Properties["address"] = ln.Addr().String()
	h, err := NewTCPClient(d)
	require.NoError(t, err)
	client := h.(*TCPClient)

	require.NoError(t, client.Connect(context.Background()))
	assert.True(t, client.Connected())
	require.NoError(t, client.Close())
	assert.False(t, client.Connected())
	<-accepted
}

func TestTCPClient_NoAddress(t *testing.T) {
	_, err := NewTCPClient(resource.NewDevice("probe", "tcp"))
	assert.Error(t, err)
}

func TestMonitor_StopsOnStop(t *testing.T) {
	rep := reporter.New()
	scope := rep.AddTest("watched")
	defer scope.End()

	m := NewMonitor().(*Monitor)
	m.settings.Interval = 5 * time.Millisecond
	env := module.Env{Reporter: rep, Pool: samplePool(t), Events: rep.AddEventGroup("Module monitor")}

	done := make(chan error, 1)
	go func() { done <- m.Action(context.Background(), env) }()
	time.Sleep(30 * time.Millisecond)
	m.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
	children := env.Events.Node().Children
	require.NotEmpty(t, children)
	assert.Contains(t, children[len(children)-1].Header, "Monitor took")
}

func TestSampleList_Loads(t *testing.T) {
	tl, err := testlist.Load(sampleSmoke)
	require.NoError(t, err)
	assert.Equal(t, "smoke", tl.Name)
	assert.True(t, tl.Settings.FollowPriority)
	require.Len(t, tl.SubLists, 1)
	assert.Equal(t, "features", tl.SubLists[0].Name)
	assert.Equal(t, testcase.TypeFeature, tl.SubLists[0].Settings.RunType)
}

func TestRun_SampleLab(t *testing.T) {
	cases, modules, comms := registries(t)
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Runner.LogPath = filepath.Join(dir, "log")
	cfg.Runner.CaseLogPath = filepath.Join(dir, "log", "cases")
	cfg.Runner.DefaultCaseSettingPath = filepath.Join(dir, "settings")
	cfg.Modules.SettingPath = filepath.Join(dir, "module-settings")
	cfg.Modules.StopTimeout = 2 * time.Second

	dataFile, err := filepath.Abs(sampleData)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(cfg.Runner.DefaultCaseSettingPath, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Runner.DefaultCaseSettingPath, "login_data.yaml"),
		[]byte("dataFile: "+dataFile+"\ndomain: lab.local\n"), 0644))

	mgr := module.NewManager(modules,
		module.WithSettingPath(cfg.Modules.SettingPath),
		module.WithStopTimeout(cfg.Modules.StopTimeout))
	require.NoError(t, mgr.Add(module.Entry{Name: "banner"}))
	require.NoError(t, mgr.Add(module.Entry{Name: "monitor"}))

	r, err := runner.New(cfg, cases, runner.WithModuleManager(mgr), runner.WithCommRegistry(comms))
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.LoadResource(context.Background(), sampleLab, "tester"))
	require.NoError(t, r.SetTestList(&testlist.TestList{
		Name:  "lab",
		Cases: []string{"hello_world", "link_check", "version_gate", "login_data"},
	}))
	require.NoError(t, r.Start(context.Background()))
	r.Wait()

	rep := r.Reporter()
	for name, want := range map[string]reporter.Status{
		"hello_world":  reporter.StatusPass,
		"link_check":   reporter.StatusPass,
		"version_gate": reporter.StatusFail,
		"login_data":   reporter.StatusPass,
	} {
		got, ok := rep.SearchResult(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	stats := rep.CaseStats()
	assert.Equal(t, 3, stats.Pass)
	assert.Equal(t, 1, stats.Fail)
	assert.Contains(t, rep.Text(), "Banner: case finished")
}
