package demo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"testrig/internal/reporter"
	"testrig/internal/resource"
	"testrig/internal/template"
	"testrig/internal/testcase"
)

// HelloWorld greets the first server of the pool through its console.
type HelloWorld struct {
	rep      *reporter.Reporter
	pool     *resource.Pool
	server   *resource.Device
	settings struct {
		Greeting string `yaml:"greeting"`
		Repeat   int    `yaml:"repeat"`
	}
}

func NewHelloWorld(rep *reporter.Reporter) testcase.Case {
	c := &HelloWorld{rep: rep}
	c.settings.Greeting = "hello"
	c.settings.Repeat = 1
	return c
}

func (c *HelloWorld) Settings() any { return &c.settings }

func (c *HelloWorld) CollectResource(pool *resource.Pool) error {
	servers := pool.CollectDevice("server")
	if len(servers) == 0 {
		return errors.New("no server in the pool")
	}
	c.pool = pool
	c.server = servers[0]
	c.rep.Add(reporter.StatusInfo, "Using "+c.server.Name, "")
	return nil
}

func (c *HelloWorld) Setup(ctx context.Context) error {
	c.rep.Add(reporter.StatusInfo, "This is the setup step", "")
	return nil
}

func (c *HelloWorld) Test(ctx context.Context) error {
	h, err := c.pool.Comm(c.server.Name)
	if err != nil {
		return err
	}
	console, ok := h.(*Console)
	if !ok {
		return fmt.Errorf("device %s has no console", c.server.Name)
	}
	for i := 0; i < c.settings.Repeat; i++ {
		reply := console.Exec("echo " + c.settings.Greeting)
		c.rep.Add(reporter.StatusPass, "Greeting answered", reply)
	}
	return nil
}

func (c *HelloWorld) Cleanup(ctx context.Context) error {
	c.rep.Add(reporter.StatusInfo, "This is the cleanup step", "")
	return nil
}

// LoginData logs in once per entry of a data file.
type LoginData struct {
	rep      *reporter.Reporter
	settings struct {
		DataFile    string `yaml:"dataFile"`
		StopOnError bool   `yaml:"stopOnError"`
		Domain      string `yaml:"domain"`
	}
}

func NewLoginData(rep *reporter.Reporter) testcase.Case {
	c := &LoginData{rep: rep}
	c.settings.DataFile = filepath.Join("samples", "data", "login.yaml")
	c.settings.Domain = "lab.local"
	return c
}

func (c *LoginData) Settings() any { return &c.settings }

func (c *LoginData) CollectResource(pool *resource.Pool) error { return nil }

func (c *LoginData) Setup(ctx context.Context) error { return nil }

func (c *LoginData) Test(ctx context.Context) error {
	dp := testcase.DataProvider{
		File:        c.settings.DataFile,
		Vars:        map[string]any{"domain": c.settings.Domain},
		Calls:       template.Calls{"timestamp": func() (any, error) { return time.Now().Format(time.RFC3339), nil }},
		StopOnError: c.settings.StopOnError,
	}
	return dp.Run(ctx, c.rep, func(ctx context.Context, data map[string]any) error {
		user, _ := data["user"].(string)
		if user == "" {
			return errors.New("entry has no user")
		}
		c.rep.Add(reporter.StatusPass, "Logged in as "+user, fmt.Sprintf("at %v", data["at"]))
		return nil
	})
}

func (c *LoginData) Cleanup(ctx context.Context) error { return nil }

// LinkCheck verifies that the first server is cabled to a switch.
type LinkCheck struct {
	rep   *reporter.Reporter
	links []resource.Connection
}

func NewLinkCheck(rep *reporter.Reporter) testcase.Case {
	return &LinkCheck{rep: rep}
}

func (c *LinkCheck) CollectResource(pool *resource.Pool) error {
	servers := pool.CollectDevice("server")
	if len(servers) == 0 {
		return errors.New("no server in the pool")
	}
	links, err := pool.CollectConnectionRoute(servers[0].Name,
		resource.PortConnection{LocalType: "ethernet", RemoteDeviceType: "switch"})
	if err != nil {
		return err
	}
	c.links = links
	return nil
}

func (c *LinkCheck) Setup(ctx context.Context) error { return nil }

func (c *LinkCheck) Test(ctx context.Context) error {
	for _, l := range c.links {
		c.rep.Add(reporter.StatusPass, "Link "+l.String(), "")
	}
	return nil
}

func (c *LinkCheck) Cleanup(ctx context.Context) error { return nil }

// VersionGate checks that every server runs a supported firmware version.
type VersionGate struct {
	rep      *reporter.Reporter
	all      []*resource.Device
	eligible map[string]bool
	settings struct {
		Constraint string `yaml:"constraint"`
	}
}

func NewVersionGate(rep *reporter.Reporter) testcase.Case {
	c := &VersionGate{rep: rep}
	c.settings.Constraint = ">= 2.0.0"
	return c
}

func (c *VersionGate) Settings() any { return &c.settings }

func (c *VersionGate) CollectResource(pool *resource.Pool) error {
	vc, err := resource.NewVersionConstraint(c.settings.Constraint)
	if err != nil {
		return err
	}
	c.all = pool.CollectDevice("server")
	c.eligible = make(map[string]bool)
	for _, d := range pool.CollectDevice("server", vc) {
		c.eligible[d.Name] = true
	}
	return nil
}

func (c *VersionGate) Setup(ctx context.Context) error { return nil }

func (c *VersionGate) Test(ctx context.Context) error {
	for _, d := range c.all {
		if c.eligible[d.Name] {
			c.rep.Add(reporter.StatusPass, d.Name+" firmware is supported", d.Property("version"))
		} else {
			c.rep.Add(reporter.StatusFail, d.Name+" firmware is too old", d.Property("version"))
		}
	}
	return nil
}

func (c *VersionGate) Cleanup(ctx context.Context) error { return nil }
