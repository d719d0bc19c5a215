package demo

import (
	"context"
	"fmt"
	"time"

	"testrig/internal/module"
	"testrig/internal/reporter"
)

// Banner reports a configurable message after every case.
type Banner struct {
	settings struct {
		Message string `yaml:"message"`
	}
}

func NewBanner() module.Module {
	b := &Banner{}
	b.settings.Message = "case finished"
	return b
}

func (b *Banner) Phase() module.Phase { return module.PhasePost }
func (b *Banner) Priority() int       { return 0 }
func (b *Banner) Stop()               {}
func (b *Banner) Settings() any       { return &b.settings }

func (b *Banner) Action(ctx context.Context, env module.Env) error {
	env.Reporter.Add(reporter.StatusInfo, "Banner: "+b.settings.Message, "")
	return nil
}

// Monitor samples the pool while a case runs and reports through its event
// group.
type Monitor struct {
	stop     chan struct{}
	settings struct {
		Interval time.Duration `yaml:"interval"`
	}
}

func NewMonitor() module.Module {
	m := &Monitor{stop: make(chan struct{})}
	m.settings.Interval = time.Second
	return m
}

func (m *Monitor) Phase() module.Phase { return module.PhaseParallel }
func (m *Monitor) Settings() any       { return &m.settings }

// Stop may be called once.
func (m *Monitor) Stop() { close(m.stop) }

func (m *Monitor) Action(ctx context.Context, env module.Env) error {
	interval := m.settings.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	samples := 0
	for {
		select {
		case <-ctx.Done():
			env.Events.Add(reporter.StatusInfo, fmt.Sprintf("Monitor took %d samples", samples), "")
			return nil
		case <-m.stop:
			env.Events.Add(reporter.StatusInfo, fmt.Sprintf("Monitor took %d samples", samples), "")
			return nil
		case <-ticker.C:
			samples++
			if env.Pool != nil {
				env.Events.Add(reporter.StatusInfo, fmt.Sprintf("%d devices online", len(env.Pool.Devices())), "")
			}
		}
	}
}
