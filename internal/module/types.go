package module

import (
	"context"
	"fmt"
	"strings"

	"testrig/internal/reporter"
	"testrig/internal/resource"
)

// Phase says when a module runs relative to a case.
type Phase int

const (
	// PhasePre modules run before the case, one after another.
	PhasePre Phase = 1
	// PhaseParallel modules run on their own goroutines while the case runs.
	PhaseParallel Phase = 2
	// PhasePost modules run after the case, one after another.
	PhasePost Phase = 3
)

// DefaultPriority applies to modules that do not implement Prioritized.
const DefaultPriority = 99

func (p Phase) String() string {
	switch p {
	case PhasePre:
		return "PRE"
	case PhaseParallel:
		return "PARALLEL"
	case PhasePost:
		return "POST"
	default:
		return fmt.Sprintf("PHASE(%d)", int(p))
	}
}

// ParsePhase converts a phase name, case-insensitively.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PRE":
		return PhasePre, nil
	case "PARALLEL":
		return PhaseParallel, nil
	case "POST":
		return PhasePost, nil
	}
	return 0, fmt.Errorf("unknown module phase %q", s)
}

// Env is what a module can work with while it runs.
type Env struct {
	Reporter *reporter.Reporter
	Pool     *resource.Pool

	// Events is set for parallel modules. Steps added through it land in
	// the module's own node regardless of where the case cursor is.
	Events *reporter.EventGroup
}

// Module is a piece of logic run around every case.
//
// Action does the work. For parallel modules it should return once ctx is
// cancelled or Stop has been called.
type Module interface {
	Phase() Phase
	Action(ctx context.Context, env Env) error
	Stop()
}

// Prioritized modules run in ascending priority order within a phase.
type Prioritized interface {
	Priority() int
}

// Factory creates a fresh module instance.
type Factory func() Module

func priorityOf(m Module) int {
	if p, ok := m.(Prioritized); ok {
		return p.Priority()
	}
	return DefaultPriority
}
