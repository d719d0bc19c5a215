package reporter

import (
	"context"
	"time"

	"testrig/pkg/logging"
)

// HaltPolicy selects which recorded statuses pause the run. The pause is a
// breakpoint for interactive debugging: the goroutine that recorded the step
// waits until Resume is called. With a zero Timeout it waits indefinitely.
type HaltPolicy struct {
	OnFailure   bool
	OnException bool
	OnStop      bool
	Timeout     time.Duration
}

func (p HaltPolicy) matches(status Status) bool {
	switch status {
	case StatusFail:
		return p.OnFailure
	case StatusException:
		return p.OnException
	case StatusStop:
		return p.OnStop
	}
	return false
}

// HaltEvent describes the step that paused the run.
type HaltEvent struct {
	Header  string
	Message string
	Status  Status
	Since   time.Time
}

// SetHaltPolicy replaces the halt switches for subsequent steps.
func (r *Reporter) SetHaltPolicy(p HaltPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.halt = p
}

// HaltPolicy returns the current halt switches.
func (r *Reporter) HaltPolicy() HaltPolicy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.halt
}

// Halted returns the step the run is paused on, if any.
func (r *Reporter) Halted() (HaltEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.haltedAt == nil {
		return HaltEvent{}, false
	}
	return *r.haltedAt, true
}

// Resume releases every goroutine paused in Add. It reports whether anything
// was paused.
func (r *Reporter) Resume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resumeCh == nil {
		return false
	}
	close(r.resumeCh)
	r.resumeCh = nil
	r.haltedAt = nil
	return true
}

func (r *Reporter) waitHalt(ctx context.Context, node *Node) error {
	r.mu.Lock()
	if r.resumeCh == nil {
		r.resumeCh = make(chan struct{})
	}
	ch := r.resumeCh
	ev := HaltEvent{Header: node.Header, Message: node.Message, Status: node.Status, Since: r.now()}
	if r.haltedAt == nil {
		r.haltedAt = &ev
	}
	timeout := r.halt.Timeout
	onHalt := r.onHalt
	base := r.haltCtx
	r.mu.Unlock()

	if base.Err() != nil {
		r.Resume()
		return base.Err()
	}

	logging.Warn("Reporter", "Run halted on %s step %q, waiting for resume", ev.Status, ev.Header)
	if onHalt != nil {
		onHalt(ev)
	}

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case <-ch:
		return nil
	case <-expired:
		logging.Warn("Reporter", "Halt timeout of %s expired, resuming", timeout)
		r.Resume()
		return nil
	case <-ctx.Done():
		r.Resume()
		return ctx.Err()
	case <-base.Done():
		r.Resume()
		return base.Err()
	}
}
