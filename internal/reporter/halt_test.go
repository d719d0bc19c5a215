package reporter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHaltBlocksUntilResume(t *testing.T) {
	defer goleak.VerifyNone(t)

	halted := make(chan HaltEvent, 1)
	r := New(
		WithHaltPolicy(HaltPolicy{OnFailure: true}),
		WithOnHalt(func(ev HaltEvent) { halted <- ev }),
	)
	r.AddTest("case")

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Add(StatusFail, "broken", "expected 1 got 2")
	}()

	var ev HaltEvent
	select {
	case ev = <-halted:
	case <-time.After(2 * time.Second):
		t.Fatal("reporter did not halt")
	}
	assert.Equal(t, "broken", ev.Header)
	assert.Equal(t, StatusFail, ev.Status)

	select {
	case <-done:
		t.Fatal("Add returned before resume")
	case <-time.After(50 * time.Millisecond):
	}

	got, ok := r.Halted()
	require.True(t, ok)
	assert.Equal(t, "broken", got.Header)

	assert.True(t, r.Resume())
	<-done

	_, ok = r.Halted()
	assert.False(t, ok)
	assert.False(t, r.Resume(), "nothing left to resume")
}

func TestHaltOnlyForEnabledStatuses(t *testing.T) {
	r := New(WithHaltPolicy(HaltPolicy{OnException: true}))

	finished := make(chan struct{})
	go func() {
		r.Add(StatusFail, "fail is not halted", "")
		r.Add(StatusStop, "stop is not halted", "")
		r.Add(StatusPass, "pass", "")
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("unexpected halt")
	}
}

func TestHaltTimeoutResumes(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := New(WithHaltPolicy(HaltPolicy{OnStop: true, Timeout: 30 * time.Millisecond}))

	start := time.Now()
	r.Add(StatusStop, "stopped", "")
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	_, ok := r.Halted()
	assert.False(t, ok)
}

func TestHaltContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := New(WithHaltPolicy(HaltPolicy{OnFailure: true}))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := r.AddContext(ctx, StatusFail, "broken", "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, ok := r.Halted()
	assert.False(t, ok)
}

func TestHaltReleasedByReporterContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	halted := make(chan HaltEvent, 1)
	r := New(
		WithContext(ctx),
		WithHaltPolicy(HaltPolicy{OnFailure: true}),
		WithOnHalt(func(ev HaltEvent) { halted <- ev }),
	)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		r.Add(StatusFail, "broken", "")
	}()

	select {
	case <-halted:
	case <-time.After(2 * time.Second):
		t.Fatal("reporter did not halt")
	}
	cancel()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("cancelling the reporter context did not release the step")
	}

	r.Add(StatusFail, "after cancel", "")
	_, ok := r.Halted()
	assert.False(t, ok, "steps recorded after cancel do not pause")
	assert.Len(t, halted, 0)
}

func TestResumeFromHaltCallback(t *testing.T) {
	var r *Reporter
	r = New(
		WithHaltPolicy(HaltPolicy{OnFailure: true}),
		WithOnHalt(func(HaltEvent) { r.Resume() }),
	)

	finished := make(chan struct{})
	go func() {
		r.Add(StatusFail, "broken", "")
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("resume from callback did not release the step")
	}
}

func TestSetHaltPolicy(t *testing.T) {
	r := New()
	p := HaltPolicy{OnFailure: true, Timeout: time.Second}
	r.SetHaltPolicy(p)
	assert.Equal(t, p, r.HaltPolicy())
}
