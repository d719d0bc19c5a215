package precondition

import "sync"

// Result is one ledger entry.
type Result struct {
	Name     string
	Priority int
	Passed   bool
}

// Ledger records the outcome of every case started during a run. Entries
// are created failed when a case starts, updated when it finishes and never
// removed. The runner is the only writer; preconditions read it.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*Result
	order   []string
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]*Result)}
}

// Begin records that a case has started. A case that runs again keeps its
// position and is reset to failed.
func (l *Ledger) Begin(name string, priority int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[name]; ok {
		e.Priority = priority
		e.Passed = false
		return
	}
	l.entries[name] = &Result{Name: name, Priority: priority}
	l.order = append(l.order, name)
}

// Finish sets the final result of a started case. It reports false when the
// case was never begun.
func (l *Ledger) Finish(name string, passed bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[name]
	if !ok {
		return false
	}
	e.Passed = passed
	return true
}

// Get returns the entry for name.
func (l *Ledger) Get(name string) (Result, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.entries[name]
	if !ok {
		return Result{}, false
	}
	return *e, true
}

// Results returns all entries in the order the cases started.
func (l *Ledger) Results() []Result {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Result, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, *l.entries[name])
	}
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Reset empties the ledger for a new run.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]*Result)
	l.order = nil
}
