package reporter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"testrig/pkg/logging"
)

// Reporter records a run as a tree of result nodes. It keeps a cursor, the
// node new entries are added under, and moves it with the scopes returned by
// AddList, AddTest and AddStepGroup.
//
// All tree mutations are serialized by one mutex. Add may block the calling
// goroutine when a halt switch matches the recorded status; see HaltPolicy.
type Reporter struct {
	mu       sync.Mutex
	root     *Node
	cursor   *Node
	caseNode *Node
	listNode *Node

	logger     *slog.Logger
	caseLogger *slog.Logger

	halt     HaltPolicy
	haltCtx  context.Context
	onHalt   func(HaltEvent)
	resumeCh chan struct{}
	haltedAt *HaltEvent

	now func() time.Time
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithLogger sets the logger used for step narration when no case logger is
// attached.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reporter) { r.logger = l }
}

// WithHaltPolicy sets the halt-on-* switches.
func WithHaltPolicy(p HaltPolicy) Option {
	return func(r *Reporter) { r.halt = p }
}

// WithOnHalt registers a callback invoked on the halted goroutine before it
// starts waiting. The callback may call Resume.
func WithOnHalt(fn func(HaltEvent)) Option {
	return func(r *Reporter) { r.onHalt = fn }
}

// WithContext bounds every halt wait: once ctx is done, paused steps are
// released and later steps no longer pause.
func WithContext(ctx context.Context) Option {
	return func(r *Reporter) { r.haltCtx = ctx }
}

// WithClock overrides the node timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// New creates a reporter with an empty root node.
func New(opts ...Option) *Reporter {
	r := &Reporter{now: time.Now, haltCtx: context.Background()}
	for _, opt := range opts {
		opt(r)
	}
	r.root = &Node{Header: "Root", Status: StatusInfo, Type: NodeOther, Timestamp: r.now()}
	r.cursor = r.root
	return r
}

// Scope is returned by the Add* methods that move the cursor. End restores
// the cursor to where it was before the scope was opened. End is safe to
// call more than once and from a defer.
type Scope struct {
	r    *Reporter
	node *Node
	prev *Node
	once sync.Once
}

// Node returns the node the scope opened.
func (s *Scope) Node() *Node {
	return s.node
}

// Status returns the current status of the scope's node.
func (s *Scope) Status() Status {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	return s.node.Status
}

// End closes the scope. Scopes left open inside it are closed with it. A
// scope whose node is no longer on the cursor path (because an enclosing
// scope already ended) does nothing.
func (s *Scope) End() {
	s.once.Do(func() {
		s.r.mu.Lock()
		defer s.r.mu.Unlock()
		if !s.node.isAncestorOf(s.r.cursor) {
			return
		}
		s.r.cursor = s.prev
		if s.r.caseNode != nil && s.node.isAncestorOf(s.r.caseNode) {
			s.r.caseNode = nil
		}
		if s.r.listNode != nil && s.node.isAncestorOf(s.r.listNode) {
			s.r.listNode = s.enclosingList()
		}
	})
}

func (s *Scope) enclosingList() *Node {
	for n := s.prev; n != nil; n = n.parent {
		if n.Type == NodeTestList {
			return n
		}
	}
	return nil
}

func (r *Reporter) push(header string, nodeType NodeType) *Scope {
	prev := r.cursor
	r.cursor = prev.addChild(header, "", StatusInfo, nodeType, r.now())
	return &Scope{r: r, node: r.cursor, prev: prev}
}

// AddStepGroup opens a group of steps under the cursor.
func (r *Reporter) AddStepGroup(name string) *Scope {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.push(name, NodeStep)
	r.logInfo("[Test Step Group] " + name)
	return s
}

// EndStepGroup moves the cursor to its parent. At the root it does nothing.
func (r *Reporter) EndStepGroup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cursor.parent != nil {
		r.cursor = r.cursor.parent
	}
}

// AddTest opens a Case node under the cursor.
func (r *Reporter) AddTest(name string) *Scope {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.push(name, NodeCase)
	r.caseNode = s.node
	r.logInfo("[Test Case] " + name)
	return s
}

// EndTest moves the cursor to the parent of the current case, even if step
// groups inside the case were left open. Without an open case it does
// nothing.
func (r *Reporter) EndTest() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.caseNode == nil {
		return
	}
	r.cursor = r.caseNode.parent
	r.caseNode = nil
}

// AddList opens a TestList node under the cursor.
func (r *Reporter) AddList(name string) *Scope {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.push(name, NodeTestList)
	r.listNode = s.node
	r.logInfo("[Test List] " + name)
	return s
}

// EndList moves the cursor to the parent of the current list.
func (r *Reporter) EndList() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listNode == nil {
		return
	}
	r.cursor = r.listNode.parent
	r.caseNode = nil
	r.listNode = nil
	for n := r.cursor; n != nil; n = n.parent {
		if n.Type == NodeTestList {
			r.listNode = n
			break
		}
	}
}

// Add records a step under the cursor. When the status matches an enabled
// halt switch the call blocks until Resume is called, the halt timeout
// expires or the reporter's context is done.
func (r *Reporter) Add(status Status, headline, message string) {
	_ = r.AddContext(context.Background(), status, headline, message)
}

// AddContext is Add with a context that can abort a halt wait. It returns
// the context error in that case.
func (r *Reporter) AddContext(ctx context.Context, status Status, headline, message string) error {
	r.mu.Lock()
	node := r.cursor.addChild(headline, message, status, NodeStep, r.now())
	r.logInfo("Step: " + headline)
	if message != "" {
		r.logInfo("Message: " + message)
	}
	halt := r.halt.matches(status)
	r.mu.Unlock()

	if !halt {
		return nil
	}
	return r.waitHalt(ctx, node)
}

// EventGroup is a fixed node that can receive steps from any goroutine
// without touching the cursor. Parallel modules report through one.
type EventGroup struct {
	r    *Reporter
	node *Node
	log  *slog.Logger
}

// AddEventGroup creates an event group under the cursor.
func (r *Reporter) AddEventGroup(name string) *EventGroup {
	r.mu.Lock()
	defer r.mu.Unlock()

	node := r.cursor.addChild(name, "", StatusInfo, NodeStep, r.now())
	r.logInfo("[Event] " + name)
	return &EventGroup{r: r, node: node, log: r.activeLogger()}
}

// Add records a step in the group. Event steps never halt.
func (g *EventGroup) Add(status Status, headline, message string) {
	g.r.mu.Lock()
	defer g.r.mu.Unlock()

	g.node.addChild(headline, message, status, NodeStep, g.r.now())
	if g.log != nil {
		g.log.Info(headline, "status", status.String())
	} else {
		logging.Info("Reporter", "%s", headline)
	}
}

// Node returns the group's node.
func (g *EventGroup) Node() *Node {
	return g.node
}

// SetCaseLogger attaches a logger that receives narration until cleared.
// Passing nil detaches it.
func (r *Reporter) SetCaseLogger(l *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caseLogger = l
}

func (r *Reporter) activeLogger() *slog.Logger {
	if r.caseLogger != nil {
		return r.caseLogger
	}
	return r.logger
}

// logInfo must be called with r.mu held.
func (r *Reporter) logInfo(msg string) {
	if l := r.activeLogger(); l != nil {
		l.Info(msg)
		return
	}
	logging.Debug("Reporter", "%s", msg)
}

// Current returns the node new entries are added under.
func (r *Reporter) Current() *Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

// Root returns the live root node. Use Snapshot to read the tree while a
// run is in progress.
func (r *Reporter) Root() *Node {
	return r.root
}

// Snapshot returns a deep copy of the tree.
func (r *Reporter) Snapshot() *Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.root.clone(nil)
}

// CaseStats counts cases by status.
func (r *Reporter) CaseStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.root.CaseStats()
}

// LeafStats counts leaf steps by status.
func (r *Reporter) LeafStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.root.LeafStats()
}

// SearchResult returns the status recorded for a case or list name.
func (r *Reporter) SearchResult(name string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.root.Find(name)
}
