package resource

import (
	"fmt"
	"sync"
	"time"

	"testrig/pkg/logging"
)

// Pool is a set of test devices and their connections, optionally backed by
// a resource file that can be reserved by one owner at a time.
//
// The pool guards its own maps. Devices and ports handed out by the pool are
// shared and must be treated as read-only by cases and modules; topology
// changes go through AddDevice and Link.
type Pool struct {
	mu       sync.RWMutex
	devices  map[string]*Device
	order    []string
	info     map[string]any
	file     string
	owner    string
	reserved *Reservation

	comms   *CommRegistry
	commMu  sync.Mutex
	handles map[string]any

	now func() time.Time
}

// Option configures a Pool.
type Option func(*Pool)

// WithCommRegistry sets the registry used by Comm to build device handles.
func WithCommRegistry(r *CommRegistry) Option {
	return func(p *Pool) { p.comms = r }
}

// WithClock overrides the clock used for reservation timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

// NewPool creates an empty, unbacked pool.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		devices: make(map[string]*Device),
		info:    make(map[string]any),
		handles: make(map[string]any),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load replaces the pool contents with the given resource file. It fails with
// KindLoad for a missing or malformed file and with KindNotReleased when the
// file is reserved by someone other than owner. On failure the pool keeps its
// previous contents.
func (p *Pool) Load(path, owner string) error {
	s, err := readFile(path)
	if err != nil {
		return err
	}
	if s.reserved != nil && s.reserved.Owner != owner {
		return &Error{Kind: KindNotReleased, File: path, Owner: s.reserved.Owner}
	}

	p.mu.Lock()
	p.install(s)
	p.file = path
	p.owner = owner
	p.mu.Unlock()

	if err := p.resetHandles(); err != nil {
		logging.Warn("ResourcePool", "Closing previous comm handles: %v", err)
	}
	logging.Info("ResourcePool", "Loaded %d devices from %s", len(s.devices), path)
	return nil
}

// Save writes the pool to path. The pool's backing file is not changed.
func (p *Pool) Save(path string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return writeFile(path, p.snapshotLocked())
}

// Reserve re-reads the backing file, records a reservation for the current
// owner and writes it back. Between the read and the write another process
// may reserve the same file; the reservation is advisory only. The devices
// in memory are kept as loaded and the pool's reservation changes only once
// the file has been written.
func (p *Pool) Reserve() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.rereadLocked()
	if err != nil {
		return err
	}
	s.reserved = &Reservation{
		Owner:     p.owner,
		Timestamp: p.now().Format(ReservationTimeLayout),
	}
	if err := writeFile(p.file, s); err != nil {
		return err
	}
	p.reserved = s.reserved
	logging.Info("ResourcePool", "Reserved %s for %s", p.file, p.owner)
	return nil
}

// Release re-reads the backing file, clears the reservation and writes it
// back. A reservation held by another owner cannot be released.
func (p *Pool) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.rereadLocked()
	if err != nil {
		return err
	}
	s.reserved = nil
	if err := writeFile(p.file, s); err != nil {
		return err
	}
	p.reserved = nil
	logging.Info("ResourcePool", "Released %s", p.file)
	return nil
}

// rereadLocked returns the current contents of the backing file, failing
// when another owner holds it.
func (p *Pool) rereadLocked() (*snapshot, error) {
	if p.file == "" {
		return nil, &Error{Kind: KindNoFile}
	}
	s, err := readFile(p.file)
	if err != nil {
		return nil, err
	}
	if s.reserved != nil && s.reserved.Owner != p.owner {
		return nil, &Error{Kind: KindNotReleased, File: p.file, Owner: s.reserved.Owner}
	}
	return s, nil
}

func (p *Pool) install(s *snapshot) {
	p.devices = s.devices
	p.order = s.order
	p.info = s.info
	p.reserved = s.reserved
}

func (p *Pool) snapshotLocked() *snapshot {
	return &snapshot{
		devices:  p.devices,
		order:    p.order,
		info:     p.info,
		reserved: p.reserved,
	}
}

// File returns the backing file, or "" before the first successful Load.
func (p *Pool) File() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.file
}

// Owner returns the identity the pool was loaded with.
func (p *Pool) Owner() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.owner
}

// Reservation returns a copy of the current reservation, or nil.
func (p *Pool) Reservation() *Reservation {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.reserved == nil {
		return nil
	}
	r := *p.reserved
	return &r
}

// Info returns a copy of the free-form information record.
func (p *Pool) Info() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]any, len(p.info))
	for k, v := range p.info {
		out[k] = v
	}
	return out
}

// Device returns a device by name.
func (p *Pool) Device(name string) (*Device, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.devices[name]
	return d, ok
}

// Devices returns all devices in topology order.
func (p *Pool) Devices() []*Device {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Device, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.devices[name])
	}
	return out
}

// Topology returns a lookup view of the current devices.
func (p *Pool) Topology() Topology {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t := make(Topology, len(p.devices))
	for name, d := range p.devices {
		t[name] = d
	}
	return t
}

// AddDevice adds a device to the in-memory topology.
func (p *Pool) AddDevice(d *Device) error {
	if d == nil || d.Name == "" {
		return fmt.Errorf("device must have a name")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.devices[d.Name]; exists {
		return &Error{Kind: KindDuplicate, Name: "device " + d.Name}
	}
	if d.Ports == nil {
		d.Ports = make(map[string]*Port)
	}
	if d.Properties == nil {
		d.Properties = make(map[string]any)
	}
	p.devices[d.Name] = d
	p.order = append(p.order, d.Name)
	return nil
}

// Link connects two ports in both directions.
func (p *Pool) Link(a, b PortRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	topo := Topology(p.devices)
	pa, ok := topo.Port(a)
	if !ok {
		return &Error{Kind: KindNotFound, Name: "port " + a.String()}
	}
	pb, ok := topo.Port(b)
	if !ok {
		return &Error{Kind: KindNotFound, Name: "port " + b.String()}
	}
	pa.Remotes = appendRef(pa.Remotes, b)
	pb.Remotes = appendRef(pb.Remotes, a)
	return nil
}

func appendRef(refs []PortRef, ref PortRef) []PortRef {
	for _, r := range refs {
		if r == ref {
			return refs
		}
	}
	return append(refs, ref)
}

// CollectDevice returns every device of the given type that satisfies all
// constraints, in topology order. An empty type matches any device.
func (p *Pool) CollectDevice(deviceType string, constraints ...Constraint) []*Device {
	var out []*Device
	for _, d := range p.Devices() {
		if deviceType != "" && d.Type != deviceType {
			continue
		}
		if meetsAll(d, constraints) {
			out = append(out, d)
		}
	}
	return out
}

func meetsAll(d *Device, constraints []Constraint) bool {
	for _, c := range constraints {
		if !c.IsMeet(d) {
			return false
		}
	}
	return true
}

// CollectConnectionRoute gathers the connections each constraint selects for
// the named device. If any constraint selects nothing the call fails with
// KindNotMeetConstraint, listing every constraint and the failing ones.
func (p *Pool) CollectConnectionRoute(device string, constraints ...ConnectionConstraint) ([]Connection, error) {
	topo := p.Topology()
	d, ok := topo[device]
	if !ok {
		return nil, &Error{Kind: KindNotFound, Name: "device " + device}
	}

	var (
		out    []Connection
		all    []string
		failed []string
	)
	for _, c := range constraints {
		all = append(all, c.Description())
		conns := c.GetConnection(topo, d)
		if len(conns) == 0 {
			failed = append(failed, c.Description())
			continue
		}
		out = append(out, conns...)
	}
	if len(failed) > 0 {
		return nil, &Error{
			Kind:        KindNotMeetConstraint,
			Name:        device,
			Constraints: all,
			Failed:      failed,
		}
	}
	return out, nil
}
