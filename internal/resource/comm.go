package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"testrig/pkg/logging"
)

// CommFactory builds the communication handle (a telnet client, an HTTP
// client, ...) for a device.
type CommFactory func(d *Device) (any, error)

// Connector is implemented by handles that need an explicit connect step.
// Handles of pre_connect devices are connected right after loading.
type Connector interface {
	Connect(ctx context.Context) error
}

// CommRegistry maps device types to handle factories. It is populated at
// startup by explicit Register calls.
type CommRegistry struct {
	mu        sync.RWMutex
	factories map[string]CommFactory
}

// NewCommRegistry creates an empty registry.
func NewCommRegistry() *CommRegistry {
	return &CommRegistry{factories: make(map[string]CommFactory)}
}

// Register adds a factory for a device type.
func (r *CommRegistry) Register(deviceType string, f CommFactory) error {
	if deviceType == "" {
		return fmt.Errorf("device type cannot be empty")
	}
	if f == nil {
		return fmt.Errorf("cannot register nil comm factory for %s", deviceType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[deviceType]; exists {
		return &Error{Kind: KindDuplicate, Name: "comm factory for " + deviceType}
	}
	r.factories[deviceType] = f
	return nil
}

// Lookup returns the factory for a device type.
func (r *CommRegistry) Lookup(deviceType string) (CommFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[deviceType]
	return f, ok
}

// Types returns the registered device types, sorted.
func (r *CommRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Comm returns the communication handle of a device, creating it on first
// use. The handle is cached until the pool is reloaded or closed.
func (p *Pool) Comm(device string) (any, error) {
	d, ok := p.Device(device)
	if !ok {
		return nil, &Error{Kind: KindNotFound, Name: "device " + device}
	}

	p.commMu.Lock()
	defer p.commMu.Unlock()

	if h, ok := p.handles[device]; ok {
		return h, nil
	}
	if p.comms == nil {
		return nil, &Error{Kind: KindNotFound, Name: "comm factory for " + d.Type}
	}
	f, ok := p.comms.Lookup(d.Type)
	if !ok {
		return nil, &Error{Kind: KindNotFound, Name: "comm factory for " + d.Type}
	}
	h, err := f(d)
	if err != nil {
		return nil, fmt.Errorf("failed to create comm handle for %s: %w", device, err)
	}
	p.handles[device] = h
	return h, nil
}

// ConnectPreConnect creates the handles of all pre_connect devices and
// connects those implementing Connector. All devices are attempted; the
// returned error joins every failure.
func (p *Pool) ConnectPreConnect(ctx context.Context) error {
	var errs []error
	for _, d := range p.Devices() {
		if !d.PreConnect {
			continue
		}
		h, err := p.Comm(d.Name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if c, ok := h.(Connector); ok {
			if err := c.Connect(ctx); err != nil {
				errs = append(errs, fmt.Errorf("connect %s: %w", d.Name, err))
				continue
			}
			logging.Debug("ResourcePool", "Connected %s", d.Name)
		}
	}
	return errors.Join(errs...)
}

// Close releases every cached handle that implements io.Closer.
func (p *Pool) Close() error {
	return p.resetHandles()
}

func (p *Pool) resetHandles() error {
	p.commMu.Lock()
	handles := p.handles
	p.handles = make(map[string]any)
	p.commMu.Unlock()

	var errs []error
	for name, h := range handles {
		if c, ok := h.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}
