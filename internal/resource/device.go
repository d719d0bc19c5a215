package resource

import (
	"fmt"
	"sort"
)

// PortRef addresses a port by device and port name. Ports refer to their
// parent and their remote peers only through PortRefs, never by pointer.
type PortRef struct {
	Device string `json:"device"`
	Port   string `json:"port"`
}

func (r PortRef) String() string {
	return r.Device + ":" + r.Port
}

// Port is a connection point on a device.
type Port struct {
	// Device is the parent device name.
	Device      string
	Name        string
	Type        string
	Description string
	Remotes     []PortRef
}

// Ref returns the address of this port.
func (p *Port) Ref() PortRef {
	return PortRef{Device: p.Device, Port: p.Name}
}

// Device is a single test resource. Properties holds free-form attributes
// such as version or management addresses.
type Device struct {
	Name        string
	Type        string
	Description string
	PreConnect  bool
	Properties  map[string]any
	Ports       map[string]*Port
}

// NewDevice creates an empty device.
func NewDevice(name, deviceType string) *Device {
	return &Device{
		Name:       name,
		Type:       deviceType,
		Properties: make(map[string]any),
		Ports:      make(map[string]*Port),
	}
}

// AddPort creates a port on the device. Port names are unique per device.
func (d *Device) AddPort(name, portType, description string) (*Port, error) {
	if name == "" {
		return nil, fmt.Errorf("port name cannot be empty")
	}
	if _, exists := d.Ports[name]; exists {
		return nil, &Error{Kind: KindDuplicate, Name: fmt.Sprintf("port %s on device %s", name, d.Name)}
	}
	p := &Port{
		Device:      d.Name,
		Name:        name,
		Type:        portType,
		Description: description,
	}
	d.Ports[name] = p
	return p, nil
}

// PortNames returns the port names in sorted order.
func (d *Device) PortNames() []string {
	names := make([]string, 0, len(d.Ports))
	for name := range d.Ports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Property returns a property value as a string, or "" when unset.
func (d *Device) Property(key string) string {
	v, ok := d.Properties[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Topology is a read-only lookup view over a pool's devices.
type Topology map[string]*Device

// Port resolves a PortRef.
func (t Topology) Port(ref PortRef) (*Port, bool) {
	d, ok := t[ref.Device]
	if !ok {
		return nil, false
	}
	p, ok := d.Ports[ref.Port]
	return p, ok
}
