package resource

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Constraint is a predicate over a device with a human-readable description.
type Constraint interface {
	IsMeet(d *Device) bool
	Description() string
}

// ConnectionConstraint additionally selects the connections of a device
// that satisfy it.
type ConnectionConstraint interface {
	Constraint
	GetConnection(topo Topology, d *Device) []Connection
}

// Connection is one link from a local port to a remote port.
type Connection struct {
	Local  PortRef
	Remote PortRef
}

func (c Connection) String() string {
	return c.Local.String() + " -> " + c.Remote.String()
}

// TypeConstraint matches devices of a given type.
type TypeConstraint struct {
	Type string
}

func (c TypeConstraint) IsMeet(d *Device) bool {
	return d.Type == c.Type
}

func (c TypeConstraint) Description() string {
	return fmt.Sprintf("device type must be %s", c.Type)
}

// PropertyConstraint matches devices whose property Key renders as Value.
type PropertyConstraint struct {
	Key   string
	Value string
}

func (c PropertyConstraint) IsMeet(d *Device) bool {
	if _, ok := d.Properties[c.Key]; !ok {
		return false
	}
	return d.Property(c.Key) == c.Value
}

func (c PropertyConstraint) Description() string {
	return fmt.Sprintf("property %s must be %s", c.Key, c.Value)
}

// VersionConstraint matches devices whose "version" property satisfies a
// semantic version range such as ">= 12.1" or "~1.2". Devices without a
// parseable version never match.
type VersionConstraint struct {
	expr       string
	constraint *semver.Constraints
}

// NewVersionConstraint parses a version range expression.
func NewVersionConstraint(expr string) (*VersionConstraint, error) {
	c, err := semver.NewConstraint(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid version constraint %q: %w", expr, err)
	}
	return &VersionConstraint{expr: expr, constraint: c}, nil
}

func (c *VersionConstraint) IsMeet(d *Device) bool {
	raw := d.Property("version")
	if raw == "" {
		return false
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return false
	}
	return c.constraint.Check(v)
}

func (c *VersionConstraint) Description() string {
	return fmt.Sprintf("version must satisfy %s", c.expr)
}

// PortConnection selects links leaving ports of LocalType towards devices of
// RemoteDeviceType. Empty fields match anything.
type PortConnection struct {
	LocalType        string
	RemoteDeviceType string
}

func (c PortConnection) GetConnection(topo Topology, d *Device) []Connection {
	var out []Connection
	for _, name := range d.PortNames() {
		port := d.Ports[name]
		if c.LocalType != "" && port.Type != c.LocalType {
			continue
		}
		for _, ref := range port.Remotes {
			remote, ok := topo[ref.Device]
			if !ok {
				continue
			}
			if c.RemoteDeviceType != "" && remote.Type != c.RemoteDeviceType {
				continue
			}
			out = append(out, Connection{Local: port.Ref(), Remote: ref})
		}
	}
	return out
}

// IsMeet reports whether the device has at least one qualifying port. Remote
// device types are not checked without a topology.
func (c PortConnection) IsMeet(d *Device) bool {
	for _, port := range d.Ports {
		if c.LocalType != "" && port.Type != c.LocalType {
			continue
		}
		if len(port.Remotes) > 0 {
			return true
		}
	}
	return false
}

func (c PortConnection) Description() string {
	local, remote := c.LocalType, c.RemoteDeviceType
	if local == "" {
		local = "any"
	}
	if remote == "" {
		remote = "any"
	}
	return fmt.Sprintf("%s port connected to %s device", local, remote)
}
