package resource

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sigs.k8s.io/yaml"
)

// ReservationTimeLayout is the timestamp format stored in reservations.
const ReservationTimeLayout = "2006/01/02 15:04:05"

// Reservation marks a resource file as in use by an owner. It is advisory:
// nothing stops another writer from ignoring it.
type Reservation struct {
	Owner     string `json:"owner"`
	Timestamp string `json:"timestamp"`
}

// Time parses the reservation timestamp in local time.
func (r *Reservation) Time() (time.Time, error) {
	return time.ParseInLocation(ReservationTimeLayout, r.Timestamp, time.Local)
}

type fileModel struct {
	Devices  map[string]deviceModel `json:"devices"`
	Info     map[string]any         `json:"info,omitempty"`
	Reserved *Reservation           `json:"reserved"`
}

type deviceModel struct {
	Type        string               `json:"type"`
	Description string               `json:"description,omitempty"`
	PreConnect  bool                 `json:"pre_connect,omitempty"`
	Properties  map[string]any       `json:"properties,omitempty"`
	Ports       map[string]portModel `json:"ports"`
}

type portModel struct {
	Parent      string    `json:"parent,omitempty"`
	Type        string    `json:"type,omitempty"`
	Description string    `json:"description,omitempty"`
	RemotePorts []PortRef `json:"remote_ports"`
}

// snapshot is a fully wired topology decoded from disk.
type snapshot struct {
	devices  map[string]*Device
	order    []string
	info     map[string]any
	reserved *Reservation
}

// readFile decodes a resource file (JSON or YAML) into a snapshot. Devices and
// ports are created first; remote references are wired in a second pass
// because a port may point at a device that appears later in the file.
func readFile(path string) (*snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: KindLoad, File: path, Err: err}
	}

	var m fileModel
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &Error{Kind: KindLoad, File: path, Err: err}
	}
	if m.Devices == nil {
		return nil, &Error{Kind: KindLoad, File: path, Err: fmt.Errorf("missing devices section")}
	}

	s := &snapshot{
		devices:  make(map[string]*Device, len(m.Devices)),
		info:     m.Info,
		reserved: m.Reserved,
	}
	if s.info == nil {
		s.info = make(map[string]any)
	}

	for name, dm := range m.Devices {
		d := NewDevice(name, dm.Type)
		d.Description = dm.Description
		d.PreConnect = dm.PreConnect
		for k, v := range dm.Properties {
			d.Properties[k] = v
		}
		for portName, pm := range dm.Ports {
			if _, err := d.AddPort(portName, pm.Type, pm.Description); err != nil {
				return nil, &Error{Kind: KindLoad, File: path, Err: err}
			}
		}
		s.devices[name] = d
		s.order = append(s.order, name)
	}
	sort.Strings(s.order)

	topo := Topology(s.devices)
	for name, dm := range m.Devices {
		for portName, pm := range dm.Ports {
			port := s.devices[name].Ports[portName]
			for _, ref := range pm.RemotePorts {
				if _, ok := topo.Port(ref); !ok {
					return nil, &Error{
						Kind: KindLoad,
						File: path,
						Err:  fmt.Errorf("port %s references unknown remote port %s", port.Ref(), ref),
					}
				}
				port.Remotes = append(port.Remotes, ref)
			}
		}
	}

	return s, nil
}

// writeFile serializes a snapshot. Files ending in .yaml or .yml are written
// as YAML, everything else as indented JSON.
func writeFile(path string, s *snapshot) error {
	m := fileModel{
		Devices:  make(map[string]deviceModel, len(s.devices)),
		Info:     s.info,
		Reserved: s.reserved,
	}
	for name, d := range s.devices {
		dm := deviceModel{
			Type:        d.Type,
			Description: d.Description,
			PreConnect:  d.PreConnect,
			Ports:       make(map[string]portModel, len(d.Ports)),
		}
		if len(d.Properties) > 0 {
			dm.Properties = d.Properties
		}
		for portName, p := range d.Ports {
			remotes := p.Remotes
			if remotes == nil {
				remotes = []PortRef{}
			}
			dm.Ports[portName] = portModel{
				Parent:      d.Name,
				Type:        p.Type,
				Description: p.Description,
				RemotePorts: remotes,
			}
		}
		m.Devices[name] = dm
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(m)
	default:
		data, err = json.MarshalIndent(m, "", "    ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode resource file %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write resource file %s: %w", path, err)
	}
	return nil
}

// ReadReservation returns the reservation recorded in a resource file, or
// nil when the file is not reserved.
func ReadReservation(path string) (*Reservation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: KindLoad, File: path, Err: err}
	}
	var m struct {
		Reserved *Reservation `json:"reserved"`
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &Error{Kind: KindLoad, File: path, Err: err}
	}
	return m.Reserved, nil
}
