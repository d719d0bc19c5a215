// Package resource implements the resource pool: the devices a test run may
// use, the ports on those devices and the links between ports.
//
// # Topology
//
// Devices are stored by name in the pool. Ports belong to a device and refer
// to their parent and to their remote peers through PortRef values (device
// name plus port name), so the graph has no pointer cycles and serializes
// directly:
//
//	{
//	  "devices": {
//	    "sw1": {
//	      "type": "switch",
//	      "properties": {"version": "12.1.0"},
//	      "ports": {
//	        "eth1": {"type": "eth", "remote_ports": [{"device": "sw2", "port": "eth1"}]}
//	      }
//	    }
//	  },
//	  "info": {"lab": "east"},
//	  "reserved": {"owner": "alice", "timestamp": "2024/05/01 10:00:00"}
//	}
//
// Links are expected to be recorded in both directions; Load does not add
// missing reverse links. Resource files may also be written in YAML.
//
// # Reservation
//
// Reserve and Release re-read the backing file, change the reservation and
// write the file back. This is a cooperative marker: there is a window
// between the read and the write in which another process can reserve the
// same file. Load refuses a file reserved by a different owner.
//
// # Selection
//
// CollectDevice filters devices by type and Constraint values.
// CollectConnectionRoute asks ConnectionConstraint values for the links of
// one device and fails with KindNotMeetConstraint if any constraint selects
// nothing.
//
// # Communication Handles
//
// A CommRegistry maps device types to factories. Pool.Comm builds a device's
// handle on first use and caches it; ConnectPreConnect connects the handles
// of devices flagged pre_connect.
//
// # Concurrency
//
// The pool is safe for concurrent use. Devices returned by the pool are
// shared: cases and parallel modules read them but do not modify them.
package resource
