package reporter

import (
	"fmt"
	"strings"
)

// Status is the outcome recorded on a result node. Statuses are grouped in
// severity buckets rather than totally ordered; INFO and PASS are the only
// statuses a node can still leave.
type Status int

const (
	StatusInfo      Status = 1
	StatusPass      Status = 2
	StatusFail      Status = 3
	StatusStop      Status = 4
	StatusException Status = 8
	StatusWarning   Status = 16
	StatusError     Status = 32
)

var statusNames = map[Status]string{
	StatusInfo:      "INFO",
	StatusPass:      "PASS",
	StatusFail:      "FAIL",
	StatusStop:      "STOP",
	StatusException: "EXCEPTION",
	StatusWarning:   "WARNING",
	StatusError:     "ERROR",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS(%d)", int(s))
}

// ParseStatus converts a status name (case-insensitive) back to a Status.
func ParseStatus(name string) (Status, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for s, n := range statusNames {
		if n == upper {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}

// MarshalText renders the status name in JSON and YAML exports.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// sticky reports whether a node in this status keeps it against later
// updates.
func (s Status) sticky() bool {
	return s != StatusInfo && s != StatusPass
}

// NodeType tags what a result node represents.
type NodeType int

const (
	NodeStep     NodeType = 1
	NodeCase     NodeType = 2
	NodeTestList NodeType = 3
	NodeOther    NodeType = 256
)

func (t NodeType) String() string {
	switch t {
	case NodeStep:
		return "Step"
	case NodeCase:
		return "Case"
	case NodeTestList:
		return "TestList"
	case NodeOther:
		return "Other"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

func (t NodeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *NodeType) UnmarshalText(text []byte) error {
	for _, v := range []NodeType{NodeStep, NodeCase, NodeTestList, NodeOther} {
		if strings.EqualFold(v.String(), string(text)) {
			*t = v
			return nil
		}
	}
	return fmt.Errorf("unknown node type %q", string(text))
}
