package reporter

// Stats counts nodes per status bucket. INFO and STOP are not counted.
type Stats struct {
	Pass      int `json:"pass" yaml:"pass"`
	Fail      int `json:"fail" yaml:"fail"`
	Error     int `json:"error" yaml:"error"`
	Warning   int `json:"warning" yaml:"warning"`
	Exception int `json:"exception" yaml:"exception"`
}

// Total is the sum of all buckets.
func (s Stats) Total() int {
	return s.Pass + s.Fail + s.Error + s.Warning + s.Exception
}

// Failed reports whether any fail, error or exception was counted.
func (s Stats) Failed() bool {
	return s.Fail+s.Error+s.Exception > 0
}

func (s *Stats) count(status Status) {
	switch status {
	case StatusPass:
		s.Pass++
	case StatusFail:
		s.Fail++
	case StatusError:
		s.Error++
	case StatusWarning:
		s.Warning++
	case StatusException:
		s.Exception++
	}
}

func (s *Stats) add(o Stats) {
	s.Pass += o.Pass
	s.Fail += o.Fail
	s.Error += o.Error
	s.Warning += o.Warning
	s.Exception += o.Exception
}

// CaseStats counts Case nodes by their own status. Nodes above a case are
// only traversed; nodes below a case are not visited.
func (n *Node) CaseStats() Stats {
	var s Stats
	if n.Type == NodeCase {
		s.count(n.Status)
		return s
	}
	for _, child := range n.Children {
		s.add(child.CaseStats())
	}
	return s
}

// LeafStats counts leaf nodes by status, giving one unit per executed
// check regardless of how the checks are grouped into cases.
func (n *Node) LeafStats() Stats {
	var s Stats
	if n.IsLeaf() {
		s.count(n.Status)
		return s
	}
	for _, child := range n.Children {
		s.add(child.LeafStats())
	}
	return s
}
