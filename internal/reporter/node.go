package reporter

import "time"

// Node is one entry of the result tree.
type Node struct {
	Header    string    `json:"header" yaml:"header"`
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
	Status    Status    `json:"status" yaml:"status"`
	Type      NodeType  `json:"type" yaml:"type"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Children  []*Node   `json:"children,omitempty" yaml:"children,omitempty"`

	parent *Node
}

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// addChild appends a child and applies its initial status. Children of Step
// and Case nodes are always steps.
func (n *Node) addChild(header, message string, status Status, nodeType NodeType, ts time.Time) *Node {
	if n.Type == NodeStep || n.Type == NodeCase {
		nodeType = NodeStep
	}
	child := &Node{
		Header:    header,
		Message:   message,
		Status:    StatusInfo,
		Type:      nodeType,
		Timestamp: ts,
		parent:    n,
	}
	n.Children = append(n.Children, child)
	child.setStatus(status)
	return child
}

// setStatus records status on this node unless the node already holds a
// sticky status, then hands the same status to the parent. Other nodes
// neither record nor forward, and INFO never changes anything.
func (n *Node) setStatus(status Status) {
	if status == StatusInfo {
		return
	}
	for node := n; node != nil && node.Type != NodeOther; node = node.parent {
		if !node.Status.sticky() {
			node.Status = status
		}
	}
}

// isAncestorOf reports whether n is other or one of its ancestors.
func (n *Node) isAncestorOf(other *Node) bool {
	for node := other; node != nil; node = node.parent {
		if node == n {
			return true
		}
	}
	return false
}

// clone deep-copies the subtree, re-linking parents inside the copy.
func (n *Node) clone(parent *Node) *Node {
	c := &Node{
		Header:    n.Header,
		Message:   n.Message,
		Status:    n.Status,
		Type:      n.Type,
		Timestamp: n.Timestamp,
		parent:    parent,
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, 0, len(n.Children))
		for _, child := range n.Children {
			c.Children = append(c.Children, child.clone(c))
		}
	}
	return c
}

// Find returns the status of the first Case or TestList node below n whose
// header equals name. Step subtrees are not searched.
func (n *Node) Find(name string) (Status, bool) {
	if n.Type == NodeStep {
		return 0, false
	}
	for _, child := range n.Children {
		if child.Type != NodeStep && child.Header == name {
			return child.Status, true
		}
		if s, ok := child.Find(name); ok {
			return s, true
		}
	}
	return 0, false
}
