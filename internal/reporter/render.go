package reporter

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const (
	// TimestampLayout is used for node timestamps in text output.
	TimestampLayout = "2006-01-02 15:04:05"

	lineWidth = 120
)

// Text renders the subtree as indented text. Case and step lines are padded
// with dashes to a fixed width and end with the status name.
func (n *Node) Text() string {
	var b strings.Builder
	n.writeText(&b, 0)
	return b.String()
}

func (n *Node) writeText(b *strings.Builder, indent int) {
	prefix := strings.Repeat("+", indent*2)

	line := prefix + "[" + n.Timestamp.Format(TimestampLayout) + "]"
	switch n.Type {
	case NodeCase:
		line += "[TestCase]"
	case NodeTestList:
		line += "[TestList]"
	}
	line += n.Header

	if n.Type == NodeCase || n.Type == NodeStep {
		if width := utf8.RuneCountInString(line); width < lineWidth {
			line += strings.Repeat("-", lineWidth-width)
		}
		line += n.Status.String()
	}
	b.WriteString(line)
	b.WriteByte('\n')

	if n.Message != "" {
		b.WriteString(prefix)
		b.WriteString("Description: ")
		b.WriteString(n.Message)
		b.WriteByte('\n')
	}

	for _, child := range n.Children {
		child.writeText(b, indent+1)
	}
}

// Text renders the whole tree.
func (r *Reporter) Text() string {
	return r.Snapshot().Text()
}

// JSON renders the whole tree as indented JSON.
func (r *Reporter) JSON() ([]byte, error) {
	return json.MarshalIndent(r.Snapshot(), "", "  ")
}

// YAML renders the whole tree as YAML.
func (r *Reporter) YAML() ([]byte, error) {
	return yaml.Marshal(r.Snapshot())
}
