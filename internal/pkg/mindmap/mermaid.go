package mindmap

import (
	"fmt"
	"strings"
)

// ToFlowchart renders nodes as a flat `graph TD` description: one labelled
// box statement per node, immediately followed by the edge from its parent.
// Output is byte-stable for identical input.
func ToFlowchart(nodes []Node) string {
	var b strings.Builder
	b.WriteString("graph TD;\n")
	for _, n := range nodes {
		fmt.Fprintf(&b, "  %s[\"%s\"];\n", n.ID, n.Label)
		if n.Parent >= 0 {
			fmt.Fprintf(&b, "  %s --> %s;\n", nodes[n.Parent].ID, n.ID)
		}
	}
	return b.String()
}

// implicit root label used when the outline never reaches depth 0
const fallbackRoot = "アイデア"

// ToMindmap renders nodes in Mermaid's nested `mindmap` dialect. The single
// depth-0 node becomes the root marker; deeper nodes are indented two spaces
// per level with their identifier inline.
//
// An outline whose first line is already indented has no depth-0 node; a
// synthetic root is inserted and every node shifts one level deeper, so the
// diagram always has exactly one root.
func ToMindmap(nodes []Node) string {
	var b strings.Builder
	b.WriteString("mindmap\n")
	if len(nodes) == 0 {
		fmt.Fprintf(&b, "  root((%s))\n", fallbackRoot)
		return b.String()
	}

	shift := 0
	rest := nodes
	if nodes[0].Level == 0 && countRoots(nodes) == 1 {
		fmt.Fprintf(&b, "  root((%s))\n", nodes[0].Label)
		rest = nodes[1:]
	} else {
		fmt.Fprintf(&b, "  root((%s))\n", fallbackRoot)
		// normalize so the shallowest node sits directly under the root
		shift = 1 - minLevel(rest)
	}

	for _, n := range rest {
		indent := strings.Repeat("  ", n.Level+shift+1)
		fmt.Fprintf(&b, "%s%s[%s]\n", indent, n.ID, n.Label)
	}
	return b.String()
}

func countRoots(nodes []Node) int {
	count := 0
	for _, n := range nodes {
		if n.Level == 0 {
			count++
		}
	}
	return count
}

func minLevel(nodes []Node) int {
	min := 0
	for i, n := range nodes {
		if i == 0 || n.Level < min {
			min = n.Level
		}
	}
	return min
}
