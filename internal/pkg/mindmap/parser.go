// Package mindmap turns an indentation-delimited text outline, as produced
// by the generation model, into Mermaid diagram source.
package mindmap

import (
	"fmt"
	"strings"
)

// Node is one outline entry. Parent is the index into the emitted sequence
// of the nearest preceding node one level up, or -1 for roots.
type Node struct {
	ID     string
	Level  int
	Label  string
	Parent int
}

// bullet markers the model is instructed to use
const markers = "*-+"

// Parse converts outline text into an ordered node sequence.
//
// Indentation depth is floor(leadingWhitespace/2); tabs count as single
// whitespace characters. Lines that are blank, or that are only a marker,
// yield no node and do not take part in parent resolution. A node's parent
// is the most recently emitted node exactly one level up; a node with no
// such predecessor is a root regardless of its own depth.
func Parse(text string) []Node {
	// The model sometimes wraps the outline in a fenced code block.
	cleaned := strings.ReplaceAll(text, "```", "")

	var nodes []Node
	for _, line := range strings.Split(cleaned, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		level := (len(line) - len(trimmed)) / 2

		label := trimmed
		if label != "" && strings.IndexByte(markers, label[0]) >= 0 {
			label = strings.TrimLeft(label[1:], " \t")
		}
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}

		parent := -1
		if level > 0 {
			for i := len(nodes) - 1; i >= 0; i-- {
				if nodes[i].Level == level-1 {
					parent = i
					break
				}
			}
		}

		nodes = append(nodes, Node{
			ID:     fmt.Sprintf("node%d", len(nodes)),
			Level:  level,
			Label:  escapeLabel(label),
			Parent: parent,
		})
	}
	return nodes
}

// escapeLabel neutralises characters that are significant in Mermaid
// syntax; labels are free-form model output and must not break the diagram.
func escapeLabel(label string) string {
	r := strings.NewReplacer(
		`"`, `\"`,
		"[", "(",
		"]", ")",
		"<", "&lt;",
		">", "&gt;",
	)
	return r.Replace(label)
}
