package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/node"
)

// Overlay highlights nodes on the graph.
type Overlay struct {
	// Matched holds the node ids returned by a search.
	Matched []string
}

// GenerateMermaid produces a Mermaid flowchart of a layout tree.
// Shapes:
// - Root: ((Circle))
// - Bound to a datasource: [/Parallelogram/]
// - Default: [Rectangle]
// Rows become subgraphs and nodes carrying an error are styled as failed.
func GenerateMermaid(root *node.View, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if root == nil {
		return sb.String()
	}

	var failed []string
	rows := 0
	var walk func(v *node.View, depth int)
	walk = func(v *node.View, depth int) {
		id := sanitizeMermaidID(v.ID)
		opener, closer := "[", "]"
		switch {
		case depth == 0:
			opener, closer = "((", "))"
		case v.Schema[domain.KeyDatasource] != nil:
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "%s%s%s\"%s\"%s\n", indent(depth), id, opener, label(v), closer)
		if v.Error != nil || v.DataError != nil {
			failed = append(failed, id)
		}

		for _, c := range v.Children {
			if c.View != nil {
				walk(c.View, depth+1)
				fmt.Fprintf(&sb, "%s%s --> %s\n", indent(depth), id, sanitizeMermaidID(c.View.ID))
				continue
			}
			rows++
			rowID := fmt.Sprintf("%s_row%d", id, rows)
			fmt.Fprintf(&sb, "%ssubgraph %s [\"row %d\"]\n", indent(depth), rowID, rows)
			for _, cell := range c.Row {
				walk(cell, depth+1)
			}
			fmt.Fprintf(&sb, "%send\n", indent(depth))
			fmt.Fprintf(&sb, "%s%s -.-> %s\n", indent(depth), id, rowID)
		}
	}
	walk(root, 0)

	if len(failed) > 0 || (overlay != nil && len(overlay.Matched) > 0) {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef failed fill:#ffebee,stroke:#c62828,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef matched fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		for _, id := range failed {
			fmt.Fprintf(&sb, "    class %s failed;\n", id)
		}
		if overlay != nil {
			seen := make(map[string]bool)
			for _, id := range overlay.Matched {
				safe := sanitizeMermaidID(id)
				if safe != "" && !seen[safe] {
					seen[safe] = true
					fmt.Fprintf(&sb, "    class %s matched;\n", safe)
				}
			}
		}
	}
	return sb.String()
}

func indent(depth int) string {
	return strings.Repeat("    ", depth+1)
}

// label prefers the schema id, then a title, then the node id.
func label(v *node.View) string {
	s := v.Schema.ID()
	if s == "" {
		if t, ok := v.Schema["title"].(string); ok {
			s = t
		}
	}
	if s == "" {
		s = v.ID
	}
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", ":", "_", " ", "_")
	return r.Replace(id)
}
