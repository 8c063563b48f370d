package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/arbor/pkg/node"
	"github.com/muesli/termenv"
)

// TreePrinter writes a layout tree with box-drawing guides.
type TreePrinter struct {
	w       io.Writer
	profile termenv.Profile
}

// NewTreePrinter creates a printer. Use termenv.Ascii to disable colors.
func NewTreePrinter(w io.Writer, p termenv.Profile) *TreePrinter {
	return &TreePrinter{w: w, profile: p}
}

// Print writes root and its descendants.
func (p *TreePrinter) Print(root *node.View) {
	if root == nil {
		return
	}
	fmt.Fprintln(p.w, p.line(root))
	p.children(root, "")
}

func (p *TreePrinter) children(v *node.View, prefix string) {
	for i, c := range v.Children {
		last := i == len(v.Children)-1
		branch, next := "├── ", "│   "
		if last {
			branch, next = "└── ", "    "
		}
		if c.View != nil {
			fmt.Fprintln(p.w, prefix+branch+p.line(c.View))
			p.children(c.View, prefix+next)
			continue
		}
		fmt.Fprintln(p.w, prefix+branch+p.paint(fmt.Sprintf("row (%d)", len(c.Row)), "#a78bfa"))
		row := &node.View{}
		for _, cell := range c.Row {
			row.Children = append(row.Children, node.ChildView{View: cell})
		}
		p.children(row, prefix+next)
	}
}

func (p *TreePrinter) line(v *node.View) string {
	var sb strings.Builder
	sb.WriteString(p.paint(Label(v), "#e5e7eb"))
	if ds, ok := v.Schema.Datasource(); ok {
		sb.WriteString(" ")
		sb.WriteString(p.paint("<- "+ds.Source, "#60a5fa"))
		if v.Data != nil {
			sb.WriteString(" = ")
			sb.WriteString(compact(v.Data))
		}
	}
	for _, info := range []any{v.Error, v.DataError} {
		if s := describe(info); s != "" {
			sb.WriteString(" ")
			sb.WriteString(p.paint("! "+s, "#f87171"))
		}
	}
	return sb.String()
}

func (p *TreePrinter) paint(s, color string) string {
	return termenv.String(s).Foreground(p.profile.Color(color)).String()
}

// Label names a node by schema id, then title, then node id.
func Label(v *node.View) string {
	if id := v.Schema.ID(); id != "" {
		return id
	}
	if t, ok := v.Schema["title"].(string); ok && t != "" {
		return t
	}
	return v.ID
}

func compact(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	if len(b) > 60 {
		return string(b[:57]) + "..."
	}
	return string(b)
}
