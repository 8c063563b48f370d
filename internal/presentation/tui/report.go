package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/controller"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/node"
)

// Report builds a markdown summary of a layout: its outline and, when given,
// a validation table.
func Report(name string, root *node.View, validation *controller.ValidationReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", name)

	if root != nil {
		sb.WriteString("## Outline\n\n")
		outline(&sb, root, 0)
		sb.WriteString("\n")
	}

	if validation != nil {
		sb.WriteString("## Validation\n\n")
		if len(validation.Results) == 0 {
			sb.WriteString("_No data-bound nodes._\n")
			return sb.String()
		}
		sb.WriteString("| Source | Node | Result |\n|---|---|---|\n")
		for _, r := range validation.Results {
			result := "ok"
			if r.Error.Failed() {
				result = "**failed** " + describe(&r.Error)
			}
			fmt.Fprintf(&sb, "| `%s` | %s | %s |\n", r.Source, r.NodeID, result)
		}
		if validation.OK {
			sb.WriteString("\nAll values are valid.\n")
		}
	}
	return sb.String()
}

func outline(sb *strings.Builder, v *node.View, depth int) {
	pad := strings.Repeat("  ", depth)
	line := "**" + Label(v) + "**"
	if ds, ok := v.Schema.Datasource(); ok {
		line += " `" + ds.Source + "`"
	}
	fmt.Fprintf(sb, "%s- %s\n", pad, line)
	for _, c := range v.Children {
		if c.View != nil {
			outline(sb, c.View, depth+1)
			continue
		}
		fmt.Fprintf(sb, "%s  - _row_\n", pad)
		for _, cell := range c.Row {
			outline(sb, cell, depth+2)
		}
	}
}

// describe renders an *ErrorInfo; anything else is empty.
func describe(v any) string {
	info, ok := v.(*domain.ErrorInfo)
	if !ok || info == nil || info.IsZero() {
		return ""
	}
	var parts []string
	if info.Status != 0 {
		parts = append(parts, fmt.Sprintf("status %d", info.Status))
	}
	if info.Code != "" {
		parts = append(parts, info.Code)
	}
	if info.Valid != nil && !*info.Valid {
		parts = append(parts, "invalid")
	}
	return strings.Join(parts, " ")
}
