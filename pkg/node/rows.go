package node

import (
	"strconv"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// expandRows turns the "$children" template into one row per element of the
// bound array: children = data.map(row => template.map(clone)). Entries that
// declare a datasource get every "$" in their string values replaced by the
// row index and "_index" set to it.
func (n *UINode) expandRows(live domain.Schema, tpl []any) {
	n.liveChildren = true

	if n.dataNode == nil {
		return
	}
	rows, ok := n.dataNode.Data().([]any)
	if !ok {
		return
	}

	children := make([]any, len(rows))
	for i := range rows {
		row := make([]any, len(tpl))
		for j, entry := range tpl {
			c := domain.DeepCopy(entry)
			if s, ok := domain.AsSchema(c); ok {
				if _, bound := s.Datasource(); bound {
					substituteRow(s, strconv.Itoa(i))
					s[domain.KeyRowIndex] = i
				}
			}
			row[j] = c
		}
		children[i] = row
	}
	live[domain.KeyChildren] = children
}

// ExpandRows returns the row-expanded children for a template and its data
// without materializing nodes.
func ExpandRows(tpl []any, data []any) []any {
	n := &UINode{}
	n.dataNode = &DataNode{data: data}
	live := domain.Schema{}
	n.expandRows(live, tpl)
	children, _ := live[domain.KeyChildren].([]any)
	return children
}

func substituteRow(v any, index string) any {
	switch t := v.(type) {
	case string:
		return strings.ReplaceAll(t, domain.RowToken, index)
	case domain.Schema:
		for k, val := range t {
			t[k] = substituteRow(val, index)
		}
		return t
	case map[string]any:
		for k, val := range t {
			t[k] = substituteRow(val, index)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = substituteRow(val, index)
		}
		return t
	default:
		return v
	}
}
