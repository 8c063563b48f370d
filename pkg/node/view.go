package node

import (
	"github.com/aretw0/arbor/pkg/domain"
)

// View is the snapshot of a node handed to the rendering collaborator.
type View struct {
	ID        string            `json:"id"`
	Root      string            `json:"root"`
	Schema    domain.Schema     `json:"schema"`
	State     map[string]any    `json:"state,omitempty"`
	Data      any               `json:"data,omitempty"`
	Error     *domain.ErrorInfo `json:"error,omitempty"`
	DataError *domain.ErrorInfo `json:"data_error,omitempty"`
	Children  []ChildView       `json:"children,omitempty"`
}

// ChildView is a child entry: a single node or a row.
type ChildView struct {
	*View
	Row []*View `json:"row,omitempty"`
}

// View snapshots the subtree. Child schemas are not repeated inside the
// parent's schema.
func (n *UINode) View() *View {
	v := &View{
		ID:     n.id,
		Root:   n.rootName,
		Schema: domain.Schema{},
	}
	for k, val := range n.schema {
		if k == domain.KeyChildren || k == domain.KeyRowTemplate {
			continue
		}
		v.Schema[k] = domain.DeepCopy(val)
	}
	if n.stateNode != nil {
		v.State = n.stateNode.States()
	}
	if !n.errorInfo.IsZero() {
		info := n.errorInfo
		v.Error = &info
	}
	if n.dataNode != nil {
		v.Data = domain.DeepCopy(n.dataNode.Data())
		if info := n.dataNode.ErrorInfo(); !info.IsZero() {
			v.DataError = &info
		}
	}
	for _, c := range n.children {
		if c.IsRow() {
			row := make([]*View, 0, len(c.Row))
			for _, child := range c.Row {
				row = append(row, child.View())
			}
			v.Children = append(v.Children, ChildView{Row: row})
			continue
		}
		v.Children = append(v.Children, ChildView{View: c.Node.View()})
	}
	return v
}
