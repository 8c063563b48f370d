package controller

import (
	"context"
	"fmt"
	"reflect"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/node"
	"github.com/aretw0/arbor/pkg/route"
)

// Workflow is the imperative facade used by scripts and transports: it
// addresses nodes by selector and keeps track of one active layout.
type Workflow struct {
	c *Controller
}

// NewWorkflow wraps a controller.
func NewWorkflow(c *Controller) *Workflow {
	return &Workflow{c: c}
}

// Controller returns the wrapped controller.
func (w *Workflow) Controller() *Controller { return w.c }

// Activate shows the named layout, loading src when it is not registered
// yet. A nil src loads the layout by name as a locator.
func (w *Workflow) Activate(ctx context.Context, name string, src any, opts ...LoadOption) (*node.UINode, error) {
	if src == nil {
		src = name
	}
	return w.c.LoadUINode(ctx, src, append([]LoadOption{WithID(name)}, opts...)...)
}

// Active returns the root node of the active layout, or nil.
func (w *Workflow) Active() *node.UINode {
	n, _ := w.c.GetUINode(w.c.ActiveLayout())
	return n
}

// Deactivate hides the active layout.
func (w *Workflow) Deactivate(ctx context.Context) error {
	name := w.c.ActiveLayout()
	if name == "" {
		return fmt.Errorf("%w: no active layout", domain.ErrLayoutNotFound)
	}
	return w.c.HideUINode(ctx, name)
}

// RemoveNodes drops the schema entries of the nodes matching selector and
// rebuilds their layouts. A matched root removes the whole layout. Rows
// generated from a row template come back on rebuild; change the bound data
// to drop them. It returns the number of removed nodes.
func (w *Workflow) RemoveNodes(ctx context.Context, selector map[string]any, names ...string) (int, error) {
	nodes, err := w.c.Search(selector, names...)
	if err != nil {
		return 0, err
	}

	removed := 0
	var touched []*node.UINode
	for _, n := range nodes {
		parent := n.Parent()
		if parent == nil {
			if err := w.c.DeleteUINode(ctx, n.RootName()); err != nil {
				return removed, err
			}
			removed++
			continue
		}
		if !detach(parent.Schema(), n.Schema()) {
			continue
		}
		removed++
		touched = append(touched, n)
	}
	return removed, w.rebuild(ctx, touched)
}

// detach removes child from the children of parent, looking inside rows too.
func detach(parent, child domain.Schema) bool {
	entries := parent.Children()
	for i, e := range entries {
		if sameMap(e, child) {
			parent[domain.KeyChildren] = append(entries[:i:i], entries[i+1:]...)
			return true
		}
		row, ok := e.([]any)
		if !ok {
			continue
		}
		for j, r := range row {
			if sameMap(r, child) {
				entries[i] = append(row[:j:j], row[j+1:]...)
				return true
			}
		}
	}
	return false
}

func sameMap(entry any, m domain.Schema) bool {
	var v reflect.Value
	switch e := entry.(type) {
	case map[string]any:
		v = reflect.ValueOf(e)
	case domain.Schema:
		v = reflect.ValueOf(map[string]any(e))
	default:
		return false
	}
	return v.UnsafePointer() == reflect.ValueOf(map[string]any(m)).UnsafePointer()
}

// RefreshNodes rebuilds the layouts holding the nodes matching selector from
// their live schemas.
func (w *Workflow) RefreshNodes(ctx context.Context, selector map[string]any, names ...string) (int, error) {
	nodes, err := w.c.Search(selector, names...)
	if err != nil {
		return 0, err
	}
	return len(nodes), w.rebuild(ctx, nodes)
}

// AssignProps merges props into the schemas of the nodes matching selector
// and rebuilds their layouts.
func (w *Workflow) AssignProps(ctx context.Context, selector, props map[string]any, names ...string) (int, error) {
	nodes, err := w.c.Search(selector, names...)
	if err != nil {
		return 0, err
	}
	for _, n := range nodes {
		schema := n.Schema()
		for k, v := range props {
			schema[k] = domain.DeepCopy(v)
		}
	}
	return len(nodes), w.rebuild(ctx, nodes)
}

// rebuild re-materializes each distinct root of nodes once. Child schemas are
// shared with their parent's children entries, so the root sees every edit.
func (w *Workflow) rebuild(ctx context.Context, nodes []*node.UINode) error {
	seen := make(map[*node.UINode]bool)
	for _, n := range nodes {
		root := n.Root()
		if seen[root] {
			continue
		}
		seen[root] = true
		if _, ok := w.c.GetUINode(root.RootName()); !ok {
			continue
		}
		if _, err := root.UpdateLayout(ctx); err != nil {
			return err
		}
	}
	return nil
}

// UpdateData writes value to the pool entry of source and reloads every node
// bound to it. It returns the number of reloaded nodes.
func (w *Workflow) UpdateData(ctx context.Context, source string, value any) (int, error) {
	if err := w.c.env.Pool.Set(ctx, route.AccessRoute(source, ""), value); err != nil {
		return 0, err
	}
	nodes, err := w.c.Search(map[string]any{domain.KeyDatasource: source})
	if err != nil {
		return 0, err
	}
	for _, n := range nodes {
		n.ReloadData(ctx)
		if err := n.SendMessage(ctx, map[string]any{"data": n.DataNode().Data()}); err != nil {
			w.c.logger.Warn("data message failed", "node_id", n.ID(), "err", err)
		}
	}
	return len(nodes), nil
}

// UpdateState overrides state declarations of the nodes bound to source and
// recomputes their layouts' states.
func (w *Workflow) UpdateState(ctx context.Context, source string, states map[string]any) (int, error) {
	nodes, err := w.c.Search(map[string]any{domain.KeyDatasource: source})
	if err != nil {
		return 0, err
	}
	for _, n := range nodes {
		schema := n.Schema()
		decls := schema.States()
		if decls == nil {
			decls = make(domain.Schema, len(states))
			schema[domain.KeyState] = decls
		}
		for k, v := range states {
			decls[k] = domain.DeepCopy(v)
		}
		n.Settle(ctx)
		if err := n.SendMessage(ctx, map[string]any{"state": n.StateNode().States()}); err != nil {
			w.c.logger.Warn("state message failed", "node_id", n.ID(), "err", err)
		}
	}
	return len(nodes), nil
}
