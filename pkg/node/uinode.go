package node

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/google/uuid"
)

// Child is one entry of a node's child list: a single node, or a row of
// nodes produced by an array entry (typically an expanded row template).
type Child struct {
	Node *UINode
	Row  []*UINode
}

// IsRow reports whether the entry is a row.
func (c Child) IsRow() bool {
	return c.Node == nil
}

// Nodes returns the nodes of the entry in order.
func (c Child) Nodes() []*UINode {
	if c.Node != nil {
		return []*UINode{c.Node}
	}
	return c.Row
}

// UINode is a materialized schema node.
type UINode struct {
	env      *Env
	manager  *registry.Manager
	parent   *UINode
	id       string
	rootName string

	schema       domain.Schema
	children     []Child
	dataNode     *DataNode
	stateNode    *StateNode
	errorInfo    domain.ErrorInfo
	liveChildren bool
}

// ID returns the process-scoped node id. It changes on every load.
func (n *UINode) ID() string { return n.id }

// RootName returns the name of the owning root layout.
func (n *UINode) RootName() string { return n.rootName }

// Schema returns the live schema.
func (n *UINode) Schema() domain.Schema { return n.schema }

// SchemaAt resolves a dot path inside the live schema.
func (n *UINode) SchemaAt(path string) (any, bool) {
	return n.schema.Get(path)
}

// Children returns the child entries in schema order.
func (n *UINode) Children() []Child { return n.children }

// DataNode returns the data binding, or nil.
func (n *UINode) DataNode() *DataNode { return n.dataNode }

// StateNode returns the derived states, or nil before the first load.
func (n *UINode) StateNode() *StateNode { return n.stateNode }

// ErrorInfo returns the load fault recorded on the node.
func (n *UINode) ErrorInfo() domain.ErrorInfo { return n.errorInfo }

// Parent returns the parent node, or nil for a root.
func (n *UINode) Parent() *UINode { return n.parent }

// Env returns the shared environment.
func (n *UINode) Env() *Env { return n.env }

// Plugins returns the node's pipeline executor. Plugins registered on it only
// apply to this node.
func (n *UINode) Plugins() *registry.Manager { return n.manager }

// IsLiveChildren reports whether the children were produced by a row template.
func (n *UINode) IsLiveChildren() bool { return n.liveChildren }

// Root walks up to the root node.
func (n *UINode) Root() *UINode {
	cur := n
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// LoadLayout materializes src into the node and returns the live schema.
// src is nil (reload the current schema), a domain.Schema or map, or a layout
// locator string. A failed remote load is recorded in ErrorInfo and keeps the
// previous schema; only an unsupported src is returned as an error.
func (n *UINode) LoadLayout(ctx context.Context, src any) (domain.Schema, error) {
	if _, err := n.load(ctx, src, true); err != nil {
		return nil, err
	}
	n.env.settle(ctx, n.Root())
	return n.schema, nil
}

// ReplaceLayout tears the node down and loads src from scratch.
func (n *UINode) ReplaceLayout(ctx context.Context, src any) (domain.Schema, error) {
	rootName := n.rootName
	n.ClearLayout()
	n.rootName = rootName
	return n.LoadLayout(ctx, src)
}

// UpdateLayout re-materializes the current live schema.
func (n *UINode) UpdateLayout(ctx context.Context) (domain.Schema, error) {
	return n.LoadLayout(ctx, nil)
}

// ClearLayout drops the schema, children, bindings and states.
func (n *UINode) ClearLayout() *UINode {
	if idx := n.env.Index(n.rootName); idx != nil {
		n.walk(idx.remove)
	}
	n.schema = domain.Schema{}
	n.errorInfo = domain.ErrorInfo{}
	n.children = nil
	n.dataNode = nil
	n.stateNode = nil
	n.rootName = ""
	n.liveChildren = false
	n.id = ""
	return n
}

func (n *UINode) load(ctx context.Context, src any, clone bool) (domain.Schema, error) {
	n.id = uuid.NewString()
	n.errorInfo = domain.ErrorInfo{}

	var schema domain.Schema
	switch v := src.(type) {
	case nil:
		schema = n.schema
	case string:
		if n.rootName == "" {
			n.rootName = v
		}
		schema = n.loadRemote(ctx, v)
		if schema == nil {
			schema = n.schema
		}
		clone = false
	case domain.Schema:
		schema = v
	case map[string]any:
		schema = domain.Schema(v)
	default:
		return nil, fmt.Errorf("unsupported layout source %T", src)
	}

	if schema != nil {
		if clone {
			schema = schema.Clone()
		}
		n.assign(ctx, schema)
	}

	n.env.index(n.rootName).add(n)
	if n.env.Hooks.OnNodeLoaded != nil {
		n.env.Hooks.OnNodeLoaded(ctx, &domain.NodeEvent{
			Timestamp: time.Now(),
			NodeID:    n.id,
			RootName:  n.rootName,
			SchemaID:  n.schema.ID(),
			Failed:    n.errorInfo.Failed(),
		})
	}
	return n.schema, nil
}

func (n *UINode) loadRemote(ctx context.Context, locator string) domain.Schema {
	full := withPrefix(n.env.Prefixes.Layout, locator)
	doc, err := n.env.fetchSchema(ctx, full)
	if err != nil {
		n.errorInfo = domain.ErrorInfo{Status: 400, Code: "Error loading from " + locator}
		n.env.Logger.Warn("layout load failed", "locator", full, "root", n.rootName, "err", err)
		return nil
	}
	return domain.Schema(doc)
}

// assign binds data, expands rows, loads children one after another, then
// computes states and runs the ui.parser plugins.
func (n *UINode) assign(ctx context.Context, schema domain.Schema) {
	live := schema

	// 1. Data binding
	n.dataNode = nil
	if ds, ok := live.Datasource(); ok {
		n.loadData(ctx, ds)
	}

	// 2. Row template
	n.liveChildren = false
	if tpl, ok := live.RowTemplate(); ok {
		n.expandRows(live, tpl)
	}

	// 3. Children, sequentially
	if idx := n.env.Index(n.rootName); idx != nil {
		for _, c := range n.children {
			for _, old := range c.Nodes() {
				old.walk(idx.remove)
			}
		}
	}
	n.children = nil
	entries := live.Children()
	for i, entry := range entries {
		if row, ok := entry.([]any); ok {
			nodes := make([]*UINode, 0, len(row))
			for j, item := range row {
				child := n.loadChild(ctx, item)
				if child == nil {
					continue
				}
				row[j] = sameShape(item, child.schema)
				nodes = append(nodes, child)
			}
			n.children = append(n.children, Child{Row: nodes})
			continue
		}

		child := n.loadChild(ctx, entry)
		if child == nil {
			continue
		}
		entries[i] = sameShape(entry, child.schema)
		n.children = append(n.children, Child{Node: child})
	}
	n.schema = live

	// 4. States
	n.stateNode = newStateNode(n)
	if _, err := n.stateNode.Renew(ctx); err != nil {
		n.env.Logger.Warn("state renewal failed", "node_id", n.id, "root", n.rootName, "err", err)
	}

	// 5. ui.parser
	n.manager.Execute(ctx, domain.PluginUIParser, registry.ExecuteOptions{SkipDeferred: true})
}

// sameShape returns s typed like the entry it replaces in the live tree.
func sameShape(entry any, s domain.Schema) any {
	if _, ok := entry.(domain.Schema); ok {
		return s
	}
	return map[string]any(s)
}

func (n *UINode) loadChild(ctx context.Context, entry any) *UINode {
	s, ok := domain.AsSchema(entry)
	if !ok {
		n.env.Logger.Warn("skipping non-object child entry", "node_id", n.id, "type", fmt.Sprintf("%T", entry))
		return nil
	}
	child := n.env.NewUINode(n.rootName)
	child.parent = n
	// The parent already owns a private copy of the subtree.
	_, _ = child.load(ctx, s, false)
	return child
}

func (n *UINode) loadData(ctx context.Context, ds domain.DataSource) any {
	n.dataNode = newDataNode(n, ds)
	return n.dataNode.LoadData(ctx)
}

// ReloadData reloads the bound data and recomputes the root's states.
func (n *UINode) ReloadData(ctx context.Context) any {
	if n.dataNode == nil {
		return nil
	}
	v := n.dataNode.LoadData(ctx)
	n.env.settle(ctx, n.Root())
	return v
}

// UpdateState recomputes the node's states.
func (n *UINode) UpdateState(ctx context.Context) (map[string]any, error) {
	if n.stateNode == nil {
		n.stateNode = newStateNode(n)
	}
	return n.stateNode.Renew(ctx)
}

// SearchNodes returns every node of the root layout (the node's own root by
// default) whose live schema holds each selector entry. Selector values must be
// primitives; matching is exact, with numbers compared by value.
func (n *UINode) SearchNodes(selector map[string]any, root ...string) ([]*UINode, error) {
	rootName := n.rootName
	if len(root) > 0 && root[0] != "" {
		rootName = root[0]
	}
	return n.env.Search(rootName, selector)
}

// GetChild resolves a child entry by index path. Each index selects either a
// child of the current node or, inside a row, a node of that row.
func (n *UINode) GetChild(route ...int) (Child, bool) {
	if len(route) == 0 {
		return Child{Node: n}, true
	}
	cur := Child{Node: n}
	for _, i := range route {
		if cur.IsRow() {
			if i < 0 || i >= len(cur.Row) {
				return Child{}, false
			}
			cur = Child{Node: cur.Row[i]}
			continue
		}
		children := cur.Node.children
		if i < 0 || i >= len(children) {
			return Child{}, false
		}
		cur = children[i]
	}
	return cur, true
}

// GetNode resolves a node by a dot-separated index path ("0.1"). An empty path
// returns the node itself.
func (n *UINode) GetNode(path string) (*UINode, bool) {
	if path == "" {
		return n, true
	}
	var route []int
	for _, seg := range strings.Split(path, ".") {
		i, err := strconv.Atoi(seg)
		if err != nil {
			return nil, false
		}
		route = append(route, i)
	}
	c, ok := n.GetChild(route...)
	if !ok || c.IsRow() {
		return nil, false
	}
	return c.Node, true
}

// SendMessage delivers payload to the rendering collaborator for this node.
func (n *UINode) SendMessage(ctx context.Context, payload any) error {
	return n.env.send(ctx, domain.Message{
		Kind:     domain.MessageNode,
		NodeID:   n.id,
		RootName: n.rootName,
		Payload:  payload,
	})
}

// Parse re-runs the ui.parser plugins.
func (n *UINode) Parse(ctx context.Context) *registry.Result {
	return n.manager.Execute(ctx, domain.PluginUIParser, registry.ExecuteOptions{SkipDeferred: true})
}

// walk visits the subtree in tree order.
func (n *UINode) walk(fn func(*UINode)) {
	fn(n)
	for _, c := range n.children {
		for _, child := range c.Nodes() {
			child.walk(fn)
		}
	}
}

// Walk visits the node and its descendants in tree order.
func (n *UINode) Walk(fn func(*UINode)) {
	n.walk(fn)
}
