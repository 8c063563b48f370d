// Package controller keeps the registry of root layouts: one materialized
// node tree per root name, their visibility and the stack of active layouts.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/node"
)

// DefaultRootName is used when neither an id nor a schema id is available.
const DefaultRootName = "default"

// Renderer is the registry entry of one root layout.
type Renderer struct {
	Node    *node.UINode
	Visible bool
	Options map[string]any
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithHooks sets the hooks notified on registry changes.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(c *Controller) { c.hooks = h }
}

// LoadOption tunes one LoadUINode call.
type LoadOption func(*loadConfig)

type loadConfig struct {
	id      string
	options map[string]any
}

// WithID names the root layout explicitly.
func WithID(id string) LoadOption {
	return func(c *loadConfig) { c.id = id }
}

// WithRenderOptions attaches renderer options (container, title, ...).
func WithRenderOptions(opts map[string]any) LoadOption {
	return func(c *loadConfig) { c.options = opts }
}

// Controller owns the root layouts of one engine.
type Controller struct {
	env    *node.Env
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	mu        sync.RWMutex
	renderers map[string]*Renderer
	stack     []string
	active    string
}

// New creates a controller over env.
func New(env *node.Env, opts ...Option) *Controller {
	c := &Controller{
		env:       env,
		logger:    logging.NewNop(),
		renderers: make(map[string]*Renderer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Env returns the shared node environment.
func (c *Controller) Env() *node.Env { return c.env }

// RootName resolves the registry name of a layout source: the explicit id,
// else the schema "id", else "default"; a locator names itself.
func RootName(src any, id string) string {
	if id != "" {
		return id
	}
	switch v := src.(type) {
	case string:
		if v != "" {
			return v
		}
	default:
		if s, ok := domain.AsSchema(src); ok && s.ID() != "" {
			return s.ID()
		}
	}
	return DefaultRootName
}

// LoadUINode returns the layout registered under the resolved root name, made
// visible and active, or materializes src and registers it once the whole
// tree is built. A failed materialization is never registered.
func (c *Controller) LoadUINode(ctx context.Context, src any, opts ...LoadOption) (*node.UINode, error) {
	cfg := loadConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	name := RootName(src, cfg.id)

	if n, ok := c.show(name); ok {
		c.broadcast(ctx, domain.ActionShow)
		return n, nil
	}

	// 1. Materialize outside the lock; plugins may call back into the controller.
	n := c.env.NewUINode(name)
	if _, err := n.LoadLayout(ctx, src); err != nil {
		c.env.DropIndex(name)
		return nil, fmt.Errorf("failed to load layout %q: %w", name, err)
	}

	// 2. Register, unless a concurrent load won the race.
	c.mu.Lock()
	if existing, ok := c.renderers[name]; ok {
		existing.Visible = true
		c.push(name)
		c.mu.Unlock()
		c.broadcast(ctx, domain.ActionShow)
		return existing.Node, nil
	}
	c.renderers[name] = &Renderer{Node: n, Visible: true, Options: cfg.options}
	c.push(name)
	c.mu.Unlock()

	c.logger.Debug("layout loaded", "root", name, "node_id", n.ID())
	c.broadcast(ctx, domain.ActionLoad)
	return n, nil
}

func (c *Controller) show(name string) (*node.UINode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.renderers[name]
	if !ok {
		return nil, false
	}
	r.Visible = true
	c.push(name)
	return r.Node, true
}

// push moves name to the top of the stack and activates it. Callers hold mu.
func (c *Controller) push(name string) {
	c.stack = slices.DeleteFunc(c.stack, func(s string) bool { return s == name })
	c.stack = append(c.stack, name)
	c.active = name
}

// HideUINode keeps the layout but marks it invisible. The active layout
// becomes the top-most visible one.
func (c *Controller) HideUINode(ctx context.Context, name string) error {
	c.mu.Lock()
	r, ok := c.renderers[name]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrLayoutNotFound, name)
	}
	r.Visible = false
	c.active = ""
	for i := len(c.stack) - 1; i >= 0; i-- {
		if c.renderers[c.stack[i]].Visible {
			c.active = c.stack[i]
			break
		}
	}
	c.mu.Unlock()

	c.broadcast(ctx, domain.ActionHide)
	return nil
}

// DeleteUINode removes a layout and releases its tree. The active layout
// becomes the top of the stack, or "" when the stack is empty.
func (c *Controller) DeleteUINode(ctx context.Context, name string) error {
	c.mu.Lock()
	r, ok := c.renderers[name]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrLayoutNotFound, name)
	}
	delete(c.renderers, name)
	c.stack = slices.DeleteFunc(c.stack, func(s string) bool { return s == name })
	c.active = ""
	if len(c.stack) > 0 {
		c.active = c.stack[len(c.stack)-1]
	}
	c.mu.Unlock()

	c.env.DropIndex(r.Node.RootName())
	c.broadcast(ctx, domain.ActionDelete)
	return nil
}

// GetUINode returns the root node of a layout.
func (c *Controller) GetUINode(name string) (*node.UINode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.renderers[name]
	if !ok {
		return nil, false
	}
	return r.Node, true
}

// Renderer returns a copy of a registry entry.
func (c *Controller) Renderer(name string) (Renderer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.renderers[name]
	if !ok {
		return Renderer{}, false
	}
	return *r, true
}

// ActiveLayout returns the active root name, "" when none.
func (c *Controller) ActiveLayout() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Layouts returns the layout stack, most recently activated last.
func (c *Controller) Layouts() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.stack)
}

// roots returns the registered root nodes in stack order, optionally limited
// to names.
func (c *Controller) roots(names ...string) []*node.UINode {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*node.UINode
	for _, name := range c.stack {
		if len(names) > 0 && !slices.Contains(names, name) {
			continue
		}
		if r, ok := c.renderers[name]; ok {
			out = append(out, r.Node)
		}
	}
	return out
}

// Search returns the nodes matching selector across the registered layouts
// (or only the named ones), in stack then tree order.
func (c *Controller) Search(selector map[string]any, names ...string) ([]*node.UINode, error) {
	if err := node.ValidateSelector(selector); err != nil {
		return nil, err
	}
	var out []*node.UINode
	for _, root := range c.roots(names...) {
		found, err := c.env.Search(root.RootName(), selector)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

// CastMessage sends payload to every node matching selector across the
// registered layouts (or only the named ones). A failed delivery does not
// stop the others: it returns the number of nodes actually messaged and the
// joined delivery errors.
func (c *Controller) CastMessage(ctx context.Context, selector map[string]any, payload any, names ...string) (int, error) {
	nodes, err := c.Search(selector, names...)
	if err != nil {
		return 0, err
	}
	var (
		sent int
		errs []error
	)
	for _, n := range nodes {
		if err := n.SendMessage(ctx, payload); err != nil {
			errs = append(errs, fmt.Errorf("failed to message node %s: %w", n.ID(), err))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

func (c *Controller) broadcast(ctx context.Context, action domain.RegistryAction) {
	c.mu.RLock()
	change := &domain.RegistryChange{
		Action: action,
		Active: c.active,
		Stack:  slices.Clone(c.stack),
	}
	c.mu.RUnlock()

	if c.hooks.OnRegistryChange != nil {
		c.hooks.OnRegistryChange(ctx, change)
	}
	if c.env.Messenger == nil {
		return
	}
	err := c.env.Messenger.Send(ctx, domain.Message{
		Kind:     domain.MessageRegistry,
		RootName: change.Active,
		Payload:  change,
	})
	if err != nil {
		c.logger.Warn("registry broadcast failed", "action", action, "err", err)
	}
}
