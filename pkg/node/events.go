package node

import (
	"context"
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/registry"
)

// EventHandler reacts to a widget event (for example a value change).
type EventHandler func(ctx context.Context, payload map[string]any) error

// Events builds the node's event handlers by running the ui.parser.event
// plugins. Each plugin that returns an EventHandler contributes one handler
// under its plugin name.
func (n *UINode) Events(ctx context.Context) map[string]EventHandler {
	res := n.manager.Execute(ctx, domain.PluginUIParserEvent, registry.ExecuteOptions{})
	handlers := make(map[string]EventHandler, len(res.Records))
	for _, rec := range res.Records {
		switch h := rec.Result.(type) {
		case EventHandler:
			handlers[rec.Plugin.Name] = h
		case func(context.Context, map[string]any) error:
			handlers[rec.Plugin.Name] = h
		}
	}
	return handlers
}

// HandleEvent dispatches a named event to the matching handler.
func (n *UINode) HandleEvent(ctx context.Context, name string, payload map[string]any) error {
	h, ok := n.Events(ctx)[name]
	if !ok {
		return fmt.Errorf("%w: no handler for event %q on node %s", domain.ErrNotFound, name, n.id)
	}
	return h(ctx, payload)
}

// Settle recomputes the states of the node's whole root layout.
func (n *UINode) Settle(ctx context.Context) {
	n.env.settle(ctx, n.Root())
}
