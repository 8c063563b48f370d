package domain

import (
	"context"
	"time"
)

// NodeEvent is emitted after a UI node finished materializing.
type NodeEvent struct {
	Timestamp time.Time `json:"timestamp"`
	NodeID    string    `json:"node_id"`
	RootName  string    `json:"root"`
	SchemaID  string    `json:"schema_id,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
}

// LoadEvent describes a remote schema or data fetch.
type LoadEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Locator   string        `json:"locator"`
	CacheHit  bool          `json:"cache_hit"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// PluginEvent describes one plugin invocation.
type PluginEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Type      PluginType    `json:"type"`
	Plugin    string        `json:"plugin"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnNodeLoaded     func(context.Context, *NodeEvent)
	OnLoad           func(context.Context, *LoadEvent)
	OnPluginExecuted func(context.Context, *PluginEvent)
	OnRegistryChange func(context.Context, *RegistryChange)
}

// MergeHooks chains several hook sets; each callback runs in argument order.
func MergeHooks(sets ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range sets {
		h := h
		if h.OnNodeLoaded != nil {
			prev := out.OnNodeLoaded
			out.OnNodeLoaded = func(ctx context.Context, e *NodeEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnNodeLoaded(ctx, e)
			}
		}
		if h.OnLoad != nil {
			prev := out.OnLoad
			out.OnLoad = func(ctx context.Context, e *LoadEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnLoad(ctx, e)
			}
		}
		if h.OnPluginExecuted != nil {
			prev := out.OnPluginExecuted
			out.OnPluginExecuted = func(ctx context.Context, e *PluginEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnPluginExecuted(ctx, e)
			}
		}
		if h.OnRegistryChange != nil {
			prev := out.OnRegistryChange
			out.OnRegistryChange = func(ctx context.Context, e *RegistryChange) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnRegistryChange(ctx, e)
			}
		}
	}
	return out
}
