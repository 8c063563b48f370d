// Package registry stores plugins by extension point and runs them as an
// ordered pipeline against a node.
package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report plugin faults.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithHooks sets the hooks notified after every plugin invocation.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Registry) {
		r.hooks = hooks
	}
}

// Registry holds the process-wide plugins, ordered by weight per type.
// Plugins are registered at start-up; Freeze locks the set.
type Registry struct {
	mu      sync.RWMutex
	plugins map[domain.PluginType][]domain.Plugin
	frozen  bool

	logger *slog.Logger
	hooks  domain.LifecycleHooks
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		plugins: make(map[domain.PluginType][]domain.Plugin),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds plugins under their types. Within one type, plugins are kept in
// ascending weight; equal weights keep registration order.
func (r *Registry) Register(plugins ...domain.Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return domain.ErrRegistryFrozen
	}
	for _, p := range plugins {
		if err := validate(p); err != nil {
			return err
		}
	}
	for _, p := range plugins {
		r.plugins[p.Type] = insertSorted(r.plugins[p.Type], p)
	}
	return nil
}

// Unregister removes a named plugin. It reports whether a plugin was removed.
func (r *Registry) Unregister(typ domain.PluginType, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return false, domain.ErrRegistryFrozen
	}
	list := r.plugins[typ]
	for i, p := range list {
		if p.Name == name {
			r.plugins[typ] = slices.Delete(slices.Clone(list), i, i+1)
			return true, nil
		}
	}
	return false, nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Plugins returns the plugins of a type in execution order.
func (r *Registry) Plugins(typ domain.PluginType) []domain.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.plugins[typ])
}

// Types lists the types that have at least one plugin, sorted.
func (r *Registry) Types() []domain.PluginType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]domain.PluginType, 0, len(r.plugins))
	for t, list := range r.plugins {
		if len(list) > 0 {
			types = append(types, t)
		}
	}
	slices.Sort(types)
	return types
}

// Logger returns the registry logger.
func (r *Registry) Logger() *slog.Logger {
	return r.logger
}

func validate(p domain.Plugin) error {
	if p.Type == "" || p.Name == "" || p.Callback == nil {
		return fmt.Errorf("%w: type, name and callback are required (got %q/%q)", domain.ErrInvalidPlugin, p.Type, p.Name)
	}
	kind, ok := domain.KindOf(p.Type)
	if !ok {
		return fmt.Errorf("%w: unknown domain in type %q", domain.ErrInvalidPlugin, p.Type)
	}
	if kind != p.Kind {
		return fmt.Errorf("%w: plugin %q is %s but type %q expects %s", domain.ErrInvalidPlugin, p.Name, p.Kind, p.Type, kind)
	}
	return nil
}

// insertSorted places p after every plugin with weight <= p.Weight.
func insertSorted(list []domain.Plugin, p domain.Plugin) []domain.Plugin {
	i := sort.Search(len(list), func(i int) bool {
		return list[i].Weight > p.Weight
	})
	return slices.Insert(slices.Clone(list), i, p)
}
