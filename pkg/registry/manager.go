package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

// Record is the outcome of one plugin invocation.
type Record struct {
	Plugin domain.Plugin
	Params domain.Params
	Result any
	Err    error
}

// Control is returned by an AfterExecute hook.
type Control struct {
	// Stop ends the pipeline; no further plugins of the type run.
	Stop bool
}

// AfterExecute inspects each record as it is produced.
type AfterExecute func(Record) Control

// ExecuteOptions tunes one pipeline run.
type ExecuteOptions struct {
	// Params is shared by every plugin of the run. Plugins may mutate it.
	Params domain.Params
	// AfterExecute is called after every plugin, faulty ones included.
	AfterExecute AfterExecute
	// SkipDeferred skips plugins registered with Deferred=true.
	SkipDeferred bool
}

// Result accumulates the records of one pipeline run.
type Result struct {
	Records []Record
	// Stopped is true when AfterExecute ended the run early.
	Stopped bool
}

// Last returns the result of the last plugin that returned a non-nil value
// without error.
func (r *Result) Last() (any, bool) {
	for i := len(r.Records) - 1; i >= 0; i-- {
		rec := r.Records[i]
		if rec.Err == nil && rec.Result != nil {
			return rec.Result, true
		}
	}
	return nil, false
}

// Errors returns the plugin faults of the run.
func (r *Result) Errors() []error {
	var errs []error
	for _, rec := range r.Records {
		if rec.Err != nil {
			errs = append(errs, rec.Err)
		}
	}
	return errs
}

// Manager runs pipelines against one target node. It sees the global plugins
// of its registry plus plugins registered locally on the manager.
type Manager struct {
	registry *Registry
	target   any

	mu    sync.RWMutex
	local map[domain.PluginType][]domain.Plugin
}

// NewManager binds a pipeline executor to target.
func (r *Registry) NewManager(target any) *Manager {
	return &Manager{
		registry: r,
		target:   target,
		local:    make(map[domain.PluginType][]domain.Plugin),
	}
}

// Target returns the node the manager runs against.
func (m *Manager) Target() any {
	return m.target
}

// Register adds node-local plugins. Local plugins are not affected by Freeze.
func (m *Manager) Register(plugins ...domain.Plugin) error {
	for _, p := range plugins {
		if err := validate(p); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range plugins {
		m.local[p.Type] = insertSorted(m.local[p.Type], p)
	}
	return nil
}

// Plugins returns the merged plugin list of a type. Global plugins come before
// local ones of equal weight.
func (m *Manager) Plugins(typ domain.PluginType) []domain.Plugin {
	merged := m.registry.Plugins(typ)

	m.mu.RLock()
	local := m.local[typ]
	m.mu.RUnlock()

	for _, p := range local {
		merged = insertSorted(merged, p)
	}
	return merged
}

// Execute runs every plugin of typ in weight order. A missing type yields an
// empty result. A failing or panicking plugin is recorded and logged; its
// siblings still run unless AfterExecute asks to stop.
func (m *Manager) Execute(ctx context.Context, typ domain.PluginType, opts ExecuteOptions) *Result {
	params := opts.Params
	if params == nil {
		params = domain.Params{}
	}

	res := &Result{}
	for _, p := range m.Plugins(typ) {
		if opts.SkipDeferred && p.Deferred {
			continue
		}

		start := time.Now()
		out, err := m.invoke(ctx, p, params)
		if err != nil {
			err = &domain.PluginError{Type: typ, Plugin: p.Name, Err: err}
			m.registry.logger.Warn("plugin failed", "type", typ, "plugin", p.Name, "err", err)
		}
		if m.registry.hooks.OnPluginExecuted != nil {
			m.registry.hooks.OnPluginExecuted(ctx, &domain.PluginEvent{
				Timestamp: start,
				Type:      typ,
				Plugin:    p.Name,
				Duration:  time.Since(start),
				Err:       err,
			})
		}

		rec := Record{Plugin: p, Params: params, Result: out, Err: err}
		res.Records = append(res.Records, rec)

		if opts.AfterExecute != nil && opts.AfterExecute(rec).Stop {
			res.Stopped = true
			break
		}
	}
	return res
}

// ExecuteSync runs the pipeline with a background context.
func (m *Manager) ExecuteSync(typ domain.PluginType, opts ExecuteOptions) *Result {
	return m.Execute(context.Background(), typ, opts)
}

// Go runs the pipeline on its own goroutine and delivers the result once.
func (m *Manager) Go(ctx context.Context, typ domain.PluginType, opts ExecuteOptions) <-chan *Result {
	ch := make(chan *Result, 1)
	go func() {
		ch <- m.Execute(ctx, typ, opts)
	}()
	return ch
}

func (m *Manager) invoke(ctx context.Context, p domain.Plugin, params domain.Params) (out any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("panic: %v", rec)
		}
	}()
	return p.Callback(ctx, m.target, params)
}

// Len reports how many plugins would run for typ.
func (m *Manager) Len(typ domain.PluginType) int {
	return len(m.Plugins(typ))
}

// Has reports whether a plugin named name is visible for typ.
func (m *Manager) Has(typ domain.PluginType, name string) bool {
	return slices.ContainsFunc(m.Plugins(typ), func(p domain.Plugin) bool {
		return p.Name == name
	})
}
