package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"golang.org/x/sync/singleflight"
)

// Default locator prefixes.
const (
	DefaultLayoutPrefix     = "schema/ui/"
	DefaultDataSchemaPrefix = "schema/data/"
	DefaultDataPrefix       = "mock-data/"
)

// Prefixes are prepended to locators before they reach the Fetcher.
type Prefixes struct {
	Layout     string
	DataSchema string
	Data       string
}

// DefaultPrefixes returns the standard locator layout.
func DefaultPrefixes() Prefixes {
	return Prefixes{
		Layout:     DefaultLayoutPrefix,
		DataSchema: DefaultDataSchemaPrefix,
		Data:       DefaultDataPrefix,
	}
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithFetcher sets the remote schema and data collaborator.
func WithFetcher(f ports.Fetcher) EnvOption {
	return func(e *Env) { e.Fetcher = f }
}

// WithSchemaCache replaces the default unbounded in-memory schema cache.
func WithSchemaCache(c ports.SchemaCache) EnvOption {
	return func(e *Env) { e.Schemas = c }
}

// WithPool replaces the default in-memory data pool.
func WithPool(p ports.DataPool) EnvOption {
	return func(e *Env) { e.Pool = p }
}

// WithMessenger sets the rendering collaborator.
func WithMessenger(m ports.Messenger) EnvOption {
	return func(e *Env) { e.Messenger = m }
}

// WithPrefixes overrides the locator prefixes.
func WithPrefixes(p Prefixes) EnvOption {
	return func(e *Env) { e.Prefixes = p }
}

// WithIndexedFields sets the schema fields kept in the per-root lookup index.
func WithIndexedFields(fields ...string) EnvOption {
	return func(e *Env) { e.IndexedFields = fields }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) EnvOption {
	return func(e *Env) { e.Logger = l }
}

// WithHooks sets the lifecycle hooks.
func WithHooks(h domain.LifecycleHooks) EnvOption {
	return func(e *Env) { e.Hooks = h }
}

// Env is the explicit context shared by every node of a process: the plugin
// registry, the collaborators and the per-root node indexes.
type Env struct {
	Registry      *registry.Registry
	Fetcher       ports.Fetcher
	Schemas       ports.SchemaCache
	Pool          ports.DataPool
	Messenger     ports.Messenger
	Prefixes      Prefixes
	IndexedFields []string
	Logger        *slog.Logger
	Hooks         domain.LifecycleHooks

	group singleflight.Group

	mu      sync.RWMutex
	indexes map[string]*Index
}

// NewEnv creates an Env around a plugin registry.
func NewEnv(reg *registry.Registry, opts ...EnvOption) *Env {
	e := &Env{
		Registry:      reg,
		Pool:          memory.NewPool(),
		Messenger:     ports.MessengerFunc(func(context.Context, domain.Message) error { return nil }),
		Prefixes:      DefaultPrefixes(),
		IndexedFields: []string{domain.KeyID, domain.KeyDatasource},
		Logger:        logging.NewNop(),
		indexes:       make(map[string]*Index),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.Registry == nil {
		e.Registry = registry.New(registry.WithLogger(e.Logger))
	}
	if e.Schemas == nil {
		// An unbounded cache never fails to build.
		e.Schemas, _ = memory.NewSchemaCache()
	}
	return e
}

// NewUINode creates an empty node owned by the named root layout.
func (e *Env) NewUINode(rootName string) *UINode {
	n := &UINode{env: e, rootName: rootName}
	n.manager = e.Registry.NewManager(n)
	return n
}

// Index returns the node index of a root layout, or nil.
func (e *Env) Index(rootName string) *Index {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.indexes[rootName]
}

// DropIndex forgets every node of a root layout.
func (e *Env) DropIndex(rootName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.indexes, rootName)
}

// Search returns the nodes of a root layout matching selector, in tree order.
func (e *Env) Search(rootName string, selector map[string]any) ([]*UINode, error) {
	if err := ValidateSelector(selector); err != nil {
		return nil, err
	}
	idx := e.Index(rootName)
	if idx == nil {
		return nil, nil
	}
	return idx.Search(selector), nil
}

func (e *Env) index(rootName string) *Index {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx, ok := e.indexes[rootName]
	if !ok {
		idx = newIndex(e.IndexedFields)
		e.indexes[rootName] = idx
	}
	return idx
}

// settle rebuilds the index of root in tree order and recomputes every state
// from scratch, so forward references resolve once the whole tree exists.
func (e *Env) settle(ctx context.Context, root *UINode) {
	idx := newIndex(e.IndexedFields)
	root.walk(func(n *UINode) {
		idx.add(n)
	})

	e.mu.Lock()
	e.indexes[root.rootName] = idx
	e.mu.Unlock()

	nodes := idx.Nodes()
	for _, n := range nodes {
		if n.stateNode != nil {
			n.stateNode.reset()
		}
	}
	for _, n := range nodes {
		if n.stateNode == nil {
			continue
		}
		if _, err := n.stateNode.Renew(ctx); err != nil {
			e.Logger.Warn("state renewal failed", "node_id", n.id, "root", n.rootName, "err", err)
		}
	}
}

func withPrefix(prefix, locator string) string {
	if prefix == "" || strings.HasPrefix(locator, prefix) || strings.Contains(locator, "://") {
		return locator
	}
	return prefix + locator
}

func (e *Env) fetch(ctx context.Context, locator string, params domain.Params) (any, error) {
	if e.Fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured for %s", domain.ErrNotFound, locator)
	}
	return e.Fetcher.Get(ctx, locator, params)
}

// fetchSchema resolves an object document through the schema cache. Concurrent
// misses for one locator share a single fetch.
func (e *Env) fetchSchema(ctx context.Context, locator string) (map[string]any, error) {
	start := time.Now()

	doc, err := e.Schemas.Get(ctx, locator)
	if err == nil {
		e.emitLoad(ctx, locator, true, start, nil)
		return doc, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		e.Logger.Warn("schema cache read failed", "locator", locator, "err", err)
	}

	v, err, _ := e.group.Do("schema:"+locator, func() (any, error) {
		raw, err := e.fetch(ctx, locator, nil)
		if err != nil {
			return nil, err
		}
		obj, ok := domain.AsSchema(raw)
		if !ok {
			return nil, fmt.Errorf("document is %T, want an object", raw)
		}
		if err := e.Schemas.Set(ctx, locator, obj); err != nil {
			e.Logger.Warn("schema cache write failed", "locator", locator, "err", err)
		}
		return map[string]any(obj), nil
	})
	e.emitLoad(ctx, locator, false, start, err)
	if err != nil {
		return nil, &domain.LoadError{Locator: locator, Err: err}
	}
	return domain.DeepCopy(v).(map[string]any), nil
}

// fetchData resolves a data document. The pool acts as its cache. Concurrent
// requests share a fetch only when their params match.
func (e *Env) fetchData(ctx context.Context, locator string, params domain.Params) (any, error) {
	start := time.Now()
	v, err, _ := e.group.Do(dataFlightKey(locator, params), func() (any, error) {
		return e.fetch(ctx, locator, params)
	})
	e.emitLoad(ctx, locator, false, start, err)
	if err != nil {
		return nil, &domain.LoadError{Locator: locator, Err: err}
	}
	return domain.DeepCopy(v), nil
}

// dataFlightKey encodes params after the locator. fmt prints map keys in
// sorted order.
func dataFlightKey(locator string, params domain.Params) string {
	if len(params) == 0 {
		return "data:" + locator
	}
	return fmt.Sprintf("data:%s?%v", locator, map[string]any(params))
}

func (e *Env) emitLoad(ctx context.Context, locator string, hit bool, start time.Time, err error) {
	if e.Hooks.OnLoad == nil {
		return
	}
	e.Hooks.OnLoad(ctx, &domain.LoadEvent{
		Timestamp: start,
		Locator:   locator,
		CacheHit:  hit,
		Duration:  time.Since(start),
		Err:       err,
	})
}

func (e *Env) send(ctx context.Context, msg domain.Message) error {
	if e.Messenger == nil {
		return nil
	}
	return e.Messenger.Send(ctx, msg)
}
