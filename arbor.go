package arbor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/arbor/internal/logging"
	loamAdapter "github.com/aretw0/arbor/pkg/adapters/loam"
	"github.com/aretw0/arbor/pkg/controller"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/node"
	"github.com/aretw0/arbor/pkg/plugins"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
)

// Version is the release of the library, set at build time.
var Version = "dev"

// Engine is the high-level entry point for the arbor library.
// It owns the plugin registry, the node environment and the layout controller.
type Engine struct {
	registry   *registry.Registry
	env        *node.Env
	controller *controller.Controller
	workflow   *controller.Workflow

	logger    *slog.Logger
	hooks     domain.LifecycleHooks
	submitter ports.Submitter
	plugins   []domain.Plugin
	envOpts   []node.EnvOption
	Name      string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = hooks }
}

// WithFetcher injects the remote schema and data collaborator.
func WithFetcher(f ports.Fetcher) Option {
	return func(e *Engine) { e.envOpts = append(e.envOpts, node.WithFetcher(f)) }
}

// WithSchemaCache replaces the unbounded in-memory schema cache.
func WithSchemaCache(c ports.SchemaCache) Option {
	return func(e *Engine) { e.envOpts = append(e.envOpts, node.WithSchemaCache(c)) }
}

// WithPool replaces the in-memory data pool.
func WithPool(p ports.DataPool) Option {
	return func(e *Engine) { e.envOpts = append(e.envOpts, node.WithPool(p)) }
}

// WithMessenger sets the rendering collaborator.
func WithMessenger(m ports.Messenger) Option {
	return func(e *Engine) { e.envOpts = append(e.envOpts, node.WithMessenger(m)) }
}

// WithPrefixes overrides the locator prefixes.
func WithPrefixes(p node.Prefixes) Option {
	return func(e *Engine) { e.envOpts = append(e.envOpts, node.WithPrefixes(p)) }
}

// WithIndexedFields sets the schema fields kept in the per-root lookup index.
func WithIndexedFields(fields ...string) Option {
	return func(e *Engine) { e.envOpts = append(e.envOpts, node.WithIndexedFields(fields...)) }
}

// WithSubmitter enables the builtin data.commit plugin.
func WithSubmitter(s ports.Submitter) Option {
	return func(e *Engine) { e.submitter = s }
}

// WithPlugins registers extra plugins next to the builtin ones.
func WithPlugins(p ...domain.Plugin) Option {
	return func(e *Engine) { e.plugins = append(e.plugins, p...) }
}

// New initializes an Engine. The plugin registry is frozen before New
// returns, so every plugin must be passed through WithPlugins.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("project", eng.Name)
	}

	// 1. Registry
	eng.registry = registry.New(
		registry.WithLogger(eng.logger),
		registry.WithHooks(eng.hooks),
	)
	if err := eng.registry.Register(plugins.Defaults(eng.submitter)...); err != nil {
		return nil, fmt.Errorf("register builtin plugins: %w", err)
	}
	if err := eng.registry.Register(eng.plugins...); err != nil {
		return nil, fmt.Errorf("register plugins: %w", err)
	}
	eng.registry.Freeze()

	// 2. Node environment
	envOpts := append([]node.EnvOption{
		node.WithLogger(eng.logger),
		node.WithHooks(eng.hooks),
	}, eng.envOpts...)
	eng.env = node.NewEnv(eng.registry, envOpts...)

	// 3. Controller
	eng.controller = controller.New(eng.env,
		controller.WithLogger(eng.logger),
		controller.WithHooks(eng.hooks),
	)
	eng.workflow = controller.NewWorkflow(eng.controller)
	return eng, nil
}

// Open initializes an Engine reading schemas and data from a Loam
// repository at dir. An explicit WithFetcher in opts takes precedence.
func Open(dir string, opts ...Option) (*Engine, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	fetcher, err := loamAdapter.Open(abs)
	if err != nil {
		return nil, err
	}
	named := func(e *Engine) { e.Name = filepath.Base(abs) }
	return New(append([]Option{WithFetcher(fetcher), named}, opts...)...)
}

// Registry returns the frozen plugin registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Env returns the node environment.
func (e *Engine) Env() *node.Env { return e.env }

// Controller returns the layout controller.
func (e *Engine) Controller() *controller.Controller { return e.controller }

// Workflow returns the host-facing workflow facade.
func (e *Engine) Workflow() *controller.Workflow { return e.workflow }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Load materializes a layout and makes it active. src is a locator, a schema
// map or nil to use name as the locator.
func (e *Engine) Load(ctx context.Context, name string, src any) (*node.UINode, error) {
	return e.workflow.Activate(ctx, name, src)
}

// Search returns the nodes matching selector in the given layouts, or in all
// layouts when names is empty.
func (e *Engine) Search(selector map[string]any, names ...string) ([]*node.UINode, error) {
	return e.controller.Search(selector, names...)
}

// Validate re-validates every node bound to sources.
func (e *Engine) Validate(ctx context.Context, sources ...string) (*controller.ValidationReport, error) {
	return e.controller.ValidateAll(ctx, sources)
}

// Commit validates and submits sources.
func (e *Engine) Commit(ctx context.Context, sources ...string) (*controller.CommitReport, error) {
	return e.controller.Commit(ctx, sources)
}
