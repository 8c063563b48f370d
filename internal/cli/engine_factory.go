package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/pkg/adapters/file"
	httpAdapter "github.com/aretw0/arbor/pkg/adapters/http"
	loamAdapter "github.com/aretw0/arbor/pkg/adapters/loam"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/node"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Runtime bundles an engine with the collaborators the commands drive.
type Runtime struct {
	Engine      *arbor.Engine
	Schemas     ports.SchemaCache
	Broadcaster *memory.Broadcaster
	Metrics     *observability.Metrics

	// Watcher is set for Loam sources.
	Watcher *loamAdapter.Fetcher

	closers []func() error
}

// Close releases backend connections.
func (r *Runtime) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// BuildOptions tweak BuildRuntime.
type BuildOptions struct {
	// Registerer receives the engine metrics. Nil disables metrics.
	Registerer prometheus.Registerer
	// Buffer is the per-subscriber message buffer of the broadcaster.
	Buffer  int
	Plugins []domain.Plugin
}

// BuildRuntime wires an engine from cfg: the fetcher named by cfg.Source, a
// Redis cache and pool when cfg.Redis.Addr is set, and a file submitter.
func BuildRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger, opts BuildOptions) (*Runtime, error) {
	rt := &Runtime{Broadcaster: memory.NewBroadcaster(opts.Buffer)}

	// 1. Fetcher
	fetcher, err := newFetcher(cfg, logger)
	if err != nil {
		return nil, err
	}
	if lf, ok := fetcher.(*loamAdapter.Fetcher); ok && cfg.Watch {
		rt.Watcher = lf
	}

	// 2. Schema cache and data pool
	var pool ports.DataPool
	if cfg.Redis.Addr != "" {
		store := redisAdapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisAdapter.WithTTL(cfg.Redis.TTL),
			redisAdapter.WithPrefix(cfg.Redis.Prefix),
		)
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		rt.closers = append(rt.closers, store.Close)
		rt.Schemas, pool = store.Schemas(), store.Pool()
	} else {
		cache, err := memory.NewSchemaCache(memory.WithMaxEntries(cfg.Cache.MaxEntries))
		if err != nil {
			return nil, err
		}
		rt.Schemas, pool = cache, memory.NewPool()
	}

	// 3. Hooks
	hooks := []domain.LifecycleHooks{observability.LogHooks(logger)}
	if opts.Registerer != nil {
		rt.Metrics = observability.NewMetrics(opts.Registerer)
		hooks = append(hooks, rt.Metrics.Hooks())
	}

	// 4. Submitter
	var submitter ports.Submitter
	if cfg.Source == config.SourceHTTP {
		submitter = fetcher.(*httpAdapter.Client)
	} else {
		submitter = file.NewSubmitter(commitDir(cfg))
	}

	engine, err := arbor.New(
		arbor.WithLogger(logger),
		arbor.WithLifecycleHooks(domain.MergeHooks(hooks...)),
		arbor.WithFetcher(fetcher),
		arbor.WithSchemaCache(rt.Schemas),
		arbor.WithPool(pool),
		arbor.WithMessenger(rt.Broadcaster),
		arbor.WithSubmitter(submitter),
		arbor.WithPrefixes(node.Prefixes{
			Layout:     cfg.Prefixes.Layout,
			DataSchema: cfg.Prefixes.DataSchema,
			Data:       cfg.Prefixes.Data,
		}),
		arbor.WithIndexedFields(cfg.Index...),
		arbor.WithPlugins(opts.Plugins...),
	)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	rt.Engine = engine
	return rt, nil
}

func newFetcher(cfg config.Config, logger *slog.Logger) (ports.Fetcher, error) {
	switch cfg.Source {
	case config.SourceFile:
		return file.NewFetcher(cfg.Dir), nil
	case config.SourceLoam:
		abs, err := filepath.Abs(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		return loamAdapter.Open(abs)
	case config.SourceHTTP:
		return httpAdapter.NewClient(cfg.BaseURL, httpAdapter.WithClientLogger(logger)), nil
	}
	return nil, fmt.Errorf("unknown source %q", cfg.Source)
}

// commitDir resolves a relative commit directory against cfg.Dir.
func commitDir(cfg config.Config) string {
	if cfg.Commits == "" || filepath.IsAbs(cfg.Commits) {
		return cfg.Commits
	}
	return filepath.Join(cfg.Dir, cfg.Commits)
}
