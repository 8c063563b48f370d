package observability

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine collectors.
type Metrics struct {
	NodesLoaded     *prometheus.CounterVec
	LoadDuration    *prometheus.HistogramVec
	PluginDuration  *prometheus.HistogramVec
	PluginFailures  *prometheus.CounterVec
	RegistryChanges *prometheus.CounterVec
	ActiveLayouts   prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// uses a private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		NodesLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_nodes_loaded_total",
			Help: "UI nodes materialized, by root layout and outcome.",
		}, []string{"root", "outcome"}),
		LoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arbor_load_duration_seconds",
			Help:    "Duration of schema and data fetches.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		PluginDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arbor_plugin_duration_seconds",
			Help:    "Duration of plugin callbacks.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"type"}),
		PluginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_plugin_failures_total",
			Help: "Plugin callbacks that returned an error or panicked.",
		}, []string{"type", "plugin"}),
		RegistryChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_registry_changes_total",
			Help: "Controller mutations, by action.",
		}, []string{"action"}),
		ActiveLayouts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbor_layouts",
			Help: "Layouts currently registered.",
		}),
	}
	reg.MustRegister(m.NodesLoaded, m.LoadDuration, m.PluginDuration, m.PluginFailures, m.RegistryChanges, m.ActiveLayouts)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeLoaded: func(_ context.Context, e *domain.NodeEvent) {
			outcome := "ok"
			if e.Failed {
				outcome = "failed"
			}
			m.NodesLoaded.WithLabelValues(e.RootName, outcome).Inc()
		},
		OnLoad: func(_ context.Context, e *domain.LoadEvent) {
			source := "remote"
			if e.CacheHit {
				source = "cache"
			}
			m.LoadDuration.WithLabelValues(source).Observe(e.Duration.Seconds())
		},
		OnPluginExecuted: func(_ context.Context, e *domain.PluginEvent) {
			m.PluginDuration.WithLabelValues(string(e.Type)).Observe(e.Duration.Seconds())
			if e.Err != nil {
				m.PluginFailures.WithLabelValues(string(e.Type), e.Plugin).Inc()
			}
		},
		OnRegistryChange: func(_ context.Context, e *domain.RegistryChange) {
			m.RegistryChanges.WithLabelValues(string(e.Action)).Inc()
			m.ActiveLayouts.Set(float64(len(e.Stack)))
		},
	}
}

// Handler serves the registry the metrics were registered with, or the
// default gatherer.
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// LogHooks logs engine events: loads and registry changes at Debug, faults
// at Warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeLoaded: func(ctx context.Context, e *domain.NodeEvent) {
			if e.Failed {
				logger.WarnContext(ctx, "node_loaded", "node_id", e.NodeID, "root", e.RootName, "schema_id", e.SchemaID, "failed", true)
				return
			}
			logger.DebugContext(ctx, "node_loaded", "node_id", e.NodeID, "root", e.RootName, "schema_id", e.SchemaID)
		},
		OnLoad: func(ctx context.Context, e *domain.LoadEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "load", "locator", e.Locator, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "load", "locator", e.Locator, "cache_hit", e.CacheHit, "duration", e.Duration)
		},
		OnPluginExecuted: func(ctx context.Context, e *domain.PluginEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "plugin", "type", e.Type, "plugin", e.Plugin, "err", e.Err)
			}
		},
		OnRegistryChange: func(ctx context.Context, e *domain.RegistryChange) {
			logger.DebugContext(ctx, "registry_change", "action", e.Action, "active", e.Active, "layouts", len(e.Stack))
		},
	}
}
