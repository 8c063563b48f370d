package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHooks(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()

	hooks.OnNodeLoaded(ctx, &domain.NodeEvent{RootName: "form"})
	hooks.OnNodeLoaded(ctx, &domain.NodeEvent{RootName: "form", Failed: true})
	hooks.OnLoad(ctx, &domain.LoadEvent{Locator: "schema/ui/form.json", Duration: time.Millisecond})
	hooks.OnPluginExecuted(ctx, &domain.PluginEvent{Type: domain.PluginUIParser, Plugin: "p", Err: errors.New("boom")})
	hooks.OnRegistryChange(ctx, &domain.RegistryChange{Action: domain.ActionLoad, Stack: []string{"a", "b"}})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.NodesLoaded.WithLabelValues("form", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NodesLoaded.WithLabelValues("form", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PluginFailures.WithLabelValues(string(domain.PluginUIParser), "p")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistryChanges.WithLabelValues("load")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveLayouts))
	assert.Equal(t, 1, testutil.CollectAndCount(m.LoadDuration))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "arbor_nodes_loaded_total")
}

func TestLogHooks(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	hooks := domain.MergeHooks(observability.LogHooks(logger))

	hooks.OnLoad(ctx, &domain.LoadEvent{Locator: "ok.json"})
	assert.Empty(t, buf.String(), "successful loads log at debug")

	hooks.OnLoad(ctx, &domain.LoadEvent{Locator: "bad.json", Err: errors.New("boom")})
	assert.Contains(t, buf.String(), "locator=bad.json")
}
