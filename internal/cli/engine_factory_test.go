package cli

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/testutils"
	loamAdapter "github.com/aretw0/arbor/pkg/adapters/loam"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var files = map[string]string{
	"schema/ui/form.json": `{"id": "form", "children": [{"id": "name", "datasource": "user.name"}]}`,
	"mock-data/user.json": `{"name": "ada"}`,
}

func TestBuildRuntime(t *testing.T) {
	ctx := context.Background()

	t.Run("File source", func(t *testing.T) {
		dir := t.TempDir()
		testutils.WriteTree(t, dir, files)
		cfg := config.Default()
		cfg.Dir = dir

		rt, err := BuildRuntime(ctx, cfg, logging.NewNop(), BuildOptions{Registerer: prometheus.NewRegistry()})
		require.NoError(t, err)
		defer rt.Close()
		assert.Nil(t, rt.Watcher)
		require.NotNil(t, rt.Metrics)

		root, err := rt.Engine.Load(ctx, "form", "form.json")
		require.NoError(t, err)
		name, ok := root.GetNode("0")
		require.True(t, ok)
		assert.Equal(t, "ada", name.DataNode().Data())

		report, err := rt.Engine.Commit(ctx, "user.name")
		require.NoError(t, err)
		assert.True(t, report.Validation.OK)
		assert.FileExists(t, commitDir(cfg)+"/user.name.json")
	})

	t.Run("Loam source with redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		dir, _ := testutils.SetupTestRepo(t, files)
		cfg := config.Default()
		cfg.Source = config.SourceLoam
		cfg.Dir = dir
		cfg.Watch = true
		cfg.Redis.Addr = mr.Addr()

		rt, err := BuildRuntime(ctx, cfg, logging.NewNop(), BuildOptions{})
		require.NoError(t, err)
		defer rt.Close()
		assert.IsType(t, &loamAdapter.Fetcher{}, rt.Watcher)
		assert.Nil(t, rt.Metrics)

		_, err = rt.Engine.Load(ctx, "form", "form.json")
		require.NoError(t, err)
		assert.True(t, mr.Exists("arbor:schema:schema/ui/form.json"))
		assert.True(t, mr.Exists("arbor:data:user"))
	})

	t.Run("Unreachable redis", func(t *testing.T) {
		cfg := config.Default()
		cfg.Dir = t.TempDir()
		cfg.Redis.Addr = "127.0.0.1:1"
		_, err := BuildRuntime(ctx, cfg, logging.NewNop(), BuildOptions{})
		assert.Error(t, err)
	})
}

func TestEvictOnChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cache, err := memory.NewSchemaCache()
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, "schema/ui/form.json", map[string]any{"id": "form"}))
	require.NoError(t, cache.Set(ctx, "schema/ui/other.json", map[string]any{"id": "other"}))

	ids := make(chan string, 1)
	ids <- "schema/ui/form"
	close(ids)
	EvictOnChange(ctx, ids, cache, logging.NewNop())

	assert.Equal(t, 1, cache.Len())
	_, err = cache.Get(ctx, "schema/ui/other.json")
	assert.NoError(t, err)
}

func TestParseSelector(t *testing.T) {
	sel, err := ParseSelector([]string{"id=name", "order=2", "required=true", "label=2x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "name", "order": 2.0, "required": true, "label": "2x"}, sel)

	_, err = ParseSelector([]string{"novalue"})
	assert.Error(t, err)
}
