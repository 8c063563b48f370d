package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/arbor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arbor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "schema/ui/", cfg.Prefixes.Layout)
	assert.Equal(t, "mock-data/", cfg.Prefixes.Data)
}

func TestLoad(t *testing.T) {
	t.Run("Overrides defaults", func(t *testing.T) {
		path := writeConfig(t, `
source: loam
dir: ./forms
redis:
  addr: localhost:6379
  ttl: 5m
log:
  level: debug
`)
		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, config.SourceLoam, cfg.Source)
		assert.Equal(t, "./forms", cfg.Dir)
		assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "schema/data/", cfg.Prefixes.DataSchema, "untouched keys keep defaults")
	})

	t.Run("Rejects inconsistent settings", func(t *testing.T) {
		path := writeConfig(t, "source: http\ncache:\n  max_entries: -1\n")
		_, err := config.Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base_url")
		assert.Contains(t, err.Error(), "max_entries")
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
