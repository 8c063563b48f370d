package loam_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/arbor/internal/testutils"
	"github.com/aretw0/arbor/pkg/adapters/loam"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	loamlib "github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tree = map[string]string{
	"schema/ui/form.json": `{"id": "form", "children": [{"id": "name", "datasource": "user.name"}]}`,
	"schema/ui/wizard.yaml": `id: wizard
title: Setup
`,
	"schema/data/user.json": `{"definition": {"user": {"name": {"cm-meta": {"format": "string"}}}}}`,
	"mock-data/user.json":   `{"name": "ada", "age": 36}`,
	"docs/help.md": `---
id: help
---
Fill every field.`,
}

func newFetcher(t *testing.T, files map[string]string) *loam.Fetcher {
	t.Helper()
	_, repo := testutils.SetupTestRepo(t, files)
	return loam.New(loamlib.NewTypedRepository[map[string]any](repo))
}

func TestFetcher_Contract(t *testing.T) {
	fetcher := newFetcher(t, tree)
	ports.RunFetcherContract(t, fetcher, map[string]map[string]any{
		"schema/ui/form.json":   {"id": "form"},
		"schema/ui/wizard.yaml": {"id": "wizard", "title": "Setup"},
		"mock-data/user.json":   {"name": "ada"},
	})
}

func TestFetcher_Get(t *testing.T) {
	ctx := context.Background()
	fetcher := newFetcher(t, tree)

	t.Run("extension is optional", func(t *testing.T) {
		doc, err := fetcher.Get(ctx, "schema/ui/form", nil)
		require.NoError(t, err)
		children, ok := doc.(map[string]any)["children"].([]any)
		require.True(t, ok)
		assert.Len(t, children, 1)
	})

	t.Run("strict numbers", func(t *testing.T) {
		doc, err := fetcher.Get(ctx, "mock-data/user.json", nil)
		require.NoError(t, err)
		assert.Equal(t, json.Number("36"), doc.(map[string]any)["age"])
	})

	t.Run("markdown body", func(t *testing.T) {
		doc, err := fetcher.Get(ctx, "docs/help.md", nil)
		require.NoError(t, err)
		assert.Equal(t, "Fill every field.", doc.(map[string]any)[loam.ContentKey])
	})

	t.Run("missing document", func(t *testing.T) {
		_, err := fetcher.Get(ctx, "schema/ui/nope.json", nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestFetcher_List(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes ids", func(t *testing.T) {
		ids, err := newFetcher(t, tree).List(ctx, "schema/ui/")
		require.NoError(t, err)
		assert.Equal(t, []string{"schema/ui/form", "schema/ui/wizard"}, ids)
	})

	t.Run("detects collisions", func(t *testing.T) {
		fetcher := newFetcher(t, map[string]string{
			"schema/ui/foo.json": `{"id": "foo"}`,
			"schema/ui/foo.yaml": `id: foo`,
		})
		_, err := fetcher.List(ctx, "schema/ui/")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "collision detected")
	})
}
