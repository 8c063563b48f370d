package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSchemaCacheContract verifies that a SchemaCache implementation adheres to
// the interface contract.
func RunSchemaCacheContract(t *testing.T, cache SchemaCache) {
	ctx := context.Background()
	locator := "schema/ui/contract-" + time.Now().Format("20060102150405") + ".json"

	t.Run("Miss", func(t *testing.T) {
		_, err := cache.Get(ctx, locator)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Set and Get", func(t *testing.T) {
		// 1. Store a nested schema
		schema := map[string]any{
			"id":       "root",
			"children": []any{map[string]any{"id": "child"}},
		}
		require.NoError(t, cache.Set(ctx, locator, schema))

		// 2. Read it back
		got, err := cache.Get(ctx, locator)
		require.NoError(t, err)
		assert.Equal(t, "root", got["id"])
		children, ok := got["children"].([]any)
		require.True(t, ok, "children must decode as []any")
		assert.Len(t, children, 1)
	})

	t.Run("Last writer wins", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, locator, map[string]any{"id": "first"}))
		require.NoError(t, cache.Set(ctx, locator, map[string]any{"id": "second"}))

		got, err := cache.Get(ctx, locator)
		require.NoError(t, err)
		assert.Equal(t, "second", got["id"])
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.Delete(ctx, locator))
		_, err := cache.Get(ctx, locator)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		assert.NoError(t, cache.Delete(ctx, locator), "deleting a missing key is not an error")
	})
}

// RunDataPoolContract verifies that a DataPool implementation adheres to the
// interface contract. Numbers may come back as float64 from JSON-backed pools.
func RunDataPoolContract(t *testing.T, pool DataPool) {
	ctx := context.Background()
	domainName := "contract" + time.Now().Format("150405")

	t.Run("Miss", func(t *testing.T) {
		_, err := pool.Get(ctx, domainName+".missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Set creates intermediate objects", func(t *testing.T) {
		require.NoError(t, pool.Set(ctx, domainName+".user.name", "ada"))

		got, err := pool.Get(ctx, domainName+".user.name")
		require.NoError(t, err)
		assert.Equal(t, "ada", got)

		user, err := pool.Get(ctx, domainName+".user")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "ada"}, user)
	})

	t.Run("Whole domain document", func(t *testing.T) {
		doc := map[string]any{"items": []any{"a", "b"}}
		require.NoError(t, pool.Set(ctx, domainName+"-doc", doc))

		got, err := pool.Get(ctx, domainName+"-doc.items.1")
		require.NoError(t, err)
		assert.Equal(t, "b", got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, pool.Set(ctx, domainName+".user.name", "grace"))
		got, err := pool.Get(ctx, domainName+".user.name")
		require.NoError(t, err)
		assert.Equal(t, "grace", got)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, pool.Delete(ctx, domainName+".user.name"))
		_, err := pool.Get(ctx, domainName+".user.name")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = pool.Get(ctx, domainName+".user")
		assert.NoError(t, err, "parent survives the deletion of a field")

		require.NoError(t, pool.Delete(ctx, domainName))
		_, err = pool.Get(ctx, domainName+".user")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// RunFetcherContract verifies a Fetcher against fixtures it was seeded with.
// Fixture values must be JSON objects.
func RunFetcherContract(t *testing.T, fetcher Fetcher, fixtures map[string]map[string]any) {
	t.Helper()
	ctx := context.Background()

	// 1. Every fixture resolves
	t.Run("Get", func(t *testing.T) {
		for locator, want := range fixtures {
			got, err := fetcher.Get(ctx, locator, nil)
			require.NoError(t, err, "locator %s", locator)
			doc, ok := got.(map[string]any)
			require.True(t, ok, "locator %s must decode to an object, got %T", locator, got)
			for k, v := range want {
				assert.EqualValues(t, v, doc[k], "locator %s key %s", locator, k)
			}
		}
	})

	// 2. Unknown locators report ErrNotFound
	t.Run("NotFound", func(t *testing.T) {
		_, err := fetcher.Get(ctx, "does/not/exist.json", nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
