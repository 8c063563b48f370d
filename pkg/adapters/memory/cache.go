package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	lru "github.com/hashicorp/golang-lru"
)

// CacheOption configures a SchemaCache.
type CacheOption func(*SchemaCache)

// WithMaxEntries bounds the cache; the least recently used schema is evicted
// first. Zero or less keeps the cache unbounded.
func WithMaxEntries(n int) CacheOption {
	return func(c *SchemaCache) {
		c.max = n
	}
}

// SchemaCache implements ports.SchemaCache in memory.
// Safe for concurrent use.
type SchemaCache struct {
	max int

	mu      sync.RWMutex
	entries map[string]map[string]any
	bounded *lru.Cache
}

// NewSchemaCache creates an unbounded cache unless WithMaxEntries is given.
func NewSchemaCache(opts ...CacheOption) (*SchemaCache, error) {
	c := &SchemaCache{entries: make(map[string]map[string]any)}
	for _, opt := range opts {
		opt(c)
	}
	if c.max > 0 {
		bounded, err := lru.New(c.max)
		if err != nil {
			return nil, fmt.Errorf("failed to create lru cache: %w", err)
		}
		c.bounded = bounded
	}
	return c, nil
}

// Get returns a copy of the cached schema.
func (c *SchemaCache) Get(ctx context.Context, locator string) (map[string]any, error) {
	if c.bounded != nil {
		v, ok := c.bounded.Get(locator)
		if !ok {
			return nil, domain.ErrNotFound
		}
		return domain.DeepCopy(v).(map[string]any), nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[locator]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return domain.DeepCopy(v).(map[string]any), nil
}

// Set stores a copy of schema.
func (c *SchemaCache) Set(ctx context.Context, locator string, schema map[string]any) error {
	copied := domain.DeepCopy(schema).(map[string]any)
	if c.bounded != nil {
		c.bounded.Add(locator, copied)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[locator] = copied
	return nil
}

// Delete evicts a locator.
func (c *SchemaCache) Delete(ctx context.Context, locator string) error {
	if c.bounded != nil {
		c.bounded.Remove(locator)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, locator)
	return nil
}

// Len reports the number of cached schemas.
func (c *SchemaCache) Len() int {
	if c.bounded != nil {
		return c.bounded.Len()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
