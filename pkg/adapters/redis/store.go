// Package redis provides Redis-backed implementations of the schema cache and
// the data pool, so several engine processes can share fetched schemas and
// form data.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the adapter.
const DefaultPrefix = "arbor:"

// maxTxRetries bounds optimistic retries of pool writes under contention.
const maxTxRetries = 8

// Option configures a Store.
type Option func(*Store)

// WithTTL expires cached schemas and pool documents after ttl. Zero keeps
// them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix replaces DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// Store owns the Redis client shared by the cache and the pool.
type Store struct {
	client *backend.Client
	ttl    time.Duration
	prefix string
}

// New connects to addr.
func New(addr, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Schemas returns the schema cache view of the store.
func (s *Store) Schemas() *SchemaCache {
	return &SchemaCache{store: s}
}

// Pool returns the data pool view of the store.
func (s *Store) Pool() *Pool {
	return &Pool{store: s}
}

func (s *Store) schemaKey(locator string) string {
	return s.prefix + "schema:" + locator
}

func (s *Store) dataKey(domainName string) string {
	return s.prefix + "data:" + domainName
}

// SchemaCache implements ports.SchemaCache. Each schema is one JSON string.
type SchemaCache struct {
	store *Store
}

// Get returns domain.ErrNotFound on a miss or after expiry.
func (c *SchemaCache) Get(ctx context.Context, locator string) (map[string]any, error) {
	raw, err := c.store.client.Get(ctx, c.store.schemaKey(locator)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, locator)
	}
	if err != nil {
		return nil, fmt.Errorf("redis error reading schema %s: %w", locator, err)
	}

	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("failed to decode cached schema %s: %w", locator, err)
	}
	return schema, nil
}

// Set stores schema, replacing any previous value.
func (c *SchemaCache) Set(ctx context.Context, locator string, schema map[string]any) error {
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to encode schema %s: %w", locator, err)
	}
	return c.store.client.Set(ctx, c.store.schemaKey(locator), raw, c.store.ttl).Err()
}

// Delete evicts locator.
func (c *SchemaCache) Delete(ctx context.Context, locator string) error {
	return c.store.client.Del(ctx, c.store.schemaKey(locator)).Err()
}

// Pool implements ports.DataPool. Every domain (the first route segment) is
// one JSON document; field writes are read-modify-write transactions guarded
// by WATCH.
type Pool struct {
	store *Store
}

type reader interface {
	Get(ctx context.Context, key string) *backend.StringCmd
}

type writer interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *backend.StatusCmd
}

func splitRoute(route string) (string, string) {
	head, rest, _ := strings.Cut(route, ".")
	return head, rest
}

func (p *Pool) load(ctx context.Context, r reader, key string) (any, bool, error) {
	raw, err := r.Get(ctx, key).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis error reading %s: %w", key, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, fmt.Errorf("failed to decode pool document %s: %w", key, err)
	}
	return doc, true, nil
}

// Get returns the value at route. An empty route returns every domain.
func (p *Pool) Get(ctx context.Context, route string) (any, error) {
	if route == "" {
		all, err := p.all(ctx)
		if err != nil {
			return nil, err
		}
		return all, nil
	}

	domainName, rest := splitRoute(route)
	doc, ok, err := p.load(ctx, p.store.client, p.store.dataKey(domainName))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, route)
	}
	if rest == "" {
		return doc, nil
	}
	v, ok := domain.Lookup(doc, rest)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, route)
	}
	return v, nil
}

func (p *Pool) all(ctx context.Context) (map[string]any, error) {
	out := make(map[string]any)
	prefix := p.store.dataKey("")
	iter := p.store.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		doc, ok, err := p.load(ctx, p.store.client, key)
		if err != nil {
			return nil, err
		}
		if ok {
			out[strings.TrimPrefix(key, prefix)] = doc
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis error listing pool: %w", err)
	}
	return out, nil
}

// Set stores value at route, creating intermediate objects.
func (p *Pool) Set(ctx context.Context, route string, value any) error {
	domainName, rest := splitRoute(route)
	if rest == "" {
		return p.write(ctx, p.store.client, p.store.dataKey(domainName), value)
	}
	return p.update(ctx, domainName, func(doc any) (any, bool) {
		obj, _ := doc.(map[string]any)
		return domain.Assign(obj, rest, value), true
	})
}

// Delete removes the value at route. Deleting a domain drops its document.
func (p *Pool) Delete(ctx context.Context, route string) error {
	domainName, rest := splitRoute(route)
	if rest == "" {
		return p.store.client.Del(ctx, p.store.dataKey(domainName)).Err()
	}
	return p.update(ctx, domainName, func(doc any) (any, bool) {
		obj, ok := doc.(map[string]any)
		if !ok {
			return nil, false
		}
		domain.Remove(obj, rest)
		return obj, true
	})
}

func (p *Pool) write(ctx context.Context, w writer, key string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode pool document %s: %w", key, err)
	}
	return w.Set(ctx, key, raw, p.store.ttl).Err()
}

// update applies fn to the domain document inside a WATCH transaction,
// retrying when another writer got there first.
func (p *Pool) update(ctx context.Context, domainName string, fn func(doc any) (any, bool)) error {
	key := p.store.dataKey(domainName)
	txf := func(tx *backend.Tx) error {
		doc, _, err := p.load(ctx, tx, key)
		if err != nil {
			return err
		}
		next, changed := fn(doc)
		if !changed {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			return p.write(ctx, pipe, key, next)
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := p.store.client.Watch(ctx, txf, key)
		if errors.Is(err, backend.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis transaction on %s kept failing after %d attempts", key, maxTxRetries)
}

var (
	_ ports.SchemaCache = (*SchemaCache)(nil)
	_ ports.DataPool    = (*Pool)(nil)
)
