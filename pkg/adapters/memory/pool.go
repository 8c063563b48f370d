package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Pool implements ports.DataPool as one nested map.
// Safe for concurrent use.
type Pool struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewPool creates an empty data pool.
func NewPool() *Pool {
	return &Pool{data: make(map[string]any)}
}

// Get returns a copy of the value at route.
func (p *Pool) Get(ctx context.Context, route string) (any, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if route == "" {
		return domain.DeepCopy(p.data), nil
	}
	v, ok := domain.Lookup(p.data, route)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, route)
	}
	return domain.DeepCopy(v), nil
}

// Set stores a copy of value at route.
func (p *Pool) Set(ctx context.Context, route string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = domain.Assign(p.data, route, domain.DeepCopy(value))
	return nil
}

// Delete removes the value at route.
func (p *Pool) Delete(ctx context.Context, route string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	domain.Remove(p.data, route)
	return nil
}
