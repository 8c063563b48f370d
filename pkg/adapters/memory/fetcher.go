package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Fetcher implements ports.Fetcher over an in-memory document map.
// Safe for concurrent use.
type Fetcher struct {
	mu    sync.RWMutex
	docs  map[string]any
	calls map[string]int
}

// NewFetcher creates a fetcher serving docs by locator.
func NewFetcher(docs map[string]any) *Fetcher {
	f := &Fetcher{
		docs:  make(map[string]any, len(docs)),
		calls: make(map[string]int),
	}
	for k, v := range docs {
		f.docs[k] = domain.DeepCopy(v)
	}
	return f
}

// NewFetcherFromJSON creates a fetcher from raw JSON documents.
// This keeps test fixtures close to what a remote backend would return.
func NewFetcherFromJSON(data map[string]string) (*Fetcher, error) {
	docs := make(map[string]any, len(data))
	for locator, raw := range data {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", locator, err)
		}
		docs[locator] = v
	}
	return NewFetcher(docs), nil
}

// Put stores or replaces a document.
func (f *Fetcher) Put(locator string, doc any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[locator] = domain.DeepCopy(doc)
}

// Get returns a copy of the document stored under locator.
func (f *Fetcher) Get(ctx context.Context, locator string, params domain.Params) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[locator]++
	doc, ok := f.docs[locator]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, locator)
	}
	return domain.DeepCopy(doc), nil
}

// Calls reports how many times locator was requested.
func (f *Fetcher) Calls(locator string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[locator]
}

// List returns the locators starting with prefix, sorted.
func (f *Fetcher) List(ctx context.Context, prefix string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var out []string
	for k := range f.docs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}
