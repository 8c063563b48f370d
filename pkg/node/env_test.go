package node

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedFetcher holds every Get until release is closed.
type gatedFetcher struct {
	release chan struct{}

	mu    sync.Mutex
	pages []any
}

func (f *gatedFetcher) Get(ctx context.Context, locator string, params domain.Params) (any, error) {
	f.mu.Lock()
	f.pages = append(f.pages, params["page"])
	f.mu.Unlock()
	<-f.release
	return map[string]any{"page": params["page"]}, nil
}

func (f *gatedFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pages)
}

func TestEnv_FetchDataSharesOnlyMatchingParams(t *testing.T) {
	ctx := context.Background()
	fetcher := &gatedFetcher{release: make(chan struct{})}
	env := NewEnv(registry.New(), WithFetcher(fetcher))

	var wg sync.WaitGroup
	results := make([]any, 3)
	fetch := func(i int, page int) {
		defer wg.Done()
		v, err := env.fetchData(ctx, "mock-data/list.json", domain.Params{"page": page})
		assert.NoError(t, err)
		results[i] = v
	}

	wg.Add(2)
	go fetch(0, 1)
	go fetch(1, 2)
	require.Eventually(t, func() bool { return fetcher.calls() == 2 }, time.Second, 5*time.Millisecond,
		"different params must not join one fetch")

	close(fetcher.release)
	wg.Wait()

	assert.Equal(t, map[string]any{"page": 1}, results[0])
	assert.Equal(t, map[string]any{"page": 2}, results[1])
	assert.ElementsMatch(t, []any{1, 2}, fetcher.pages)
}

func TestDataFlightKey(t *testing.T) {
	a := dataFlightKey("doc", domain.Params{"b": 2, "a": 1})
	b := dataFlightKey("doc", domain.Params{"a": 1, "b": 2})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, dataFlightKey("doc", domain.Params{"a": 1, "b": 3}))
	assert.Equal(t, "data:doc", dataFlightKey("doc", nil))
}
