package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// Fetcher retrieves remote schemas and data documents.
type Fetcher interface {
	// Get returns the decoded document (objects as map[string]any, arrays as []any).
	// It returns an error wrapping domain.ErrNotFound when the locator has no document.
	Get(ctx context.Context, locator string, params domain.Params) (any, error)
}

// Lister is implemented by fetchers that can enumerate their documents.
// It backs introspection commands such as 'arbor validate'.
type Lister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}

// Submitter delivers committed data for one datasource.
type Submitter interface {
	Submit(ctx context.Context, source domain.DataSource, payload any) (any, error)
}
