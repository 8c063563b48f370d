package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// SchemaCache holds fetched schemas by locator. Last writer wins.
type SchemaCache interface {
	// Get returns domain.ErrNotFound on a miss.
	Get(ctx context.Context, locator string) (map[string]any, error)
	Set(ctx context.Context, locator string, schema map[string]any) error
	Delete(ctx context.Context, locator string) error
}

// DataPool is the shared data store. Values are addressed by access route
// ("domain.field.0.name"); writes to a route create the intermediate objects.
type DataPool interface {
	// Get returns domain.ErrNotFound when nothing is stored at route.
	Get(ctx context.Context, route string) (any, error)
	Set(ctx context.Context, route string, value any) error
	Delete(ctx context.Context, route string) error
}

// Messenger delivers engine messages to the rendering collaborator.
type Messenger interface {
	Send(ctx context.Context, msg domain.Message) error
}

// MessengerFunc adapts a function to Messenger.
type MessengerFunc func(ctx context.Context, msg domain.Message) error

// Send calls f.
func (f MessengerFunc) Send(ctx context.Context, msg domain.Message) error {
	return f(ctx, msg)
}
