// Package loam serves layouts, data schemas and mock data from a Loam
// document repository (JSON, YAML or Markdown with front matter).
package loam

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/loam"
)

// ContentKey receives the body of Markdown documents.
const ContentKey = "content"

// Fetcher implements ports.Fetcher and ports.Lister over a Loam repository.
// Locators are repository paths; the extension is optional.
type Fetcher struct {
	Repo *loam.TypedRepository[map[string]any]
}

// New wraps a typed repository.
func New(repo *loam.TypedRepository[map[string]any]) *Fetcher {
	return &Fetcher{Repo: repo}
}

// Open initializes a read-only, strict repository at path.
func Open(path string) (*Fetcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[map[string]any](repo)), nil
}

// Get returns the document stored under locator. Markdown bodies are exposed
// under ContentKey unless the front matter already defines it.
func (f *Fetcher) Get(ctx context.Context, locator string, params domain.Params) (any, error) {
	id := trimExtension(locator)
	doc, err := f.Repo.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, locator)
		}
		return nil, fmt.Errorf("loam get failed for %s: %w", locator, err)
	}

	out := make(map[string]any, len(doc.Data)+1)
	for k, v := range doc.Data {
		out[k] = v
	}
	if body := strings.TrimSpace(doc.Content); body != "" {
		if _, ok := out[ContentKey]; !ok {
			out[ContentKey] = body
		}
	}
	return out, nil
}

// List returns the normalized ids starting with prefix, sorted. Two files
// normalizing to the same id are reported as a collision.
func (f *Fetcher) List(ctx context.Context, prefix string) ([]string, error) {
	docs, err := f.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	var ids []string
	for _, doc := range docs {
		id := trimExtension(doc.ID)
		if !strings.HasPrefix(id, trimExtension(prefix)) {
			continue
		}
		if existing, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: '%s' is defined in both '%s' and '%s'", id, existing, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Watch reports the ids of changed documents until ctx is done. Consumers use
// it to evict cached schemas.
func (f *Fetcher) Watch(ctx context.Context) (<-chan string, error) {
	events, err := f.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

// isNotFound recognizes a missing document. Loam reports it through the
// filesystem error or its own message.
func isNotFound(err error) bool {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, domain.ErrNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

func trimExtension(id string) string {
	id = filepath.ToSlash(id)
	if ext := filepath.Ext(id); ext != "" {
		return strings.TrimSuffix(id, ext)
	}
	return id
}

var (
	_ ports.Fetcher = (*Fetcher)(nil)
	_ ports.Lister  = (*Fetcher)(nil)
)
