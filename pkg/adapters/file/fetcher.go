// Package file serves documents from a directory tree and records committed
// data as JSON files.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"gopkg.in/yaml.v3"
)

// Extensions tried, in order, for locators without one.
var Extensions = []string{".json", ".yaml", ".yml"}

// Fetcher implements ports.Fetcher and ports.Lister over a file system.
type Fetcher struct {
	fsys fs.FS
}

// NewFetcher serves documents from dir.
func NewFetcher(dir string) *Fetcher {
	return NewFetcherFS(os.DirFS(dir))
}

// NewFetcherFS serves documents from fsys (for example an embed.FS).
func NewFetcherFS(fsys fs.FS) *Fetcher {
	return &Fetcher{fsys: fsys}
}

// Get decodes the JSON or YAML document at locator.
func (f *Fetcher) Get(ctx context.Context, locator string, params domain.Params) (any, error) {
	name := strings.TrimPrefix(path.Clean("/"+locator), "/")

	candidates := []string{name}
	if path.Ext(name) == "" {
		candidates = candidates[:0]
		for _, ext := range Extensions {
			candidates = append(candidates, name+ext)
		}
	}

	for _, candidate := range candidates {
		raw, err := fs.ReadFile(f.fsys, candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", candidate, err)
		}
		return decode(candidate, raw)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, locator)
}

func decode(name string, raw []byte) (any, error) {
	var doc any
	switch path.Ext(name) {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(bytes.NewReader(raw)).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
	default:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
	}
	return doc, nil
}

// List returns the document paths starting with prefix, sorted.
func (f *Fetcher) List(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	err := fs.WalkDir(f.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasPrefix(p, prefix) {
			return nil
		}
		for _, ext := range Extensions {
			if path.Ext(p) == ext {
				out = append(out, p)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

var (
	_ ports.Fetcher = (*Fetcher)(nil)
	_ ports.Lister  = (*Fetcher)(nil)
)
