package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/route"
)

// Submitter implements ports.Submitter by writing each committed value to
// <BasePath>/<route>.json.
type Submitter struct {
	BasePath string
}

// NewSubmitter creates a Submitter. An empty basePath defaults to
// ".arbor/commits".
func NewSubmitter(basePath string) *Submitter {
	if basePath == "" {
		basePath = filepath.Join(".arbor", "commits")
	}
	return &Submitter{BasePath: basePath}
}

// Submit persists payload and returns the written path.
func (s *Submitter) Submit(ctx context.Context, source domain.DataSource, payload any) (any, error) {
	name := route.AccessRoute(source.Source, "")
	if name == "" {
		return nil, fmt.Errorf("datasource cannot be empty")
	}

	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure commit directory: %w", err)
	}

	data, err := json.MarshalIndent(map[string]any{
		"source":       source.Source,
		"committed_at": time.Now().UTC().Format(time.RFC3339),
		"data":         payload,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal commit: %w", err)
	}

	// Write then rename so readers never see a partial file.
	filePath := filepath.Join(s.BasePath, name+".json")
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write commit file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		return nil, fmt.Errorf("failed to finalize commit file: %w", err)
	}
	return map[string]any{"status": "Submit Succeeded", "path": filePath}, nil
}

var _ ports.Submitter = (*Submitter)(nil)
