package cli

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aretw0/arbor/pkg/ports"
)

var watchedExtensions = []string{"", ".json", ".yaml", ".yml", ".md"}

// EvictOnChange drops cached schemas whose document changed until ctx is done
// or ids is closed. ids carry document ids, with or without extension.
func EvictOnChange(ctx context.Context, ids <-chan string, cache ports.SchemaCache, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-ids:
			if !ok {
				return
			}
			base := trimExt(id)
			for _, ext := range watchedExtensions {
				if err := cache.Delete(ctx, base+ext); err != nil {
					logger.Warn("schema eviction failed", "locator", base+ext, "err", err)
				}
			}
			logger.Info("Change detected, schema evicted", "id", id)
		}
	}
}

func trimExt(id string) string {
	for _, ext := range watchedExtensions[1:] {
		if strings.HasSuffix(id, ext) {
			return strings.TrimSuffix(id, ext)
		}
	}
	return id
}
