package importer

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andresuchdata/exportops/backend-go/internal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Download copies the supported objects under prefix into destDir and
// returns the local paths. Objects are fetched by at most workers goroutines.
func Download(ctx context.Context, store storage.ObjectStorage, prefix, destDir string, workers int) ([]string, error) {
	objects, err := store.ListObjects(ctx, strings.TrimSpace(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list objects for prefix %s: %w", prefix, err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure download dir %s: %w", destDir, err)
	}

	var keys []string
	for _, obj := range objects {
		if Supported(obj.Key) {
			keys = append(keys, obj.Key)
		}
	}
	sort.Strings(keys)

	paths := make([]string, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			dest := filepath.Join(destDir, path.Base(key))
			if err := store.DownloadObject(gctx, key, dest); err != nil {
				return err
			}
			log.Debug().Str("key", key).Str("path", dest).Msg("Object downloaded")
			paths[i] = dest
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
