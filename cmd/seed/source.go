package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/andresuchdata/exportops/backend-go/internal/importer"
	"github.com/andresuchdata/exportops/backend-go/internal/storage"
	"github.com/andresuchdata/exportops/backend-go/pkg/logger"
	"github.com/urfave/cli/v2"
)

// resolveFiles returns the local files to import: downloaded from the bucket
// when --bucket-prefix is set, listed from --data-dir otherwise.
func resolveFiles(c *cli.Context) ([]string, error) {
	prefix := strings.TrimSpace(c.String("bucket-prefix"))
	if prefix == "" {
		dir := c.String("data-dir")
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
		files, err := importer.ListDir(dir)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		logger.Log.Info().Str("dir", dir).Int("files", len(files)).Msg("importing local files")
		return files, nil
	}

	client, err := storage.NewS3Client(storage.S3Config{
		Endpoint:  c.String("storage-endpoint"),
		AccessKey: c.String("storage-access-key"),
		SecretKey: c.String("storage-secret-key"),
		Bucket:    c.String("storage-bucket"),
		Region:    c.String("storage-region"),
		UseSSL:    c.Bool("storage-use-ssl"),
	})
	if err != nil {
		return nil, err
	}

	files, err := importer.Download(c.Context, client, prefix, c.String("download-dir"), c.Int("workers"))
	if err != nil {
		return nil, err
	}
	logger.Log.Info().Str("prefix", prefix).Int("files", len(files)).Msg("downloaded bucket files")
	return files, nil
}

// ensureDir creates the import directory on first use so an empty setup
// reports no files instead of failing.
func ensureDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("data-dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
