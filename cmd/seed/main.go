package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/andresuchdata/exportops/backend-go/internal/config"
	"github.com/andresuchdata/exportops/backend-go/internal/importer"
	"github.com/andresuchdata/exportops/backend-go/internal/repository"
	"github.com/andresuchdata/exportops/backend-go/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type ctxKey string

const dbKey ctxKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

// sourceFlags takes its defaults from the environment-backed config, so
// APP_IMPORT_DIR and STORAGE_* apply unless a flag overrides them.
func sourceFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "Directory containing the CSV/XLSX files to import",
			Value: cfg.App.ImportDir,
		},
		&cli.StringFlag{
			Name:  "bucket-prefix",
			Usage: "Import from the S3-compatible bucket under this prefix instead of data-dir",
		},
		&cli.StringFlag{
			Name:  "download-dir",
			Usage: "Local directory for files downloaded from the bucket",
			Value: "./data/tmp/imports",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Files parsed or downloaded concurrently",
			Value: 4,
		},
		&cli.StringFlag{Name: "storage-endpoint", Value: cfg.Storage.Endpoint},
		&cli.StringFlag{Name: "storage-access-key", Value: cfg.Storage.AccessKey},
		&cli.StringFlag{Name: "storage-secret-key", Value: cfg.Storage.SecretKey},
		&cli.StringFlag{Name: "storage-bucket", Value: cfg.Storage.Bucket},
		&cli.StringFlag{Name: "storage-region", Value: cfg.Storage.Region},
		&cli.BoolFlag{Name: "storage-use-ssl", Value: cfg.Storage.UseSSL},
	}
}

func initDB(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func importCommand(cfg *config.Config, kind, usage string, kinds ...string) *cli.Command {
	return &cli.Command{
		Name:   kind,
		Usage:  usage,
		Flags:  append([]cli.Flag{newDBURLFlag()}, sourceFlags(cfg)...),
		Before: initDB,
		After:  closeDB,
		Action: func(c *cli.Context) error {
			return runImport(c, kinds)
		},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logger.Log.Debug().Err(err).Msg("no .env file loaded")
	}
	cfg := config.Load()

	app := &cli.App{
		Name:  "seed",
		Usage: "Import reference rates, sales/cost lines and reconciliation inputs",
		Commands: []*cli.Command{
			importCommand(cfg, importer.KindRates, "Replace the VAT, OM, octroi and extra tax reference tables", importer.KindRates),
			importCommand(cfg, importer.KindLines, "Append sales and cost lines", importer.KindLines),
			importCommand(cfg, importer.KindReconciliation, "Upsert client invoices and supplier cost documents", importer.KindReconciliation),
			importCommand(cfg, "all", "Run every import in order", importer.Kinds()...),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("seed failed")
	}
}

func runImport(c *cli.Context, kinds []string) error {
	db, ok := c.Context.Value(dbKey).(*sql.DB)
	if !ok || db == nil {
		return fmt.Errorf("database connection not initialized")
	}

	files, err := resolveFiles(c)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Log.Warn().Msg("no importable files found")
		return nil
	}

	im := importer.New(repository.NewIngestRepository(db), c.Int("workers"))
	for _, kind := range kinds {
		summary, err := im.Import(c.Context, kind, files)
		if err != nil {
			return fmt.Errorf("import %s: %w", kind, err)
		}

		event := logger.Log.Info().Str("kind", summary.Kind).Int("files", len(summary.Files))
		for dataset, n := range summary.Rows {
			event = event.Int(dataset, n)
		}
		event.Msg("import complete")
	}
	return nil
}
