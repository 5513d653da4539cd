// Command loadcatalog imports an SHL catalog CSV into the configured store.
//
// Usage:
//
//	go run ./scripts/loadcatalog -file data/shl_individual_assessments.csv
//
// The store is selected by STORAGE_DRIVER exactly as for the server:
// postgres (DATABASE_URL), sqlite (MEKIKI_SQLITE_PATH), or memory. Loading
// into the memory driver only makes sense for smoke tests; the rows are
// gone when the process exits.
//
// Rows are upserted by name, so re-running the import refreshes changed
// entries instead of duplicating them. Imported rows have no embeddings
// yet; run scripts/regen-embeddings afterwards.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/ashita-ai/mekiki/internal/catalog"
	"github.com/ashita-ai/mekiki/internal/config"
	"github.com/ashita-ai/mekiki/internal/storage"
	"github.com/ashita-ai/mekiki/migrations"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	file := flag.String("file", "data/shl_individual_assessments.csv", "catalog CSV to import")
	source := flag.String("source", "", "source tag for rows without one (empty uses the loader default)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(context.Background()) }()

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("open %s: %w", *file, err)
	}
	defer f.Close()

	res, err := catalog.NewLoader(store, logger).LoadCSV(ctx, f, *source)
	if err != nil {
		return fmt.Errorf("load csv: %w", err)
	}

	fmt.Printf("imported %d rows (%d skipped) from %s\n", res.SuccessCount, res.ErrorCount, *file)
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return storage.NewMemory(), nil
	case config.DriverSQLite:
		return storage.NewSQLite(ctx, cfg.SQLitePath, logger)
	case config.DriverPostgres:
		db, err := storage.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(ctx, migrations.FS); err != nil {
			_ = db.Close(context.Background())
			return nil, fmt.Errorf("migrations: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
