// Command regen-embeddings backfills description vectors for catalog
// entries that are missing one. With -force it regenerates every entry,
// which is what you want after switching embedding models or dimensions.
//
// Usage:
//
//	GEMINI_API_KEY=... go run ./scripts/regen-embeddings
//	GEMINI_API_KEY=... go run ./scripts/regen-embeddings -force
//
// Entries are embedded in batches with a short pause between provider
// calls to stay under per-minute rate limits. Safe to re-run: without
// -force a second pass finds nothing left to do.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/ashita-ai/mekiki/internal/config"
	"github.com/ashita-ai/mekiki/internal/model"
	"github.com/ashita-ai/mekiki/internal/service/embedding"
	"github.com/ashita-ai/mekiki/internal/storage"
	"github.com/ashita-ai/mekiki/migrations"
)

const (
	batchSize  = 25
	batchPause = 200 * time.Millisecond
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	force := flag.Bool("force", false, "regenerate embeddings for every entry, not just missing ones")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	provider, name, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(context.Background()) }()

	var done int
	if *force {
		done, err = regenerateAll(ctx, store, provider)
	} else {
		done, err = regenerateMissing(ctx, store, provider)
	}
	if err != nil {
		return err
	}

	fmt.Printf("regenerated %d embeddings via %s\n", done, name)
	return nil
}

// regenerateMissing drains the missing-embedding queue batch by batch.
// Each processed batch shrinks the queue, so the loop terminates once
// every entry has a vector.
func regenerateMissing(ctx context.Context, store storage.Store, provider embedding.Provider) (int, error) {
	var done int
	for {
		items, err := store.AssessmentsMissingEmbedding(ctx, batchSize)
		if err != nil {
			return done, fmt.Errorf("list missing: %w", err)
		}
		if len(items) == 0 {
			return done, nil
		}
		if err := embedBatch(ctx, store, provider, items); err != nil {
			return done, err
		}
		done += len(items)
		time.Sleep(batchPause)
	}
}

func regenerateAll(ctx context.Context, store storage.Store, provider embedding.Provider) (int, error) {
	var done int
	for offset := 0; ; {
		items, _, err := store.ListAssessments(ctx, storage.ListParams{Limit: batchSize, Offset: offset})
		if err != nil {
			return done, fmt.Errorf("list assessments: %w", err)
		}
		if len(items) == 0 {
			return done, nil
		}
		if err := embedBatch(ctx, store, provider, items); err != nil {
			return done, err
		}
		done += len(items)
		offset += len(items)
		time.Sleep(batchPause)
	}
}

func embedBatch(ctx context.Context, store storage.Store, provider embedding.Provider, items []model.Assessment) error {
	texts := make([]string, len(items))
	for i, a := range items {
		texts[i] = a.EmbeddingText()
	}
	vecs, err := provider.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	for i, a := range items {
		if err := store.UpdateAssessmentEmbedding(ctx, a.ID, vecs[i]); err != nil {
			return fmt.Errorf("update %s: %w", a.ID, err)
		}
	}
	return nil
}

// newProvider picks a real provider from the environment. Unlike the
// server, this script refuses to fall back to the mock: writing
// deterministic fake vectors over real ones would silently poison
// retrieval quality.
func newProvider(ctx context.Context, cfg config.Config) (embedding.Provider, string, error) {
	dims := cfg.EmbeddingDimensions
	switch {
	case cfg.GeminiAPIKey != "":
		p, err := embedding.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModelID, dims)
		if err != nil {
			return nil, "", fmt.Errorf("gemini provider: %w", err)
		}
		return p, "gemini", nil
	case cfg.OpenAIAPIKey != "":
		return embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModelID, dims), "openai", nil
	default:
		return nil, "", fmt.Errorf("no embedding provider configured: set GEMINI_API_KEY or OPENAI_API_KEY")
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return nil, fmt.Errorf("the memory driver has nothing to regenerate; use postgres or sqlite")
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
