package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashita-ai/mekiki/internal/storage"
)

// Indexer mirrors catalog embeddings into a Qdrant collection. The catalog
// store stays the source of truth; a rebuild is idempotent because point ids
// derive deterministically from assessment ids.
type Indexer struct {
	index     *QdrantIndex
	store     storage.Store
	logger    *slog.Logger
	batchSize int
}

// NewIndexer creates an Indexer. batchSize <= 0 selects a default of 100.
func NewIndexer(index *QdrantIndex, store storage.Store, logger *slog.Logger, batchSize int) *Indexer {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Indexer{index: index, store: store, logger: logger, batchSize: batchSize}
}

// ReindexAll pages every stored embedding into Qdrant and returns the number
// of points written.
func (ix *Indexer) ReindexAll(ctx context.Context) (int, error) {
	if err := ix.index.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	total := 0
	for offset := 0; ; offset += ix.batchSize {
		vectors, err := ix.store.ListEmbeddings(ctx, ix.batchSize, offset)
		if err != nil {
			return total, fmt.Errorf("search: reindex: %w", err)
		}
		if len(vectors) == 0 {
			break
		}

		points := make([]Point, len(vectors))
		for i, v := range vectors {
			points[i] = Point{
				AssessmentID: v.ID,
				Name:         v.Name,
				Source:       v.Source,
				Embedding:    v.Embedding,
			}
		}
		if err := ix.index.Upsert(ctx, points); err != nil {
			return total, fmt.Errorf("search: reindex: %w", err)
		}
		total += len(points)
		ix.logger.Debug("search: reindex batch written", "batch", len(points), "total", total)

		if len(vectors) < ix.batchSize {
			break
		}
	}

	ix.logger.Info("search: reindex complete", "points", total)
	return total, nil
}

// IndexOne mirrors a single assessment's fresh embedding into Qdrant.
// Failures are the caller's to handle; the store write has already happened.
func (ix *Indexer) IndexOne(ctx context.Context, id, name, source string, embedding []float32) error {
	return ix.index.Upsert(ctx, []Point{{
		AssessmentID: id,
		Name:         name,
		Source:       source,
		Embedding:    embedding,
	}})
}

// RemoveOne deletes an assessment's point from Qdrant.
func (ix *Indexer) RemoveOne(ctx context.Context, id string) error {
	return ix.index.DeleteByIDs(ctx, []string{id})
}
