// Package search provides an optional external vector index for the
// assessment catalog. When configured it accelerates retrieval; the catalog
// store remains the source of truth and serves as the fallback.
package search

import "context"

// Result holds an assessment id and its raw similarity score from the
// search index. The caller hydrates full Assessment objects from the store.
type Result struct {
	AssessmentID string
	Score        float32
}

// Searcher is the interface for vector search indexes.
// Implementations must be safe for concurrent use.
type Searcher interface {
	// Query returns assessment ids nearest to the embedding, best first,
	// dropping scores below minSimilarity.
	Query(ctx context.Context, embedding []float32, limit int, minSimilarity float32) ([]Result, error)

	// Healthy returns nil if the search index is reachable, or an error
	// describing the problem.
	Healthy(ctx context.Context) error
}
