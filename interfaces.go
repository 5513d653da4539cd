package mekiki

import "context"

// EmbeddingProvider generates vector embeddings from text.
// When provided via WithEmbeddingProvider, replaces the auto-detected
// Gemini/OpenAI/Ollama/mock provider. Uses []float32 (not pgvector.Vector)
// to avoid forcing the pgvector dependency on external consumers.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Searcher is a vector search index over the assessment catalog.
// When provided via WithSearcher, replaces the auto-detected Qdrant index.
// Returns assessment IDs + scores; the recommendation pipeline hydrates
// full assessments from the Store.
type Searcher interface {
	// Query returns assessment ids nearest to the embedding, best first,
	// dropping scores below minSimilarity.
	Query(ctx context.Context, embedding []float32, limit int, minSimilarity float32) ([]SearchResult, error)

	// Healthy returns nil if the index is reachable, or an error
	// describing the problem.
	Healthy(ctx context.Context) error
}

// RecommendationHook receives async notifications after a recommendation
// request succeeds. Multiple hooks may be registered via multiple
// WithRecommendationHook calls. Hooks run in goroutines off the request
// path; they must not block indefinitely. Failures are logged and never
// fail the originating request.
//
// filters holds the filter object submitted with the request, zero when the
// caller sent none. Filters the pipeline inferred from the query text are
// not included.
type RecommendationHook interface {
	OnRecommendation(ctx context.Context, query string, filters Filters, recommendations []Recommendation) error
}

// Store is the catalog persistence contract for external storage backends.
// When provided via WithStore, replaces the configured postgres/sqlite/
// memory driver entirely: the implementation owns durability, filtering,
// and vector matching. App.New() wraps it in an adapter for internal use.
//
// GetAssessment and DeleteAssessment must return ErrNotFound when no
// assessment has the given id. MatchAssessments must order results by
// descending similarity and never include stored vectors.
type Store interface {
	UpsertAssessment(ctx context.Context, a Assessment) (Assessment, error)
	UpsertAssessments(ctx context.Context, items []Assessment) (int, error)
	GetAssessment(ctx context.Context, id string) (Assessment, error)
	ListAssessments(ctx context.Context, opts ListOptions) ([]Assessment, int, error)
	DeleteAssessment(ctx context.Context, id string) error
	CountAssessments(ctx context.Context) (int, error)

	MatchAssessments(ctx context.Context, opts MatchOptions) ([]MatchResult, error)

	// AssessmentsMissingEmbedding returns entries that still need a
	// vector, oldest first, for batch regeneration.
	AssessmentsMissingEmbedding(ctx context.Context, limit int) ([]Assessment, error)
	UpdateAssessmentEmbedding(ctx context.Context, id string, embedding []float32) error

	// ListEmbeddings pages through stored vectors in id order.
	ListEmbeddings(ctx context.Context, limit, offset int) ([]EmbeddingRecord, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
