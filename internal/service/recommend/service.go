// Package recommend provides the shared recommendation pipeline for the
// assessment catalog.
//
// Both the HTTP API and the MCP server delegate to this service, ensuring
// consistent behavior (query embedding, filter inference, retrieval,
// post-filtering, LLM reranking) across all interfaces. The pipeline
// degrades gracefully where it can: filter inference falls back to no
// inferred filters and reranking falls back to similarity order, while
// embedding and store failures fail the request.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ashita-ai/mekiki/internal/model"
	"github.com/ashita-ai/mekiki/internal/search"
	"github.com/ashita-ai/mekiki/internal/service/embedding"
	"github.com/ashita-ai/mekiki/internal/service/llm"
	"github.com/ashita-ai/mekiki/internal/storage"
	"github.com/ashita-ai/mekiki/internal/telemetry"
)

// Pipeline failures the transport layer maps onto status codes. Validation
// problems are the caller's fault, embedding problems are an upstream
// provider outage, retrieval problems are ours.
var (
	ErrInvalidRequest = errors.New("invalid recommendation request")
	ErrEmbedding      = errors.New("embedding provider unavailable")
	ErrRetrieval      = errors.New("catalog retrieval failed")
)

// explanationFormat renders the per-item explanation from the similarity
// score and the original query.
const explanationFormat = "This assessment has a semantic relevance of %.2f to your query about '%s'"

// Options tunes the pipeline. Zero values fall back to the documented
// defaults, except MinSimilarity where zero genuinely means no floor.
type Options struct {
	// DefaultTopK is applied when a request omits top_k.
	DefaultTopK int
	// RetrievalMultiplier sizes the raw candidate pool as a multiple of
	// the requested page, leaving the post-filter room to discard.
	RetrievalMultiplier int
	// MinSimilarity is the default similarity floor at retrieval. A
	// request's min_similarity filter overrides it per call; an explicit
	// zero from either side disables the floor.
	MinSimilarity float32
	// AlwaysRerank forces the LLM rerank step even when the candidate
	// pool already fits the requested page.
	AlwaysRerank bool
}

// Result is the pipeline outcome. TotalCandidates counts the raw retrieval
// pool before post-filtering; responses surface it as total_assessments.
type Result struct {
	Items           []model.RecommendedAssessment
	QueryEmbedding  []float32
	ProcessingTime  float64 // wall-clock seconds
	TotalCandidates int
}

// Service encapsulates the recommendation pipeline shared by HTTP and MCP
// handlers.
type Service struct {
	store     storage.Store
	embedder  embedding.Provider
	reranker  llm.Reranker
	extractor llm.FilterExtractor
	searcher  search.Searcher
	opts      Options
	logger    *slog.Logger

	embeddingDuration metric.Float64Histogram
	retrievalDuration metric.Float64Histogram
	rerankDuration    metric.Float64Histogram
	pipelineDuration  metric.Float64Histogram
}

// New creates a recommendation Service.
// searcher may be nil if no external vector index is configured (retrieval
// then goes straight to the store).
func New(store storage.Store, embedder embedding.Provider, reranker llm.Reranker, extractor llm.FilterExtractor, searcher search.Searcher, opts Options, logger *slog.Logger) *Service {
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = 5
	}
	if opts.RetrievalMultiplier < 1 {
		opts.RetrievalMultiplier = 3
	}

	meter := telemetry.Meter("mekiki/recommend")
	embDur, _ := meter.Float64Histogram("mekiki.embedding.duration",
		metric.WithDescription("Time to embed the query (ms)"),
		metric.WithUnit("ms"),
	)
	retrDur, _ := meter.Float64Histogram("mekiki.retrieval.duration",
		metric.WithDescription("Time to retrieve the candidate pool (ms)"),
		metric.WithUnit("ms"),
	)
	rerankDur, _ := meter.Float64Histogram("mekiki.rerank.duration",
		metric.WithDescription("Time spent in LLM reranking (ms)"),
		metric.WithUnit("ms"),
	)
	pipeDur, _ := meter.Float64Histogram("mekiki.pipeline.duration",
		metric.WithDescription("End-to-end recommendation pipeline time (ms)"),
		metric.WithUnit("ms"),
	)

	return &Service{
		store:             store,
		embedder:          embedder,
		reranker:          reranker,
		extractor:         extractor,
		searcher:          searcher,
		opts:              opts,
		logger:            logger,
		embeddingDuration: embDur,
		retrievalDuration: retrDur,
		rerankDuration:    rerankDur,
		pipelineDuration:  pipeDur,
	}
}

// Recommend turns a natural-language hiring query into a ranked page of at
// most req.TopK assessments. An empty page is a valid outcome; the only
// errors are an invalid request, an embedding provider failure, and a store
// failure.
func (s *Service) Recommend(ctx context.Context, req model.RecommendationRequest) (Result, error) {
	start := time.Now()

	// 1. Validate the normalized request.
	req.Normalize(s.opts.DefaultTopK)
	if err := req.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Int("mekiki.top_k", req.TopK),
		attribute.Int("mekiki.query_length", len(req.Query)),
	)

	var caller model.Filters
	if req.Filters != nil {
		caller = *req.Filters
	}

	// 2. Embed the query and infer filters from it concurrently. Inference
	// is best-effort; a failure costs the inferred axes, not the request.
	var (
		queryEmb []float32
		inferred model.Filters
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		embStart := time.Now()
		emb, err := s.embedder.Embed(gctx, req.Query)
		s.embeddingDuration.Record(gctx, float64(time.Since(embStart).Milliseconds()))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEmbedding, err)
		}
		queryEmb = emb
		return nil
	})
	g.Go(func() error {
		f, err := s.extractor.ExtractFilters(gctx, req.Query)
		if err != nil {
			s.logger.Warn("recommend: filter extraction failed, continuing without inferred filters", "error", err)
			return nil
		}
		inferred = f
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	// 3. Merge filters; the caller wins on every axis it set.
	filters := model.MergeFilters(caller, inferred)

	// 4. Retrieve an over-fetched candidate pool by vector similarity.
	minSim := s.opts.MinSimilarity
	if filters.MinSimilarity != nil {
		minSim = *filters.MinSimilarity
	}
	retrStart := time.Now()
	raw, err := s.match(ctx, queryEmb, req.Query, req.TopK*s.opts.RetrievalMultiplier, minSim)
	s.retrievalDuration.Record(ctx, float64(time.Since(retrStart).Milliseconds()))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	// 5. Post-filter. If inferred axes emptied a non-empty pool, drop them
	// and re-filter once with the caller's axes only. Caller-supplied axes
	// are never relaxed.
	candidates := s.applyFilters(raw, filters)
	if len(candidates) == 0 && len(raw) > 0 && hasInferredAxes(caller, filters) {
		s.logger.Info("recommend: inferred filters removed every candidate, relaxing them",
			"pool", len(raw))
		candidates = s.applyFilters(raw, caller)
	}

	// 6. An empty page is a valid answer, not an error.
	if len(candidates) == 0 {
		return Result{
			Items:           []model.RecommendedAssessment{},
			QueryEmbedding:  queryEmb,
			ProcessingTime:  time.Since(start).Seconds(),
			TotalCandidates: len(raw),
		}, nil
	}

	// 7-8. Order the pool: LLM rerank when it exceeds the requested page
	// or configuration forces it, similarity order otherwise.
	ordered := s.order(ctx, req.Query, candidates, req.TopK)

	// 9. Attach scores, 1-based ranks, and explanations.
	items := make([]model.RecommendedAssessment, len(ordered))
	for i, m := range ordered {
		items[i] = model.RecommendedAssessment{
			Assessment:      m.Assessment,
			SimilarityScore: m.Similarity,
			Rank:            i + 1,
			Explanation:     fmt.Sprintf(explanationFormat, m.Similarity, req.Query),
		}
	}

	elapsed := time.Since(start)
	s.pipelineDuration.Record(ctx, float64(elapsed.Milliseconds()))
	s.logger.Info("recommend: pipeline finished",
		"items", len(items), "pool", len(raw), "top_k", req.TopK,
		"duration_ms", elapsed.Milliseconds())

	return Result{
		Items:           items,
		QueryEmbedding:  queryEmb,
		ProcessingTime:  elapsed.Seconds(),
		TotalCandidates: len(raw),
	}, nil
}

// order decides between LLM reranking and similarity order and returns at
// most topK candidates. Any rerank failure falls back to similarity order.
func (s *Service) order(ctx context.Context, query string, candidates []model.MatchResult, topK int) []model.MatchResult {
	if len(candidates) > topK || s.opts.AlwaysRerank {
		reranked, err := s.rerank(ctx, query, candidates, topK)
		if err == nil {
			return reranked
		}
		s.logger.Warn("recommend: rerank failed, falling back to similarity order", "error", err)
	}
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

// rerank asks the LLM for a best-to-worst index list over the candidate
// context docs. Indices are re-checked here even though the client
// sanitizes them; out-of-range or duplicate entries are skipped and any
// remaining slots are topped up from similarity order.
func (s *Service) rerank(ctx context.Context, query string, candidates []model.MatchResult, topK int) ([]model.MatchResult, error) {
	rerankStart := time.Now()
	indices, err := s.reranker.Rerank(ctx, query, contextDocs(candidates), topK)
	s.rerankDuration.Record(ctx, float64(time.Since(rerankStart).Milliseconds()))
	if err != nil {
		return nil, err
	}

	out := make([]model.MatchResult, 0, topK)
	used := make(map[int]bool, topK)
	for _, idx := range indices {
		if idx < 0 || idx >= len(candidates) || used[idx] {
			continue
		}
		out = append(out, candidates[idx])
		used[idx] = true
		if len(out) == topK {
			break
		}
	}
	for i := 0; i < len(candidates) && len(out) < topK; i++ {
		if !used[i] {
			out = append(out, candidates[i])
			used[i] = true
		}
	}
	return out, nil
}

// match retrieves the raw candidate pool.
// Fallback chain: vector index (when configured and healthy) → store match.
// Index hits are hydrated from the store; any index failure falls through.
func (s *Service) match(ctx context.Context, queryEmb []float32, query string, limit int, minSimilarity float32) ([]model.MatchResult, error) {
	if s.searcher != nil {
		if err := s.searcher.Healthy(ctx); err == nil {
			hits, err := s.searcher.Query(ctx, queryEmb, limit, minSimilarity)
			if err == nil {
				return s.hydrate(ctx, hits)
			}
			s.logger.Warn("recommend: vector index query failed, falling back to store match", "error", err)
		} else {
			s.logger.Debug("recommend: vector index unhealthy, using store match", "error", err)
		}
	}

	return s.store.MatchAssessments(ctx, storage.MatchParams{
		Embedding:     queryEmb,
		Limit:         limit,
		MinSimilarity: minSimilarity,
		QueryText:     query,
	})
}

// hydrate resolves index hits to full assessments, preserving the hit order
// and dropping ids the store no longer has. The pool is small enough that
// per-id lookups are fine.
func (s *Service) hydrate(ctx context.Context, hits []search.Result) ([]model.MatchResult, error) {
	out := make([]model.MatchResult, 0, len(hits))
	for _, h := range hits {
		a, err := s.store.GetAssessment(ctx, h.AssessmentID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.logger.Warn("recommend: vector index returned unknown assessment", "id", h.AssessmentID)
				continue
			}
			return nil, fmt.Errorf("hydrate assessment %s: %w", h.AssessmentID, err)
		}
		out = append(out, model.MatchResult{Assessment: a, Similarity: h.Score})
	}
	return out, nil
}
