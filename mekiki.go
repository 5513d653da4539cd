// Package mekiki is the public API for embedding the Mekiki assessment
// recommendation server.
//
// Programmatic consumers import this package to construct and extend the
// server without forking it:
//
//	app, err := mekiki.New(
//	    mekiki.WithVersion(version),
//	    mekiki.WithLogger(logger),
//	    mekiki.WithEmbeddingProvider(myProvider),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: mekiki (root) imports
// internal/*, but internal/* never imports mekiki (root). Public types
// (Assessment, Recommendation, Filters) are standalone structs with no
// internal imports; conversion helpers (toPublicAssessment,
// toModelAssessment) live here because this is the only file that sees both
// sides of the boundary.
package mekiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/pgvector/pgvector-go"

	"github.com/ashita-ai/mekiki/api"
	"github.com/ashita-ai/mekiki/internal/auth"
	"github.com/ashita-ai/mekiki/internal/catalog"
	"github.com/ashita-ai/mekiki/internal/config"
	"github.com/ashita-ai/mekiki/internal/mcp"
	"github.com/ashita-ai/mekiki/internal/model"
	"github.com/ashita-ai/mekiki/internal/ratelimit"
	"github.com/ashita-ai/mekiki/internal/search"
	"github.com/ashita-ai/mekiki/internal/server"
	"github.com/ashita-ai/mekiki/internal/service/embedding"
	"github.com/ashita-ai/mekiki/internal/service/evaluation"
	"github.com/ashita-ai/mekiki/internal/service/llm"
	"github.com/ashita-ai/mekiki/internal/service/recommend"
	"github.com/ashita-ai/mekiki/internal/storage"
	"github.com/ashita-ai/mekiki/internal/telemetry"
	"github.com/ashita-ai/mekiki/migrations"
)

// ErrNotFound is returned by Store implementations when no assessment has
// the requested id. It aliases the internal storage sentinel so the
// server's error mapping recognizes not-found results from external stores.
var ErrNotFound = storage.ErrNotFound

// Shutdown phase bounds. The HTTP drain lets in-flight recommendations
// finish; the outbox drain flushes pending index writes to Qdrant.
const (
	shutdownHTTPTimeout   = 15 * time.Second
	shutdownOutboxTimeout = 30 * time.Second
)

// App is the Mekiki server lifecycle. Construct with New(), run with Run().
// App has no public fields — use New() options to configure it.
type App struct {
	store        storage.Store
	db           *storage.DB // non-nil only with the postgres driver
	srv          *server.Server
	qdrantIndex  *search.QdrantIndex // nil when Qdrant is not configured
	outbox       *search.OutboxWorker
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string
}

// New initialises the Mekiki server. It opens the catalog store, runs
// migrations where the driver has them, wires the recommendation pipeline,
// and returns a ready-to-run App. It does NOT start any goroutines or
// accept HTTP connections — call Run().
func New(opts ...Option) (*App, error) {
	// Apply options.
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration (env vars), then apply option overrides.
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.databaseURL != "" {
		cfg.DatabaseURL = o.databaseURL
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("mekiki starting", "version", version, "port", cfg.Port, "driver", cfg.StorageDriver)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	// Open the catalog store — an external override takes priority over
	// the configured driver.
	var store storage.Store
	var db *storage.DB
	if o.store != nil {
		store = &storeAdapter{s: o.store}
		logger.Info("storage: external store")
	} else {
		store, db, err = newStore(cfg, logger)
		if err != nil {
			_ = otelShutdown(context.Background())
			return nil, err
		}
	}

	// Create JWT manager.
	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		_ = store.Close(context.Background())
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("auth: %w", err)
	}

	// Create embedding provider — external override takes priority over
	// auto-detect. The public interface carries the same method set as the
	// internal one, so no adapter is needed.
	var embedder embedding.Provider
	embeddingName := "external"
	if o.embeddingProvider != nil {
		embedder = o.embeddingProvider
	} else {
		embedder, embeddingName = newEmbeddingProvider(context.Background(), cfg, logger)
	}

	// Initialize Qdrant search index. With the postgres driver an outbox
	// worker streams catalog writes to the index; other drivers reindex
	// once at startup and rely on external rebuilds after that.
	var searcher search.Searcher
	var qdrantIndex *search.QdrantIndex
	var outboxWorker *search.OutboxWorker
	if cfg.QdrantURL != "" {
		qdrantIndex, err = search.NewQdrantIndex(search.QdrantConfig{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
			Dims:       uint64(cfg.EmbeddingDimensions), //nolint:gosec // validated positive in config.Validate
		}, logger)
		if err != nil {
			_ = store.Close(context.Background())
			_ = otelShutdown(context.Background())
			return nil, fmt.Errorf("qdrant: %w", err)
		}
		if err := qdrantIndex.EnsureCollection(context.Background()); err != nil {
			_ = qdrantIndex.Close()
			_ = store.Close(context.Background())
			_ = otelShutdown(context.Background())
			return nil, fmt.Errorf("qdrant ensure collection: %w", err)
		}
		searcher = qdrantIndex
		if db != nil {
			db.EnableSearchOutbox()
			outboxWorker = search.NewOutboxWorker(db.Pool(), qdrantIndex, logger, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
			logger.Info("qdrant: enabled with outbox sync", "collection", cfg.QdrantCollection)
		} else {
			if n, err := search.NewIndexer(qdrantIndex, store, logger, cfg.OutboxBatchSize).ReindexAll(context.Background()); err != nil {
				logger.Warn("qdrant startup reindex failed", "error", err)
			} else if n > 0 {
				logger.Info("qdrant startup reindex complete", "points", n)
			}
			logger.Info("qdrant: enabled", "collection", cfg.QdrantCollection)
		}
	} else {
		logger.Info("qdrant: disabled (no QDRANT_URL), matching against the store")
	}

	// External Searcher override (replaces Qdrant for retrieval).
	if o.searcher != nil {
		searcher = &searcherAdapter{s: o.searcher}
	}

	// Create LLM reranker and filter extractor.
	reranker, extractor, llmName := newLLM(cfg, logger)

	// Create the recommendation pipeline.
	recommendSvc := recommend.New(store, embedder, reranker, extractor, searcher, recommend.Options{
		DefaultTopK:         cfg.DefaultTopK,
		RetrievalMultiplier: cfg.RetrievalMultiplier,
		MinSimilarity:       float32(cfg.MinSimilarityThreshold),
		AlwaysRerank:        cfg.AlwaysUseLLMReranking,
	}, logger)

	// Evaluation harness and catalog loader.
	evalSvc := evaluation.New(recommendSvc, cfg.DataDir, logger)
	loader := catalog.NewLoader(store, logger)

	// Hash the admin API key; the plaintext never leaves config.
	var adminKeyHash string
	if cfg.AdminAPIKey != "" {
		adminKeyHash, err = auth.HashAPIKey(cfg.AdminAPIKey)
		if err != nil {
			_ = store.Close(context.Background())
			_ = otelShutdown(context.Background())
			return nil, fmt.Errorf("admin key hash: %w", err)
		}
	}

	// Rate limiter.
	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.NewMemoryLimiter(float64(cfg.RateLimitRPS), cfg.RateLimitBurst)
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		logger.Info("rate limiting: disabled")
	}

	// MCP server.
	var mcpSrv *mcpserver.MCPServer
	if cfg.MCPEnabled {
		mcpSrv = mcp.New(store, recommendSvc, logger, version).MCPServer()
		logger.Info("mcp: enabled at /mcp")
	}

	// Adapt public mekiki.RecommendationHook to internal server hooks.
	var recommendationHooks []server.RecommendationHook
	for _, h := range o.recommendationHooks {
		recommendationHooks = append(recommendationHooks, &recommendationHookAdapter{hook: h})
	}

	// Create HTTP server.
	srv := server.New(server.ServerConfig{
		Store:                 store,
		RecommendSvc:          recommendSvc,
		EvalSvc:               evalSvc,
		Loader:                loader,
		JWTMgr:                jwtMgr,
		Logger:                logger,
		Embedder:              embedder,
		Searcher:              searcher,
		Limiter:               limiter,
		MCPServer:             mcpSrv,
		AdminKeyHash:          adminKeyHash,
		Port:                  cfg.Port,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		Version:               version,
		MaxRequestBodyBytes:   cfg.MaxRequestBodyBytes,
		CORSAllowedOrigins:    cfg.CORSAllowedOrigins,
		EmbeddingProviderName: embeddingName,
		LLMProviderName:       llmName,
		OpenAPISpec:           api.OpenAPISpec,
		RecommendationHooks:   recommendationHooks,
	})

	return &App{
		store:        store,
		db:           db,
		srv:          srv,
		qdrantIndex:  qdrantIndex,
		outbox:       outboxWorker,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// Run starts the outbox worker and the HTTP server, then blocks until ctx
// is cancelled or a fatal server error occurs. On return, Shutdown is
// called automatically — callers should not call Shutdown separately.
func (a *App) Run(ctx context.Context) error {
	if a.outbox != nil {
		a.outbox.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	return a.Shutdown(context.Background())
}

// Shutdown performs a graceful shutdown: stop accepting HTTP requests and
// drain in-flight ones, drain remaining outbox entries to Qdrant, then
// close the index, OTEL provider, and store.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("mekiki shutting down")

	httpCtx, httpCancel := context.WithTimeout(ctx, shutdownHTTPTimeout)
	if err := a.srv.Shutdown(httpCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}
	httpCancel()

	if a.outbox != nil {
		outboxCtx, outboxCancel := context.WithTimeout(ctx, shutdownOutboxTimeout)
		a.outbox.Drain(outboxCtx)
		outboxCancel()
	}

	if a.qdrantIndex != nil {
		_ = a.qdrantIndex.Close()
	}
	_ = a.otelShutdown(context.Background())
	if err := a.store.Close(context.Background()); err != nil {
		a.logger.Error("store close error", "error", err)
	}

	a.logger.Info("mekiki stopped")
	return nil
}

// ── Provider factories ──────────────────────────────────────────────────────

// newStore opens the catalog store for the configured driver. The returned
// *storage.DB is non-nil only for postgres, where the outbox worker needs
// direct pool access.
func newStore(cfg config.Config, logger *slog.Logger) (storage.Store, *storage.DB, error) {
	driver := cfg.StorageDriver
	if cfg.UseMockData {
		driver = config.DriverMemory
	}

	switch driver {
	case config.DriverMemory:
		mem := storage.NewMemory()
		if err := catalog.SeedStore(context.Background(), mem); err != nil {
			return nil, nil, fmt.Errorf("seed catalog: %w", err)
		}
		logger.Info("storage: memory (seeded catalog)")
		return mem, nil, nil

	case config.DriverSQLite:
		st, err := storage.NewSQLite(context.Background(), cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("storage: %w", err)
		}
		logger.Info("storage: sqlite", "path", cfg.SQLitePath)
		return st, nil, nil

	case config.DriverPostgres:
		db, err := storage.New(context.Background(), cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("storage: %w", err)
		}
		if err := db.RunMigrations(context.Background(), migrations.FS); err != nil {
			_ = db.Close(context.Background())
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		logger.Info("storage: postgres")
		return db, db, nil

	default:
		return nil, nil, fmt.Errorf("config: unknown storage driver %q", driver)
	}
}

// newEmbeddingProvider picks the embedding backend from config. Auto mode
// prefers Gemini, then OpenAI, then a reachable Ollama, and falls back to
// the deterministic mock so the server always starts.
func newEmbeddingProvider(ctx context.Context, cfg config.Config, logger *slog.Logger) (embedding.Provider, string) {
	dims := cfg.EmbeddingDimensions

	if cfg.UseMockData {
		logger.Info("embedding provider: mock (USE_MOCK_DATA=true)")
		return embedding.NewMockProvider(dims), "mock"
	}

	switch cfg.EmbeddingProvider {
	case "gemini":
		p, err := embedding.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModelID, dims)
		if err != nil {
			logger.Error("gemini embedding init failed, using mock", "error", err)
			return embedding.NewMockProvider(dims), "mock"
		}
		logger.Info("embedding provider: gemini", "model", cfg.EmbeddingModelID, "dimensions", dims)
		return p, "gemini"
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Error("OPENAI_API_KEY required when MEKIKI_EMBEDDING_PROVIDER=openai, using mock")
			return embedding.NewMockProvider(dims), "mock"
		}
		logger.Info("embedding provider: openai", "model", cfg.EmbeddingModelID, "dimensions", dims)
		return embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModelID, dims), "openai"
	case "ollama":
		logger.Info("embedding provider: ollama", "url", cfg.OllamaURL, "model", cfg.OllamaModel, "dimensions", dims)
		return embedding.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, dims), "ollama"
	case "mock":
		logger.Info("embedding provider: mock")
		return embedding.NewMockProvider(dims), "mock"
	case "auto":
		fallthrough
	default:
		if cfg.GeminiAPIKey != "" {
			p, err := embedding.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModelID, dims)
			if err == nil {
				logger.Info("embedding provider: gemini (auto-detected)", "model", cfg.EmbeddingModelID, "dimensions", dims)
				return p, "gemini"
			}
			logger.Error("gemini embedding init failed", "error", err)
		}
		if cfg.OpenAIAPIKey != "" {
			logger.Info("embedding provider: openai (auto-detected)", "model", cfg.EmbeddingModelID, "dimensions", dims)
			return embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModelID, dims), "openai"
		}
		if ollamaReachable(cfg.OllamaURL) {
			logger.Info("embedding provider: ollama (auto-detected)", "url", cfg.OllamaURL, "model", cfg.OllamaModel, "dimensions", dims)
			return embedding.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, dims), "ollama"
		}
		logger.Warn("no embedding provider available, using mock (deterministic vectors)")
		return embedding.NewMockProvider(dims), "mock"
	}
}

// newLLM picks the reranking/filter-inference backend from config. One
// client serves both roles. Auto mode follows the same precedence as
// embeddings; the mock falls back to keyword scoring and regex filters.
func newLLM(cfg config.Config, logger *slog.Logger) (llm.Reranker, llm.FilterExtractor, string) {
	if cfg.UseMockData {
		logger.Info("llm provider: mock (USE_MOCK_DATA=true)")
		m := llm.NewMock()
		return m, m, "mock"
	}

	switch cfg.LLMProvider {
	case "gemini":
		client, err := llm.NewGeminiClient(cfg.GeminiAPIKey, cfg.LLMModelID)
		if err != nil {
			logger.Error("gemini llm init failed, using mock", "error", err)
			m := llm.NewMock()
			return m, m, "mock"
		}
		logger.Info("llm provider: gemini", "model", cfg.LLMModelID)
		svc := llm.NewService(client, logger)
		return svc, svc, "gemini"
	case "openai":
		client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.LLMModelID)
		if err != nil {
			logger.Error("openai llm init failed, using mock", "error", err)
			m := llm.NewMock()
			return m, m, "mock"
		}
		logger.Info("llm provider: openai", "model", cfg.LLMModelID)
		svc := llm.NewService(client, logger)
		return svc, svc, "openai"
	case "ollama":
		logger.Info("llm provider: ollama", "url", cfg.OllamaURL, "model", cfg.LLMModelID)
		svc := llm.NewService(llm.NewOllamaClient(cfg.OllamaURL, cfg.LLMModelID), logger)
		return svc, svc, "ollama"
	case "mock":
		logger.Info("llm provider: mock")
		m := llm.NewMock()
		return m, m, "mock"
	case "auto":
		fallthrough
	default:
		if cfg.GeminiAPIKey != "" {
			client, err := llm.NewGeminiClient(cfg.GeminiAPIKey, cfg.LLMModelID)
			if err == nil {
				logger.Info("llm provider: gemini (auto-detected)", "model", cfg.LLMModelID)
				svc := llm.NewService(client, logger)
				return svc, svc, "gemini"
			}
			logger.Error("gemini llm init failed", "error", err)
		}
		if cfg.OpenAIAPIKey != "" {
			client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.LLMModelID)
			if err == nil {
				logger.Info("llm provider: openai (auto-detected)", "model", cfg.LLMModelID)
				svc := llm.NewService(client, logger)
				return svc, svc, "openai"
			}
			logger.Error("openai llm init failed", "error", err)
		}
		if ollamaReachable(cfg.OllamaURL) {
			logger.Info("llm provider: ollama (auto-detected)", "url", cfg.OllamaURL, "model", cfg.LLMModelID)
			svc := llm.NewService(llm.NewOllamaClient(cfg.OllamaURL, cfg.LLMModelID), logger)
			return svc, svc, "ollama"
		}
		logger.Warn("no LLM provider available, using mock (keyword reranking)")
		m := llm.NewMock()
		return m, m, "mock"
	}
}

func ollamaReachable(baseURL string) bool {
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(c, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ── Adapters (defined here because this file imports both sides) ────────────

// searcherAdapter wraps a mekiki.Searcher to satisfy search.Searcher.
type searcherAdapter struct {
	s Searcher
}

func (a *searcherAdapter) Query(ctx context.Context, emb []float32, limit int, minSimilarity float32) ([]search.Result, error) {
	results, err := a.s.Query(ctx, emb, limit, minSimilarity)
	if err != nil {
		return nil, err
	}
	out := make([]search.Result, len(results))
	for i, r := range results {
		out[i] = search.Result{AssessmentID: r.AssessmentID, Score: r.Score}
	}
	return out, nil
}

func (a *searcherAdapter) Healthy(ctx context.Context) error {
	return a.s.Healthy(ctx)
}

// recommendationHookAdapter wraps a mekiki.RecommendationHook to satisfy
// server.RecommendationHook. It converts internal model types to public
// mekiki types at the boundary.
type recommendationHookAdapter struct {
	hook RecommendationHook
}

func (a *recommendationHookAdapter) OnRecommendation(ctx context.Context, query string, filters model.Filters, recs []model.RecommendedAssessment) error {
	pub := make([]Recommendation, len(recs))
	for i, rec := range recs {
		pub[i] = Recommendation{
			Assessment:      toPublicAssessment(rec.Assessment),
			SimilarityScore: rec.SimilarityScore,
			Rank:            rec.Rank,
			Explanation:     rec.Explanation,
		}
	}
	return a.hook.OnRecommendation(ctx, query, toPublicFilters(filters), pub)
}

// storeAdapter wraps a mekiki.Store to satisfy storage.Store. It converts
// model types to public types at the boundary, including the pgvector /
// []float32 translation.
type storeAdapter struct {
	s Store
}

func (a *storeAdapter) UpsertAssessment(ctx context.Context, m model.Assessment) (model.Assessment, error) {
	saved, err := a.s.UpsertAssessment(ctx, toPublicAssessment(m))
	if err != nil {
		return model.Assessment{}, err
	}
	return toModelAssessment(saved), nil
}

func (a *storeAdapter) UpsertAssessments(ctx context.Context, items []model.Assessment) (int, error) {
	pub := make([]Assessment, len(items))
	for i, m := range items {
		pub[i] = toPublicAssessment(m)
	}
	return a.s.UpsertAssessments(ctx, pub)
}

func (a *storeAdapter) GetAssessment(ctx context.Context, id string) (model.Assessment, error) {
	got, err := a.s.GetAssessment(ctx, id)
	if err != nil {
		return model.Assessment{}, err
	}
	return toModelAssessment(got), nil
}

func (a *storeAdapter) ListAssessments(ctx context.Context, p storage.ListParams) ([]model.Assessment, int, error) {
	pub, total, err := a.s.ListAssessments(ctx, ListOptions{
		Limit:         p.Limit,
		Offset:        p.Offset,
		Source:        p.Source,
		TestType:      p.TestType,
		JobLevel:      p.JobLevel,
		Search:        p.Search,
		RemoteTesting: p.RemoteTesting,
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.Assessment, len(pub))
	for i, item := range pub {
		out[i] = toModelAssessment(item)
	}
	return out, total, nil
}

func (a *storeAdapter) DeleteAssessment(ctx context.Context, id string) error {
	return a.s.DeleteAssessment(ctx, id)
}

func (a *storeAdapter) CountAssessments(ctx context.Context) (int, error) {
	return a.s.CountAssessments(ctx)
}

func (a *storeAdapter) MatchAssessments(ctx context.Context, p storage.MatchParams) ([]model.MatchResult, error) {
	pub, err := a.s.MatchAssessments(ctx, MatchOptions{
		Embedding:     p.Embedding,
		Limit:         p.Limit,
		MinSimilarity: p.MinSimilarity,
		QueryText:     p.QueryText,
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.MatchResult, len(pub))
	for i, r := range pub {
		out[i] = model.MatchResult{Assessment: toModelAssessment(r.Assessment), Similarity: r.Similarity}
	}
	return out, nil
}

func (a *storeAdapter) AssessmentsMissingEmbedding(ctx context.Context, limit int) ([]model.Assessment, error) {
	pub, err := a.s.AssessmentsMissingEmbedding(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Assessment, len(pub))
	for i, item := range pub {
		out[i] = toModelAssessment(item)
	}
	return out, nil
}

func (a *storeAdapter) UpdateAssessmentEmbedding(ctx context.Context, id string, emb []float32) error {
	return a.s.UpdateAssessmentEmbedding(ctx, id, emb)
}

func (a *storeAdapter) ListEmbeddings(ctx context.Context, limit, offset int) ([]storage.IDVector, error) {
	recs, err := a.s.ListEmbeddings(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]storage.IDVector, len(recs))
	for i, r := range recs {
		out[i] = storage.IDVector{ID: r.ID, Name: r.Name, Source: r.Source, Embedding: r.Embedding}
	}
	return out, nil
}

func (a *storeAdapter) Ping(ctx context.Context) error {
	return a.s.Ping(ctx)
}

func (a *storeAdapter) Close(ctx context.Context) error {
	return a.s.Close(ctx)
}

// ── Type converters ──────────────────────────────────────────────────────────

// toPublicAssessment converts an internal model.Assessment to the public
// mekiki.Assessment. Lives here because this is the only file that imports
// both sides of the boundary.
func toPublicAssessment(m model.Assessment) Assessment {
	var emb []float32
	if m.Embedding != nil {
		emb = m.Embedding.Slice()
	}
	return Assessment{
		ID:                 m.ID,
		Name:               m.Name,
		Description:        m.Description,
		URL:                m.URL,
		RemoteTesting:      m.RemoteTesting,
		AdaptiveIRT:        m.AdaptiveIRT,
		TestTypes:          m.TestTypes,
		JobLevels:          m.JobLevels,
		Languages:          m.Languages,
		KeyFeatures:        m.KeyFeatures,
		DurationText:       m.DurationText,
		DurationMinMinutes: m.DurationMinMinutes,
		DurationMaxMinutes: m.DurationMaxMinutes,
		IsUntimed:          m.IsUntimed,
		IsVariable:         m.IsVariable,
		Source:             m.Source,
		Embedding:          emb,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// toModelAssessment converts a public mekiki.Assessment to the internal
// model.Assessment.
func toModelAssessment(p Assessment) model.Assessment {
	m := model.Assessment{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		URL:                p.URL,
		RemoteTesting:      p.RemoteTesting,
		AdaptiveIRT:        p.AdaptiveIRT,
		TestTypes:          p.TestTypes,
		JobLevels:          p.JobLevels,
		Languages:          p.Languages,
		KeyFeatures:        p.KeyFeatures,
		DurationText:       p.DurationText,
		DurationMinMinutes: p.DurationMinMinutes,
		DurationMaxMinutes: p.DurationMaxMinutes,
		IsUntimed:          p.IsUntimed,
		IsVariable:         p.IsVariable,
		Source:             p.Source,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if p.Embedding != nil {
		v := pgvector.NewVector(p.Embedding)
		m.Embedding = &v
	}
	return m
}

// toPublicFilters converts internal model.Filters to the public
// mekiki.Filters.
func toPublicFilters(f model.Filters) Filters {
	return Filters{
		JobLevels:          f.JobLevels,
		TestTypes:          f.TestTypes,
		Languages:          f.Languages,
		MaxDurationMinutes: f.MaxDurationMinutes,
		DurationType:       string(f.DurationType),
		MinSimilarity:      f.MinSimilarity,
		RemoteTesting:      f.RemoteTesting,
	}
}
