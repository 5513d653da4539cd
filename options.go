package mekiki

import "log/slog"

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	port                int
	databaseURL         string
	dataDir             string
	logger              *slog.Logger
	version             string
	store               Store
	embeddingProvider   EmbeddingProvider
	searcher            Searcher
	recommendationHooks []RecommendationHook
}

// WithPort overrides the TCP port from config (MEKIKI_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithDatabaseURL overrides the database connection string from config
// (DATABASE_URL env var). Only meaningful with the postgres storage driver.
func WithDatabaseURL(url string) Option {
	return func(o *resolvedOptions) { o.databaseURL = url }
}

// WithDataDir overrides the directory for ground-truth datasets and
// evaluation artifacts (MEKIKI_DATA_DIR env var).
func WithDataDir(dir string) Option {
	return func(o *resolvedOptions) { o.dataDir = dir }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithStore replaces the configured storage driver (postgres/sqlite/memory)
// with an external catalog store. When set, DATABASE_URL and STORAGE_DRIVER
// are ignored and no migrations run — the implementation owns its schema.
func WithStore(s Store) Option {
	return func(o *resolvedOptions) { o.store = s }
}

// WithEmbeddingProvider replaces the auto-detected embedding provider
// (Gemini/OpenAI/Ollama/mock). The provided implementation must satisfy
// the EmbeddingProvider interface.
func WithEmbeddingProvider(p EmbeddingProvider) Option {
	return func(o *resolvedOptions) { o.embeddingProvider = p }
}

// WithSearcher replaces the auto-detected Qdrant vector search index.
// Retrieval falls back to the store's own vector matching when neither a
// Searcher nor Qdrant is configured.
func WithSearcher(s Searcher) Option {
	return func(o *resolvedOptions) { o.searcher = s }
}

// WithRecommendationHook registers a hook that is notified after each
// successful recommendation request. Multiple hooks may be registered; all
// of them receive every event.
func WithRecommendationHook(hook RecommendationHook) Option {
	return func(o *resolvedOptions) { o.recommendationHooks = append(o.recommendationHooks, hook) }
}
