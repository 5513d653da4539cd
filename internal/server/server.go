package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/mekiki/internal/auth"
	"github.com/ashita-ai/mekiki/internal/catalog"
	"github.com/ashita-ai/mekiki/internal/ratelimit"
	"github.com/ashita-ai/mekiki/internal/search"
	"github.com/ashita-ai/mekiki/internal/service/embedding"
	"github.com/ashita-ai/mekiki/internal/service/evaluation"
	"github.com/ashita-ai/mekiki/internal/service/recommend"
	"github.com/ashita-ai/mekiki/internal/storage"
)

// Server is the mekiki HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a
// Server. Optional fields (nil-safe): Embedder, Searcher, Limiter,
// MCPServer, OpenAPISpec, RecommendationHooks.
type ServerConfig struct {
	// Required dependencies.
	Store        storage.Store
	RecommendSvc *recommend.Service
	EvalSvc      *evaluation.Service
	Loader       *catalog.Loader
	JWTMgr       *auth.JWTManager
	Logger       *slog.Logger

	// Optional dependencies (nil = disabled).
	Embedder            embedding.Provider
	Searcher            search.Searcher
	Limiter             ratelimit.Limiter
	MCPServer           *mcpserver.MCPServer
	RecommendationHooks []RecommendationHook

	// AdminKeyHash is the Argon2id hash of the admin API key. Empty
	// leaves mutating routes open, which New logs loudly.
	AdminKeyHash string

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
	CORSAllowedOrigins  []string

	// Provider names surfaced by /health.
	EmbeddingProviderName string
	LLMProviderName       string

	// Optional embedded assets.
	OpenAPISpec []byte
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Store:                 cfg.Store,
		RecommendSvc:          cfg.RecommendSvc,
		EvalSvc:               cfg.EvalSvc,
		Loader:                cfg.Loader,
		Embedder:              cfg.Embedder,
		Searcher:              cfg.Searcher,
		JWTMgr:                cfg.JWTMgr,
		AdminKeyHash:          cfg.AdminKeyHash,
		Logger:                cfg.Logger,
		Version:               cfg.Version,
		MaxRequestBodyBytes:   cfg.MaxRequestBodyBytes,
		OpenAPISpec:           cfg.OpenAPISpec,
		EmbeddingProviderName: cfg.EmbeddingProviderName,
		LLMProviderName:       cfg.LLMProviderName,
		RecommendationHooks:   cfg.RecommendationHooks,
	})

	if cfg.AdminKeyHash == "" {
		cfg.Logger.Warn("no admin API key configured, mutating routes are open")
	}

	mux := http.NewServeMux()

	// Recommendation endpoints. /recommend is the fixed public contract;
	// /api/recommendations is the rich API.
	mux.HandleFunc("POST /recommend", h.HandleSimpleRecommend)
	mux.HandleFunc("POST /api/recommendations", h.HandleRecommendations)

	// Catalog reads (public).
	mux.HandleFunc("GET /api/assessments", h.HandleListAssessments)
	mux.HandleFunc("GET /api/assessments/{id}", h.HandleGetAssessment)

	// Catalog writes (admin).
	mux.Handle("POST /api/assessments", h.requireAdmin(http.HandlerFunc(h.HandleCreateAssessment)))
	mux.Handle("PUT /api/assessments/{id}", h.requireAdmin(http.HandlerFunc(h.HandleUpdateAssessment)))
	mux.Handle("DELETE /api/assessments/{id}", h.requireAdmin(http.HandlerFunc(h.HandleDeleteAssessment)))
	mux.Handle("POST /api/assessments/upload", h.requireAdmin(http.HandlerFunc(h.HandleUploadCatalog)))

	// Evaluation harness. Replacing the ground-truth set is an admin
	// write; running and reading evaluations is public.
	mux.Handle("POST /api/evaluation/ground-truth", h.requireAdmin(http.HandlerFunc(h.HandleSaveGroundTruth)))
	mux.HandleFunc("GET /api/evaluation/ground-truth", h.HandleGetGroundTruth)
	mux.HandleFunc("POST /api/evaluation/run", h.HandleRunEvaluation)
	mux.HandleFunc("POST /api/evaluation/query", h.HandleEvaluateQuery)
	mux.HandleFunc("GET /api/evaluation/history", h.HandleEvaluationHistory)

	// Token minting (credential check inside the handler).
	mux.HandleFunc("POST /api/auth/token", h.HandleAuthToken)

	// MCP StreamableHTTP transport.
	if cfg.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(cfg.MCPServer))
	}

	// OpenAPI spec and health (no auth, unthrottled).
	mux.HandleFunc("GET /openapi.yaml", h.HandleOpenAPISpec)
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Health and the OpenAPI document stay unthrottled so probes never
	// compete with traffic for the bucket.
	rateLimitKey := func(r *http.Request) string {
		if r.URL.Path == "/health" || r.URL.Path == "/openapi.yaml" {
			return ""
		}
		return ratelimit.IPKeyFunc(r)
	}
	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}

	// Middleware chain (outermost executes first): request ID → security
	// headers → CORS → tracing → logging → rate limit → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	if cfg.Limiter != nil {
		handler = ratelimit.Middleware(cfg.Limiter, rateLimitKey, reqIDFunc, cfg.Logger)(handler)
	}
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = corsMiddleware(cfg.CORSAllowedOrigins, handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
