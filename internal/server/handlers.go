package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ashita-ai/mekiki/internal/auth"
	"github.com/ashita-ai/mekiki/internal/catalog"
	"github.com/ashita-ai/mekiki/internal/model"
	"github.com/ashita-ai/mekiki/internal/search"
	"github.com/ashita-ai/mekiki/internal/service/embedding"
	"github.com/ashita-ai/mekiki/internal/service/evaluation"
	"github.com/ashita-ai/mekiki/internal/service/recommend"
	"github.com/ashita-ai/mekiki/internal/storage"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	store               storage.Store
	recommendSvc        *recommend.Service
	evalSvc             *evaluation.Service
	loader              *catalog.Loader
	embedder            embedding.Provider
	searcher            search.Searcher
	jwtMgr              *auth.JWTManager
	adminKeyHash        string
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
	openapiSpec         []byte

	// Provider names surface in /health so operators can see which
	// backends a deployment resolved to.
	embeddingProviderName string
	llmProviderName       string

	// recommendationHooks are fired asynchronously after a recommendation
	// request succeeds. Nil or empty means no hooks registered.
	recommendationHooks []RecommendationHook
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Optional (nil-safe): Searcher, OpenAPISpec, RecommendationHooks.
type HandlersDeps struct {
	Store        storage.Store
	RecommendSvc *recommend.Service
	EvalSvc      *evaluation.Service
	Loader       *catalog.Loader
	Embedder     embedding.Provider
	Searcher     search.Searcher
	JWTMgr       *auth.JWTManager
	// AdminKeyHash is the Argon2id hash of the admin API key. Empty
	// leaves admin routes open.
	AdminKeyHash          string
	Logger                *slog.Logger
	Version               string
	MaxRequestBodyBytes   int64
	OpenAPISpec           []byte
	EmbeddingProviderName string
	LLMProviderName       string
	RecommendationHooks   []RecommendationHook
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		store:                 d.Store,
		recommendSvc:          d.RecommendSvc,
		evalSvc:               d.EvalSvc,
		loader:                d.Loader,
		embedder:              d.Embedder,
		searcher:              d.Searcher,
		jwtMgr:                d.JWTMgr,
		adminKeyHash:          d.AdminKeyHash,
		logger:                d.Logger,
		startedAt:             time.Now(),
		version:               d.Version,
		maxRequestBodyBytes:   d.MaxRequestBodyBytes,
		openapiSpec:           d.OpenAPISpec,
		embeddingProviderName: d.EmbeddingProviderName,
		llmProviderName:       d.LLMProviderName,
		recommendationHooks:   d.RecommendationHooks,
	}
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK

	storeStatus := "connected"
	if err := h.store.Ping(r.Context()); err != nil {
		storeStatus = "disconnected"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	// A down search index only degrades retrieval to store-side matching,
	// so it does not fail the health check.
	searchStatus := ""
	if h.searcher != nil {
		if err := h.searcher.Healthy(r.Context()); err == nil {
			searchStatus = "connected"
		} else {
			searchStatus = "disconnected"
			if status == "healthy" {
				status = "degraded"
			}
		}
	}

	writeJSON(w, r, httpStatus, model.HealthResponse{
		Status:            status,
		Version:           h.version,
		Store:             storeStatus,
		Search:            searchStatus,
		EmbeddingProvider: h.embeddingProviderName,
		LLMProvider:       h.llmProviderName,
		Uptime:            int64(time.Since(h.startedAt).Seconds()),
	})
}

// HandleAuthToken handles POST /api/auth/token. It exchanges the admin API
// key for a short-lived JWT so the key itself stays out of per-request
// Authorization headers.
func (h *Handlers) HandleAuthToken(w http.ResponseWriter, r *http.Request) {
	var req model.AuthTokenRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.APIKey == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "api_key is required")
		return
	}

	if h.adminKeyHash == "" {
		// Burn the same time as a real verification so probing this
		// endpoint does not reveal whether a key is configured.
		auth.DummyVerify()
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "admin API key is not configured")
		return
	}

	valid, err := auth.VerifyAPIKey(req.APIKey, h.adminKeyHash)
	if err != nil || !valid {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := h.jwtMgr.IssueAdminToken()
	if err != nil {
		h.logger.Error("issue admin token", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "could not issue token")
		return
	}

	writeJSON(w, r, http.StatusOK, model.AuthTokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
	})
}

// HandleOpenAPISpec serves the embedded OpenAPI specification.
func (h *Handlers) HandleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	if len(h.openapiSpec) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.openapiSpec)
}
