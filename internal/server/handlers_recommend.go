package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ashita-ai/mekiki/internal/model"
	"github.com/ashita-ai/mekiki/internal/service/recommend"
)

// simpleContractMaxItems caps the fixed /recommend contract at ten items.
const simpleContractMaxItems = 10

// HandleSimpleRecommend handles POST /recommend, the fixed public contract.
// It never returns an HTTP error: any failure, including a malformed body,
// yields an empty recommendation list with the cause logged.
func (h *Handlers) HandleSimpleRecommend(w http.ResponseWriter, r *http.Request) {
	empty := model.SimpleRecommendResponse{RecommendedAssessments: []model.SimpleRecommendation{}}

	var req model.SimpleRecommendRequest
	body := http.MaxBytesReader(w, r.Body, h.maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.logger.Warn("recommend contract: bad request body", "error", err,
			"request_id", RequestIDFromContext(r.Context()))
		writeJSON(w, r, http.StatusOK, empty)
		return
	}

	topK := req.TopK
	if topK < 1 || topK > simpleContractMaxItems {
		topK = 0 // let the pipeline default apply, capped below
	}

	res, err := h.recommendSvc.Recommend(r.Context(), model.RecommendationRequest{
		Query: req.Query,
		TopK:  topK,
	})
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, recommend.ErrInvalidRequest) {
			level = slog.LevelWarn
		}
		h.logger.Log(r.Context(), level, "recommend contract: pipeline failed", "error", err,
			"request_id", RequestIDFromContext(r.Context()))
		writeJSON(w, r, http.StatusOK, empty)
		return
	}

	items := res.Items
	if len(items) > simpleContractMaxItems {
		items = items[:simpleContractMaxItems]
	}
	out := make([]model.SimpleRecommendation, len(items))
	for i, item := range items {
		out[i] = model.NewSimpleRecommendation(item)
	}
	h.fireRecommendationHooks(r.Context(), req.Query, nil, items)
	writeJSON(w, r, http.StatusOK, model.SimpleRecommendResponse{RecommendedAssessments: out})
}

// HandleRecommendations handles POST /api/recommendations, the rich API.
// A top_k query parameter overrides the body value.
func (h *Handlers) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req model.RecommendationRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	if raw := r.URL.Query().Get("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "top_k must be an integer")
			return
		}
		req.TopK = n
	}

	res, err := h.recommendSvc.Recommend(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, recommend.ErrInvalidRequest):
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		case errors.Is(err, recommend.ErrEmbedding):
			writeError(w, r, http.StatusBadGateway, model.ErrCodeUpstreamUnavailable, "embedding provider unavailable")
		case errors.Is(err, recommend.ErrRetrieval):
			h.logger.Error("recommendation retrieval failed", "error", err,
				"request_id", RequestIDFromContext(r.Context()))
			writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "retrieval failed")
		default:
			h.logger.Error("recommendation failed", "error", err,
				"request_id", RequestIDFromContext(r.Context()))
			writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error")
		}
		return
	}

	h.fireRecommendationHooks(r.Context(), req.Query, req.Filters, res.Items)
	writeJSON(w, r, http.StatusOK, model.RecommendationResponse{
		Recommendations:  res.Items,
		QueryEmbedding:   res.QueryEmbedding,
		ProcessingTime:   res.ProcessingTime,
		TotalAssessments: res.TotalCandidates,
		Timestamp:        time.Now().UTC(),
	})
}

// fireRecommendationHooks notifies registered hooks off the request path.
// The context is detached from request cancellation so hooks can outlive the
// response write; request-scoped values (request id, trace) carry over.
func (h *Handlers) fireRecommendationHooks(ctx context.Context, query string, filters *model.Filters, recs []model.RecommendedAssessment) {
	if len(h.recommendationHooks) == 0 {
		return
	}
	var f model.Filters
	if filters != nil {
		f = *filters
	}
	hookCtx := context.WithoutCancel(ctx)
	for _, hook := range h.recommendationHooks {
		go func() {
			if err := hook.OnRecommendation(hookCtx, query, f, recs); err != nil {
				h.logger.Warn("recommendation hook failed", "error", err,
					"request_id", RequestIDFromContext(hookCtx))
			}
		}()
	}
}
