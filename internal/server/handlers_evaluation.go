package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ashita-ai/mekiki/internal/model"
	"github.com/ashita-ai/mekiki/internal/service/evaluation"
)

// HandleSaveGroundTruth handles POST /api/evaluation/ground-truth. The body
// is a bare array of entries that replaces the current set.
func (h *Handlers) HandleSaveGroundTruth(w http.ResponseWriter, r *http.Request) {
	var entries []model.GroundTruth
	if err := decodeJSON(w, r, &entries, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if len(entries) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "at least one ground truth entry is required")
		return
	}
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, fmt.Sprintf("entry %d: %v", i, err))
			return
		}
	}

	if err := h.evalSvc.SaveGroundTruth(entries); err != nil {
		h.logger.Error("save ground truth", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "could not save ground truth")
		return
	}

	h.logger.Info("ground truth replaced", "count", len(entries), "actor", adminActor(r.Context()))
	writeJSON(w, r, http.StatusOK, map[string]any{
		"message": "ground truth saved",
		"count":   len(entries),
	})
}

// HandleGetGroundTruth handles GET /api/evaluation/ground-truth.
func (h *Handlers) HandleGetGroundTruth(w http.ResponseWriter, r *http.Request) {
	entries, err := h.evalSvc.GroundTruth()
	if err != nil {
		if errors.Is(err, evaluation.ErrNoGroundTruth) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "no ground truth saved")
			return
		}
		h.logger.Error("load ground truth", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "could not load ground truth")
		return
	}
	writeJSON(w, r, http.StatusOK, entries)
}

// HandleRunEvaluation handles POST /api/evaluation/run?k=N: the full
// ground-truth set is scored and the summary persisted as an artifact.
func (h *Handlers) HandleRunEvaluation(w http.ResponseWriter, r *http.Request) {
	k, ok := parseK(w, r)
	if !ok {
		return
	}

	summary, err := h.evalSvc.EvaluateAll(r.Context(), k)
	if err != nil {
		if errors.Is(err, evaluation.ErrNoGroundTruth) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "no ground truth saved")
			return
		}
		h.logger.Error("evaluation run", "error", err, "k", k)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "evaluation run failed")
		return
	}
	writeJSON(w, r, http.StatusOK, summary)
}

// HandleEvaluateQuery handles POST /api/evaluation/query?k=N with body
// {"query_id": "..."}: one ground-truth entry scored without persisting.
func (h *Handlers) HandleEvaluateQuery(w http.ResponseWriter, r *http.Request) {
	k, ok := parseK(w, r)
	if !ok {
		return
	}

	var req struct {
		QueryID string `json:"query_id"`
	}
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.QueryID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "query_id is required")
		return
	}

	result, err := h.evalSvc.EvaluateQuery(r.Context(), req.QueryID, k)
	if err != nil {
		switch {
		case errors.Is(err, evaluation.ErrNoGroundTruth):
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "no ground truth saved")
		case errors.Is(err, evaluation.ErrUnknownQuery):
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "unknown query id")
		default:
			h.logger.Error("evaluate query", "error", err, "query_id", req.QueryID)
			writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "evaluation failed")
		}
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// HandleEvaluationHistory handles GET /api/evaluation/history.
func (h *Handlers) HandleEvaluationHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.evalSvc.History()
	if err != nil {
		h.logger.Error("evaluation history", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "could not load history")
		return
	}
	writeJSON(w, r, http.StatusOK, history)
}

// parseK reads the k query parameter. The evaluation service clamps the
// value; only non-integers are rejected here.
func parseK(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("k")
	if raw == "" {
		return evaluation.DefaultK, true
	}
	k, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "k must be an integer")
		return 0, false
	}
	return k, true
}
