package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/ashita-ai/mekiki/internal/catalog"
	"github.com/ashita-ai/mekiki/internal/model"
	"github.com/ashita-ai/mekiki/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// HandleListAssessments handles GET /api/assessments.
func (h *Handlers) HandleListAssessments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := storage.ListParams{
		Limit:    defaultListLimit,
		TestType: q.Get("test_type"),
		JobLevel: q.Get("job_level"),
		Source:   q.Get("source"),
		Search:   q.Get("search"),
	}

	if raw := q.Get("remote"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "remote must be a boolean")
			return
		}
		params.RemoteTesting = &v
	}
	if raw := q.Get("skip"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "skip must be a non-negative integer")
			return
		}
		params.Offset = n
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
				fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
			return
		}
		params.Limit = n
	}

	items, total, err := h.store.ListAssessments(r.Context(), params)
	if err != nil {
		h.logger.Error("list assessments", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "could not list assessments")
		return
	}

	writeJSON(w, r, http.StatusOK, model.AssessmentListResponse{
		Assessments: items,
		Total:       total,
		Skip:        params.Offset,
		Limit:       params.Limit,
	})
}

// HandleGetAssessment handles GET /api/assessments/{id}.
func (h *Handlers) HandleGetAssessment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	a, err := h.store.GetAssessment(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "assessment not found")
			return
		}
		h.logger.Error("get assessment", "error", err, "id", id)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "could not load assessment")
		return
	}
	writeJSON(w, r, http.StatusOK, a)
}

// HandleCreateAssessment handles POST /api/assessments. The description is
// embedded inline when a provider is available; a failed embedding is
// logged and left for the regeneration job rather than failing the write.
func (h *Handlers) HandleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	var a model.Assessment
	if err := decodeJSON(w, r, &a, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	normalizeAssessment(&a)
	if err := a.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if a.ID == "" {
		a.ID = catalog.MintID(a.Name)
	}

	h.embedInline(r, &a)

	created, err := h.store.UpsertAssessment(r.Context(), a)
	if err != nil {
		h.logger.Error("create assessment", "error", err, "id", a.ID)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "could not store assessment")
		return
	}
	h.logger.Info("assessment created", "id", created.ID, "actor", adminActor(r.Context()))
	writeJSON(w, r, http.StatusCreated, created)
}

// HandleUpdateAssessment handles PUT /api/assessments/{id}. The stored
// embedding is regenerated only when the description changes; other edits
// keep the existing vector.
func (h *Handlers) HandleUpdateAssessment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.store.GetAssessment(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "assessment not found")
			return
		}
		h.logger.Error("load assessment for update", "error", err, "id", id)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "could not load assessment")
		return
	}

	var a model.Assessment
	if err := decodeJSON(w, r, &a, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	a.ID = id
	normalizeAssessment(&a)
	if err := a.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	if a.Description != existing.Description {
		h.embedInline(r, &a)
	}

	updated, err := h.store.UpsertAssessment(r.Context(), a)
	if err != nil {
		h.logger.Error("update assessment", "error", err, "id", id)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "could not store assessment")
		return
	}
	h.logger.Info("assessment updated", "id", id, "actor", adminActor(r.Context()))
	writeJSON(w, r, http.StatusOK, updated)
}

// HandleDeleteAssessment handles DELETE /api/assessments/{id}.
func (h *Handlers) HandleDeleteAssessment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.DeleteAssessment(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "assessment not found")
			return
		}
		h.logger.Error("delete assessment", "error", err, "id", id)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "could not delete assessment")
		return
	}
	h.logger.Info("assessment deleted", "id", id, "actor", adminActor(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// HandleUploadCatalog handles POST /api/assessments/upload: a multipart CSV
// import routed through the catalog loader.
func (h *Handlers) HandleUploadCatalog(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBodyBytes)
	if err := r.ParseMultipartForm(h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "expected multipart form upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, `multipart field "file" is required`)
		return
	}
	defer func() { _ = file.Close() }()

	source := r.FormValue("source")
	if source == "" {
		source = header.Filename
	}

	res, err := h.loader.LoadCSV(r.Context(), file, source)
	if err != nil {
		h.logger.Error("catalog upload", "error", err, "source", source)
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	h.logger.Info("catalog uploaded", "source", source,
		"rows", res.SuccessCount, "skipped", res.ErrorCount,
		"actor", adminActor(r.Context()))
	writeJSON(w, r, http.StatusOK, model.UploadResponse{
		Message:      fmt.Sprintf("imported %q", source),
		SuccessCount: res.SuccessCount,
		ErrorCount:   res.ErrorCount,
	})
}

// embedInline vectorizes the assessment text when a provider is wired.
// Failure is non-fatal: the row lands without a vector and the
// regeneration job picks it up later.
func (h *Handlers) embedInline(r *http.Request, a *model.Assessment) {
	if h.embedder == nil {
		return
	}
	vec, err := h.embedder.Embed(r.Context(), a.EmbeddingText())
	if err != nil {
		h.logger.Warn("inline embedding failed, row stored without vector",
			"error", err, "id", a.ID)
		return
	}
	v := pgvector.NewVector(vec)
	a.Embedding = &v
}

// normalizeAssessment applies the same vocabulary and duration treatment
// the CSV loader gives imported rows, so API writes and bulk loads agree.
func normalizeAssessment(a *model.Assessment) {
	a.Name = strings.TrimSpace(a.Name)
	a.TestTypes = model.NormalizeTestTypes(a.TestTypes)
	a.JobLevels = model.NormalizeList(a.JobLevels)
	a.Languages = model.NormalizeList(a.Languages)
	a.KeyFeatures = model.NormalizeList(a.KeyFeatures)

	if a.DurationText != "" && a.DurationMinMinutes == nil && a.DurationMaxMinutes == nil &&
		!a.IsUntimed && !a.IsVariable {
		d := model.ParseDuration(a.DurationText)
		a.DurationText = d.Text
		a.DurationMinMinutes = d.MinMinutes
		a.DurationMaxMinutes = d.MaxMinutes
		a.IsUntimed = d.IsUntimed
		a.IsVariable = d.IsVariable
	}
}
