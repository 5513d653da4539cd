package model

import (
	"fmt"
	"strings"
	"time"
)

// Filters constrains which assessments may be recommended. Absent or empty
// fields mean "no constraint" on that axis. Scalar axes are pointers so an
// explicit zero is distinguishable from unset: a caller sending
// min_similarity 0 disables the similarity floor, while omitting it keeps
// the configured default.
type Filters struct {
	JobLevels          []string     `json:"job_levels,omitempty"`
	TestTypes          []string     `json:"test_types,omitempty"`
	Languages          []string     `json:"languages,omitempty"`
	MaxDurationMinutes *int         `json:"max_duration_minutes,omitempty"`
	DurationType       DurationType `json:"duration_type,omitempty"`
	MinSimilarity      *float32     `json:"min_similarity,omitempty"`
	RemoteTesting      *bool        `json:"remote_testing,omitempty"`
}

// IsZero reports whether no axis is set.
func (f Filters) IsZero() bool {
	return len(f.JobLevels) == 0 &&
		len(f.TestTypes) == 0 &&
		len(f.Languages) == 0 &&
		f.MaxDurationMinutes == nil &&
		f.DurationType == "" &&
		f.MinSimilarity == nil &&
		f.RemoteTesting == nil
}

// Validate rejects out-of-range filter values.
func (f Filters) Validate() error {
	if f.MaxDurationMinutes != nil && *f.MaxDurationMinutes <= 0 {
		return fmt.Errorf("model: max_duration_minutes must be positive")
	}
	if f.MinSimilarity != nil && (*f.MinSimilarity < 0 || *f.MinSimilarity > 1) {
		return fmt.Errorf("model: min_similarity must be in [0, 1]")
	}
	switch f.DurationType {
	case "", DurationFixed, DurationVariable, DurationUntimed:
	default:
		return fmt.Errorf("model: unknown duration_type %q", f.DurationType)
	}
	return nil
}

// MergeFilters combines caller-supplied filters with LLM-inferred ones.
// The caller wins per axis; inferred values only fill axes the caller left
// unset. Merging is idempotent.
func MergeFilters(caller, inferred Filters) Filters {
	out := caller
	if len(out.JobLevels) == 0 {
		out.JobLevels = inferred.JobLevels
	}
	if len(out.TestTypes) == 0 {
		out.TestTypes = inferred.TestTypes
	}
	if len(out.Languages) == 0 {
		out.Languages = inferred.Languages
	}
	if out.MaxDurationMinutes == nil {
		out.MaxDurationMinutes = inferred.MaxDurationMinutes
	}
	if out.DurationType == "" {
		out.DurationType = inferred.DurationType
	}
	if out.MinSimilarity == nil {
		out.MinSimilarity = inferred.MinSimilarity
	}
	if out.RemoteTesting == nil {
		out.RemoteTesting = inferred.RemoteTesting
	}
	return out
}

// RecommendationRequest is the request body for POST /api/recommendations.
type RecommendationRequest struct {
	Query   string   `json:"query"`
	TopK    int      `json:"top_k,omitempty"`
	Filters *Filters `json:"filters,omitempty"`
}

// Request bounds.
const (
	MinQueryLength = 3
	MaxTopK        = 20
)

// Normalize trims the query and applies the top_k default.
func (r *RecommendationRequest) Normalize(defaultTopK int) {
	r.Query = strings.TrimSpace(r.Query)
	if r.TopK == 0 {
		r.TopK = defaultTopK
	}
}

// Validate checks the normalized request.
func (r RecommendationRequest) Validate() error {
	if len(r.Query) < MinQueryLength {
		return fmt.Errorf("model: query must be at least %d characters", MinQueryLength)
	}
	if r.TopK < 1 || r.TopK > MaxTopK {
		return fmt.Errorf("model: top_k must be between 1 and %d", MaxTopK)
	}
	if r.Filters != nil {
		if err := r.Filters.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RecommendationResponse is the rich response for POST /api/recommendations.
type RecommendationResponse struct {
	Recommendations  []RecommendedAssessment `json:"recommendations"`
	QueryEmbedding   []float32               `json:"query_embedding,omitempty"`
	ProcessingTime   float64                 `json:"processing_time"`
	TotalAssessments int                     `json:"total_assessments"`
	Timestamp        time.Time               `json:"timestamp"`
}
