package mekiki

import "time"

// Assessment mirrors the server's assessment resource. Stored embeddings
// never leave the server, so the type carries none. When creating an
// assessment, ID may be left empty; the server mints one from the name.
type Assessment struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	URL           string   `json:"url,omitempty"`
	RemoteTesting bool     `json:"remote_testing"`
	AdaptiveIRT   bool     `json:"adaptive_irt"`
	TestTypes     []string `json:"test_types,omitempty"`
	JobLevels     []string `json:"job_levels,omitempty"`
	Languages     []string `json:"languages,omitempty"`
	KeyFeatures   []string `json:"key_features,omitempty"`

	// Duration as scraped plus the parsed form. Send duration_text and the
	// server fills the numeric fields; send the numeric fields to set them
	// directly.
	DurationText       string `json:"duration_text,omitempty"`
	DurationMinMinutes *int   `json:"duration_min_minutes,omitempty"`
	DurationMaxMinutes *int   `json:"duration_max_minutes,omitempty"`
	IsUntimed          bool   `json:"is_untimed"`
	IsVariable         bool   `json:"is_variable_duration"`

	Source string `json:"source,omitempty"`

	// Set by the server; ignored on create and update.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DurationType selects assessments by how their duration is specified.
type DurationType string

const (
	DurationFixed    DurationType = "Fixed"
	DurationVariable DurationType = "Variable"
	DurationUntimed  DurationType = "Untimed"
)

// Filters constrains which assessments may be recommended. Absent or empty
// fields mean "no constraint" on that axis. Scalar axes are pointers so an
// explicit zero is distinguishable from unset: sending min_similarity 0
// disables the server's similarity floor, while omitting it keeps the
// configured default.
type Filters struct {
	JobLevels          []string     `json:"job_levels,omitempty"`
	TestTypes          []string     `json:"test_types,omitempty"`
	Languages          []string     `json:"languages,omitempty"`
	MaxDurationMinutes *int         `json:"max_duration_minutes,omitempty"`
	DurationType       DurationType `json:"duration_type,omitempty"`
	MinSimilarity      *float32     `json:"min_similarity,omitempty"`
	RemoteTesting      *bool        `json:"remote_testing,omitempty"`
}

// RecommendationRequest is the request body for the Recommend method.
// Query must be at least three characters. TopK caps the result count;
// zero means the server default (5, capped at 20). Filters left nil are
// inferred from the query text by the server.
type RecommendationRequest struct {
	Query   string   `json:"query"`
	TopK    int      `json:"top_k,omitempty"`
	Filters *Filters `json:"filters,omitempty"`
}

// RecommendedAssessment augments an assessment with its retrieval score,
// final 1-based rank, and a human-readable explanation.
type RecommendedAssessment struct {
	Assessment
	SimilarityScore float32 `json:"similarity_score"`
	Rank            int     `json:"rank"`
	Explanation     string  `json:"explanation,omitempty"`
}

// RecommendationResponse is the Recommend method's result.
// ProcessingTime is in seconds.
type RecommendationResponse struct {
	Recommendations  []RecommendedAssessment `json:"recommendations"`
	QueryEmbedding   []float32               `json:"query_embedding,omitempty"`
	ProcessingTime   float64                 `json:"processing_time"`
	TotalAssessments int                     `json:"total_assessments"`
	Timestamp        time.Time               `json:"timestamp"`
}

// SimpleRecommendation is the compact result shape of SimpleRecommend.
// AdaptiveSupport and RemoteSupport are "Yes" or "No"; Duration is in
// minutes, zero when unknown.
type SimpleRecommendation struct {
	URL             string   `json:"url"`
	AdaptiveSupport string   `json:"adaptive_support"`
	Description     string   `json:"description"`
	Duration        int      `json:"duration"`
	RemoteSupport   string   `json:"remote_support"`
	TestType        []string `json:"test_type"`
}

// SimpleRecommendResponse is the SimpleRecommend method's result.
type SimpleRecommendResponse struct {
	RecommendedAssessments []SimpleRecommendation `json:"recommended_assessments"`
}

// ListAssessmentsOptions are optional filters for ListAssessments.
// Zero values mean "no filter". Limit zero uses the server default of 50;
// the server caps it at 100.
type ListAssessmentsOptions struct {
	TestType string
	JobLevel string
	Source   string
	Search   string
	Remote   *bool
	Skip     int
	Limit    int
}

// AssessmentListResponse is a page of assessments with the total count
// before pagination.
type AssessmentListResponse struct {
	Assessments []Assessment `json:"assessments"`
	Total       int          `json:"total"`
	Skip        int          `json:"skip"`
	Limit       int          `json:"limit"`
}

// UploadResponse reports the outcome of a catalog CSV upload.
type UploadResponse struct {
	Message      string `json:"message"`
	SuccessCount int    `json:"success_count"`
	ErrorCount   int    `json:"error_count"`
}

// GroundTruth is one labeled evaluation query. RelevantAssessments holds
// assessment names, matched exactly against recommendation results.
type GroundTruth struct {
	ID                  string   `json:"id"`
	Query               string   `json:"query"`
	RelevantAssessments []string `json:"relevant_assessments"`
	Description         string   `json:"description,omitempty"`
}

// GroundTruthSaveResult acknowledges a saved ground-truth set.
type GroundTruthSaveResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// EvaluationResult scores the recommendations for one ground-truth query.
type EvaluationResult struct {
	QueryID                string    `json:"query_id"`
	QueryText              string    `json:"query_text"`
	RecallAtK              float64   `json:"recall_at_k"`
	PrecisionAtK           []float64 `json:"precision_at_k"`
	AveragePrecision       float64   `json:"average_precision"`
	RecommendedAssessments []string  `json:"recommended_assessments"`
	RelevantRecommended    []string  `json:"relevant_recommended"`
	TotalRelevant          int       `json:"total_relevant"`
}

// EvaluationSummary aggregates per-query results into Mean Recall@K and
// MAP@K over the full ground-truth set.
type EvaluationSummary struct {
	MeanRecallAtK        float64            `json:"mean_recall_at_k"`
	MeanAveragePrecision float64            `json:"mean_average_precision"`
	KValue               int                `json:"k_value"`
	TotalQueries         int                `json:"total_queries"`
	Timestamp            time.Time          `json:"timestamp"`
	EvaluationResults    []EvaluationResult `json:"evaluation_results"`
}

// HealthResponse reports server health. Status is "healthy" or "degraded";
// a degraded server still answers with this shape and names the failing
// component in Store or Search.
type HealthResponse struct {
	Status            string `json:"status"`
	Version           string `json:"version"`
	Store             string `json:"store"`
	Search            string `json:"search,omitempty"`
	EmbeddingProvider string `json:"embedding_provider,omitempty"`
	LLMProvider       string `json:"llm_provider,omitempty"`
	Uptime            int64  `json:"uptime_seconds"`
}
