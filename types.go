package mekiki

import "time"

// Assessment is the public representation of a catalog entry.
// It is a curated view of internal/model.Assessment for use in extension
// interfaces. No internal package imports — safe to use from outside the
// module.
type Assessment struct {
	ID          string
	Name        string
	Description string
	// URL may be absolute or site-relative; the server prepends the
	// canonical catalog host to relative URLs on output.
	URL           string
	RemoteTesting bool
	AdaptiveIRT   bool
	TestTypes     []string
	JobLevels     []string
	Languages     []string
	KeyFeatures   []string

	// Parsed duration tuple. At most one of IsUntimed, IsVariable, and a
	// bounded min/max holds.
	DurationText       string
	DurationMinMinutes *int
	DurationMaxMinutes *int
	IsUntimed          bool
	IsVariable         bool

	Source string

	// Embedding is the stored description vector, nil when none has been
	// generated yet. Uses []float32 (not pgvector.Vector) so external
	// Store implementations need no pgvector dependency.
	Embedding []float32

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Recommendation is one ranked catalog entry returned for a hiring query.
type Recommendation struct {
	Assessment
	// SimilarityScore is the retrieval score after any LLM reranking,
	// in [0.0, 1.0]. Higher means a better fit for the query.
	SimilarityScore float32
	// Rank is the 1-based position in the result list.
	Rank int
	// Explanation is a short human-readable reason for the match. Empty
	// when the reranker did not produce one.
	Explanation string
}

// Filters constrains which assessments may be recommended. Absent or empty
// fields mean "no constraint" on that axis. Mirrors the wire-level filter
// object accepted by POST /api/recommendations.
type Filters struct {
	JobLevels          []string
	TestTypes          []string
	Languages          []string
	MaxDurationMinutes *int
	// DurationType selects a duration class: "Fixed", "Variable", or
	// "Untimed".
	DurationType  string
	MinSimilarity *float32
	RemoteTesting *bool
}

// ListOptions narrows and pages Store.ListAssessments results.
type ListOptions struct {
	Limit         int
	Offset        int
	Source        string // Exact match on the ingest source tag.
	TestType      string // Assessments whose test types contain this value.
	JobLevel      string // Assessments whose job levels contain this value.
	Search        string // Case-insensitive substring match on name or description.
	RemoteTesting *bool
}

// MatchOptions selects the nearest catalog entries for a query embedding.
type MatchOptions struct {
	Embedding []float32
	Limit     int
	// MinSimilarity drops candidates whose cosine similarity falls below
	// it. Zero admits everything a vector search can return.
	MinSimilarity float32
	// QueryText carries the raw query for stores that match lexically.
	QueryText string
}

// MatchResult pairs an assessment with its similarity to a query embedding.
type MatchResult struct {
	Assessment Assessment
	Similarity float32
}

// EmbeddingRecord pairs an assessment id with its stored vector, for
// external index rebuilds.
type EmbeddingRecord struct {
	ID        string
	Name      string
	Source    string
	Embedding []float32
}

// SearchResult holds an assessment id and similarity score from a Searcher.
type SearchResult struct {
	AssessmentID string
	Score        float32
}
