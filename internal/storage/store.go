// Package storage persists the assessment catalog and serves vector
// similarity matches over it.
//
// Three drivers implement the Store interface: a PostgreSQL driver backed
// by pgvector for production, a pure-Go SQLite driver for single-node
// deployments, and an in-memory driver that doubles as the deterministic
// mock catalog for development and tests.
package storage

import (
	"context"

	"github.com/ashita-ai/mekiki/internal/model"
)

// ListParams narrows and pages ListAssessments results.
type ListParams struct {
	Limit         int
	Offset        int
	Source        string // Exact match on the ingest source tag.
	TestType      string // Assessments whose test_types contain this value.
	JobLevel      string // Assessments whose job_levels contain this value.
	Search        string // Case-insensitive substring match on name or description.
	RemoteTesting *bool
}

// IDVector pairs an assessment with its stored embedding for index rebuilds.
type IDVector struct {
	ID        string
	Name      string
	Source    string
	Embedding []float32
}

// MatchParams selects the nearest catalog entries for a query embedding.
type MatchParams struct {
	Embedding []float32
	Limit     int
	// MinSimilarity drops candidates whose cosine similarity falls below
	// it. Zero admits everything a vector search can return.
	MinSimilarity float32
	// QueryText carries the raw query for drivers that match lexically.
	// The postgres and sqlite drivers ignore it.
	QueryText string
}

// Store is the catalog persistence contract shared by all drivers.
type Store interface {
	UpsertAssessment(ctx context.Context, a model.Assessment) (model.Assessment, error)
	UpsertAssessments(ctx context.Context, items []model.Assessment) (int, error)
	GetAssessment(ctx context.Context, id string) (model.Assessment, error)
	ListAssessments(ctx context.Context, p ListParams) ([]model.Assessment, int, error)
	DeleteAssessment(ctx context.Context, id string) error
	CountAssessments(ctx context.Context) (int, error)

	// MatchAssessments returns catalog entries ordered by descending
	// similarity to the query embedding. Results never include stored
	// vectors.
	MatchAssessments(ctx context.Context, p MatchParams) ([]model.MatchResult, error)

	// AssessmentsMissingEmbedding returns entries that still need a
	// vector, oldest first, for batch regeneration.
	AssessmentsMissingEmbedding(ctx context.Context, limit int) ([]model.Assessment, error)
	UpdateAssessmentEmbedding(ctx context.Context, id string, embedding []float32) error

	// ListEmbeddings pages through stored vectors in id order. It exists
	// for external index rebuilds; API reads never expose vectors.
	ListEmbeddings(ctx context.Context, limit, offset int) ([]IDVector, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
