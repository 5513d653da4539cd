package model

import (
	"fmt"
	"strings"
	"time"
)

// GroundTruth labels one query with the assessment names considered relevant.
// Names match exactly and case-sensitively; ground truth scores the pipeline
// and never constrains it.
type GroundTruth struct {
	ID                  string   `json:"id"`
	Query               string   `json:"query"`
	RelevantAssessments []string `json:"relevant_assessments"`
	Description         string   `json:"description,omitempty"`
}

// Validate checks a ground-truth entry on ingest.
func (g GroundTruth) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return fmt.Errorf("model: ground truth id is required")
	}
	if strings.TrimSpace(g.Query) == "" {
		return fmt.Errorf("model: ground truth query is required")
	}
	return nil
}

// EvaluationResult holds the retrieval metrics for a single query.
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

// EvaluationSummary aggregates results across all evaluated queries.
type EvaluationSummary struct {
	MeanRecallAtK        float64            `json:"mean_recall_at_k"`
	MeanAveragePrecision float64            `json:"mean_average_precision"`
	KValue               int                `json:"k_value"`
	TotalQueries         int                `json:"total_queries"`
	Timestamp            time.Time          `json:"timestamp"`
	EvaluationResults    []EvaluationResult `json:"evaluation_results"`
}
