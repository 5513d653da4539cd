// Package evaluation measures recommendation quality against a labeled
// ground-truth set.
//
// A ground-truth entry pairs a natural-language query with the catalog
// names a recruiter would accept for it. Runs replay every entry through
// the live recommendation pipeline and score the returned names with
// Recall@K and average precision; each run's summary is persisted as a
// timestamped JSON artifact so regressions show up across catalog or
// model changes.
package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ashita-ai/mekiki/internal/model"
	"github.com/ashita-ai/mekiki/internal/service/recommend"
)

// Failures the transport layer maps onto status codes.
var (
	// ErrNoGroundTruth means no ground-truth set has been uploaded yet.
	ErrNoGroundTruth = errors.New("no ground truth data available")
	// ErrUnknownQuery means the requested query id is not in the set.
	ErrUnknownQuery = errors.New("unknown ground truth query id")
)

// DefaultK is the cutoff applied when a run does not name one.
const DefaultK = 5

const (
	groundTruthFile = "ground_truth.json"
	resultsDirName  = "results"
	artifactPrefix  = "evaluation_"
	artifactSuffix  = ".json"
)

// Recommender is the slice of the recommendation service the harness
// needs. *recommend.Service satisfies it.
type Recommender interface {
	Recommend(ctx context.Context, req model.RecommendationRequest) (recommend.Result, error)
}

// Service runs evaluations and owns the ground-truth and artifact files
// under <dataDir>/evaluation.
type Service struct {
	rec    Recommender
	dir    string // <dataDir>/evaluation
	logger *slog.Logger

	// Guards ground-truth file access. Admin uploads may race evaluation
	// runs; artifact files are uniquely named and need no lock.
	mu sync.Mutex
}

// New creates an evaluation service persisting under dataDir/evaluation.
func New(rec Recommender, dataDir string, logger *slog.Logger) *Service {
	return &Service{
		rec:    rec,
		dir:    filepath.Join(dataDir, "evaluation"),
		logger: logger,
	}
}

// SaveGroundTruth validates and replaces the ground-truth set.
func (s *Service) SaveGroundTruth(entries []model.GroundTruth) error {
	if len(entries) == 0 {
		return fmt.Errorf("evaluation: ground truth set is empty")
	}
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("evaluation: entry %d: %w", i, err)
		}
		if seen[e.ID] {
			return fmt.Errorf("evaluation: duplicate query id %q", e.ID)
		}
		seen[e.ID] = true
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("evaluation: marshal ground truth: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("evaluation: create data directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, groundTruthFile), data, 0o644); err != nil {
		return fmt.Errorf("evaluation: write ground truth: %w", err)
	}

	s.logger.Info("evaluation: ground truth saved", "queries", len(entries))
	return nil
}

// GroundTruth returns the current set. ErrNoGroundTruth when none exists.
func (s *Service) GroundTruth() ([]model.GroundTruth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadGroundTruth()
}

func (s *Service) loadGroundTruth() ([]model.GroundTruth, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, groundTruthFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoGroundTruth
	}
	if err != nil {
		return nil, fmt.Errorf("evaluation: read ground truth: %w", err)
	}
	var entries []model.GroundTruth
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("evaluation: parse ground truth: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoGroundTruth
	}
	return entries, nil
}

// EvaluateQuery scores a single ground-truth entry at cutoff k.
func (s *Service) EvaluateQuery(ctx context.Context, queryID string, k int) (model.EvaluationResult, error) {
	entries, err := s.GroundTruth()
	if err != nil {
		return model.EvaluationResult{}, err
	}
	for _, e := range entries {
		if e.ID == queryID {
			return s.evaluateEntry(ctx, e, normalizeK(k))
		}
	}
	return model.EvaluationResult{}, fmt.Errorf("evaluation: %w: %s", ErrUnknownQuery, queryID)
}

// EvaluateAll scores every ground-truth entry at cutoff k and persists the
// summary artifact. A failing query is recorded as a zero-metric result and
// the run continues; only a missing ground-truth set fails the run.
func (s *Service) EvaluateAll(ctx context.Context, k int) (model.EvaluationSummary, error) {
	entries, err := s.GroundTruth()
	if err != nil {
		return model.EvaluationSummary{}, err
	}
	k = normalizeK(k)

	started := time.Now()
	results := make([]model.EvaluationResult, 0, len(entries))
	var sumRecall, sumAP float64

	for i, entry := range entries {
		res, err := s.evaluateEntry(ctx, entry, k)
		if err != nil {
			if ctx.Err() != nil {
				return model.EvaluationSummary{}, fmt.Errorf("evaluation: run cancelled: %w", ctx.Err())
			}
			s.logger.Warn("evaluation: query failed",
				"query_id", entry.ID,
				"error", err,
			)
			res = zeroResult(entry)
		}
		results = append(results, res)
		sumRecall += res.RecallAtK
		sumAP += res.AveragePrecision

		s.logger.Info("evaluation: query scored",
			"query_id", entry.ID,
			"progress", fmt.Sprintf("%d/%d", i+1, len(entries)),
			"recall_at_k", res.RecallAtK,
			"average_precision", res.AveragePrecision,
		)
	}

	summary := model.EvaluationSummary{
		MeanRecallAtK:        sumRecall / float64(len(results)),
		MeanAveragePrecision: sumAP / float64(len(results)),
		KValue:               k,
		TotalQueries:         len(results),
		Timestamp:            time.Now().UTC(),
		EvaluationResults:    results,
	}

	if err := s.writeArtifact(summary); err != nil {
		// The run itself succeeded; a full disk should not hide its numbers.
		s.logger.Warn("evaluation: artifact write failed", "error", err)
	}

	s.logger.Info("evaluation: run complete",
		"queries", summary.TotalQueries,
		"k", k,
		"mean_recall_at_k", summary.MeanRecallAtK,
		"mean_average_precision", summary.MeanAveragePrecision,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return summary, nil
}

// History returns persisted run summaries, newest first. The artifact
// filename carries the UTC timestamp, so reverse-lexical filename order is
// reverse-chronological order.
func (s *Service) History() ([]model.EvaluationSummary, error) {
	resultsDir := filepath.Join(s.dir, resultsDirName)
	dirEntries, err := os.ReadDir(resultsDir)
	if errors.Is(err, os.ErrNotExist) {
		return []model.EvaluationSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("evaluation: read results directory: %w", err)
	}

	names := make([]string, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, artifactPrefix) || !strings.HasSuffix(name, artifactSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	history := make([]model.EvaluationSummary, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(resultsDir, name))
		if err != nil {
			s.logger.Warn("evaluation: skipping unreadable artifact", "file", name, "error", err)
			continue
		}
		var summary model.EvaluationSummary
		if err := json.Unmarshal(data, &summary); err != nil {
			s.logger.Warn("evaluation: skipping malformed artifact", "file", name, "error", err)
			continue
		}
		history = append(history, summary)
	}
	return history, nil
}

func (s *Service) evaluateEntry(ctx context.Context, entry model.GroundTruth, k int) (model.EvaluationResult, error) {
	res, err := s.rec.Recommend(ctx, model.RecommendationRequest{
		Query: entry.Query,
		TopK:  k,
	})
	if err != nil {
		return model.EvaluationResult{}, fmt.Errorf("evaluation: recommend %q: %w", entry.ID, err)
	}

	recommended := make([]string, len(res.Items))
	for i, item := range res.Items {
		recommended[i] = item.Name
	}

	relevant := relevantSet(entry.RelevantAssessments)
	var hits []string
	for _, name := range recommended {
		if relevant[name] {
			hits = append(hits, name)
		}
	}

	return model.EvaluationResult{
		QueryID:                entry.ID,
		QueryText:              entry.Query,
		RecallAtK:              recallAtK(recommended, relevant, len(relevant)),
		PrecisionAtK:           precisionLadder(recommended, relevant),
		AveragePrecision:       averagePrecision(recommended, relevant, len(relevant)),
		RecommendedAssessments: recommended,
		RelevantRecommended:    hits,
		TotalRelevant:          len(relevant),
	}, nil
}

func (s *Service) writeArtifact(summary model.EvaluationSummary) error {
	resultsDir := filepath.Join(s.dir, resultsDirName)
	if err := os.MkdirAll(resultsDir, 0o750); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	name := artifactPrefix + summary.Timestamp.Format("20060102_150405") + artifactSuffix
	if err := os.WriteFile(filepath.Join(resultsDir, name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// zeroResult records a failed query without disturbing the run's shape:
// the entry keeps its identity and relevant count but scores zero.
func zeroResult(entry model.GroundTruth) model.EvaluationResult {
	return model.EvaluationResult{
		QueryID:                entry.ID,
		QueryText:              entry.Query,
		PrecisionAtK:           []float64{},
		RecommendedAssessments: []string{},
		RelevantRecommended:    []string{},
		TotalRelevant:          len(entry.RelevantAssessments),
	}
}

func normalizeK(k int) int {
	if k <= 0 {
		return DefaultK
	}
	if k > model.MaxTopK {
		return model.MaxTopK
	}
	return k
}
