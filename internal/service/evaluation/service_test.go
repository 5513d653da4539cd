package evaluation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/mekiki/internal/model"
	"github.com/ashita-ai/mekiki/internal/service/recommend"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubRecommender returns a fixed name list per query text.
type stubRecommender struct {
	byQuery map[string][]string
	errFor  map[string]error
	gotTopK int
}

func (s *stubRecommender) Recommend(_ context.Context, req model.RecommendationRequest) (recommend.Result, error) {
	s.gotTopK = req.TopK
	if err := s.errFor[req.Query]; err != nil {
		return recommend.Result{}, err
	}
	names := s.byQuery[req.Query]
	items := make([]model.RecommendedAssessment, len(names))
	for i, n := range names {
		items[i] = model.RecommendedAssessment{
			Assessment:      model.Assessment{ID: n, Name: n},
			SimilarityScore: 0.9,
			Rank:            i + 1,
		}
	}
	return recommend.Result{Items: items, TotalCandidates: len(items)}, nil
}

func testGroundTruth() []model.GroundTruth {
	return []model.GroundTruth{
		{ID: "q1", Query: "verbal reasoning", RelevantAssessments: []string{"Verbal Reasoning", "Numerical Reasoning"}},
		{ID: "q2", Query: "coding skills", RelevantAssessments: []string{"Coding Simulation"}},
	}
}

func newTestService(t *testing.T, rec Recommender) *Service {
	t.Helper()
	return New(rec, t.TempDir(), testLogger())
}

func TestGroundTruthRoundTrip(t *testing.T) {
	svc := newTestService(t, &stubRecommender{})

	_, err := svc.GroundTruth()
	require.ErrorIs(t, err, ErrNoGroundTruth)

	require.NoError(t, svc.SaveGroundTruth(testGroundTruth()))

	entries, err := svc.GroundTruth()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "q1", entries[0].ID)
	assert.Equal(t, []string{"Coding Simulation"}, entries[1].RelevantAssessments)
}

func TestSaveGroundTruthValidation(t *testing.T) {
	svc := newTestService(t, &stubRecommender{})

	assert.Error(t, svc.SaveGroundTruth(nil))

	assert.Error(t, svc.SaveGroundTruth([]model.GroundTruth{
		{ID: "", Query: "x", RelevantAssessments: []string{"A"}},
	}))

	assert.Error(t, svc.SaveGroundTruth([]model.GroundTruth{
		{ID: "dup", Query: "one", RelevantAssessments: []string{"A"}},
		{ID: "dup", Query: "two", RelevantAssessments: []string{"B"}},
	}))
}

func TestEvaluateQuery(t *testing.T) {
	rec := &stubRecommender{byQuery: map[string][]string{
		// Hit at rank 1, miss, hit at rank 3.
		"verbal reasoning": {"Verbal Reasoning", "Coding Simulation", "Numerical Reasoning"},
	}}
	svc := newTestService(t, rec)
	require.NoError(t, svc.SaveGroundTruth(testGroundTruth()))

	res, err := svc.EvaluateQuery(context.Background(), "q1", 3)
	require.NoError(t, err)

	assert.Equal(t, "q1", res.QueryID)
	assert.Equal(t, "verbal reasoning", res.QueryText)
	assert.Equal(t, 3, rec.gotTopK)
	assert.Equal(t, 1.0, res.RecallAtK)
	assert.Equal(t, []float64{1.0, 0.5, 2.0 / 3.0}, res.PrecisionAtK)
	assert.InDelta(t, (1.0+2.0/3.0)/2.0, res.AveragePrecision, 1e-9)
	assert.Equal(t, []string{"Verbal Reasoning", "Numerical Reasoning"}, res.RelevantRecommended)
	assert.Equal(t, 2, res.TotalRelevant)
}

func TestEvaluateQueryUnknownID(t *testing.T) {
	svc := newTestService(t, &stubRecommender{})
	require.NoError(t, svc.SaveGroundTruth(testGroundTruth()))

	_, err := svc.EvaluateQuery(context.Background(), "nope", 5)
	assert.ErrorIs(t, err, ErrUnknownQuery)
}

func TestEvaluateQueryDefaultsK(t *testing.T) {
	rec := &stubRecommender{byQuery: map[string][]string{}}
	svc := newTestService(t, rec)
	require.NoError(t, svc.SaveGroundTruth(testGroundTruth()))

	_, err := svc.EvaluateQuery(context.Background(), "q1", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultK, rec.gotTopK)

	_, err = svc.EvaluateQuery(context.Background(), "q1", 999)
	require.NoError(t, err)
	assert.Equal(t, model.MaxTopK, rec.gotTopK)
}

func TestEvaluateAll(t *testing.T) {
	rec := &stubRecommender{byQuery: map[string][]string{
		"verbal reasoning": {"Verbal Reasoning", "Numerical Reasoning"}, // recall 1.0, AP 1.0
		"coding skills":    {"Personality Profile"},                     // recall 0, AP 0
	}}
	svc := newTestService(t, rec)
	require.NoError(t, svc.SaveGroundTruth(testGroundTruth()))

	summary, err := svc.EvaluateAll(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalQueries)
	assert.Equal(t, 5, summary.KValue)
	assert.InDelta(t, 0.5, summary.MeanRecallAtK, 1e-9)
	assert.InDelta(t, 0.5, summary.MeanAveragePrecision, 1e-9)
	require.Len(t, summary.EvaluationResults, 2)
	assert.WithinDuration(t, time.Now().UTC(), summary.Timestamp, 5*time.Second)
}

func TestEvaluateAllWithoutGroundTruth(t *testing.T) {
	svc := newTestService(t, &stubRecommender{})

	_, err := svc.EvaluateAll(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNoGroundTruth)
}

func TestEvaluateAllContinuesPastFailures(t *testing.T) {
	rec := &stubRecommender{
		byQuery: map[string][]string{
			"coding skills": {"Coding Simulation"},
		},
		errFor: map[string]error{
			"verbal reasoning": errors.New("provider down"),
		},
	}
	svc := newTestService(t, rec)
	require.NoError(t, svc.SaveGroundTruth(testGroundTruth()))

	summary, err := svc.EvaluateAll(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, summary.EvaluationResults, 2)

	failed := summary.EvaluationResults[0]
	assert.Equal(t, "q1", failed.QueryID)
	assert.Equal(t, 0.0, failed.RecallAtK)
	assert.Empty(t, failed.RecommendedAssessments)
	assert.Equal(t, 2, failed.TotalRelevant)

	ok := summary.EvaluationResults[1]
	assert.Equal(t, "q2", ok.QueryID)
	assert.Equal(t, 1.0, ok.RecallAtK)

	assert.InDelta(t, 0.5, summary.MeanRecallAtK, 1e-9)
}

func TestHistoryNewestFirst(t *testing.T) {
	rec := &stubRecommender{byQuery: map[string][]string{
		"verbal reasoning": {"Verbal Reasoning"},
		"coding skills":    {"Coding Simulation"},
	}}
	dataDir := t.TempDir()
	svc := New(rec, dataDir, testLogger())
	require.NoError(t, svc.SaveGroundTruth(testGroundTruth()))

	history, err := svc.History()
	require.NoError(t, err)
	assert.Empty(t, history)

	// Two runs with distinct artifact timestamps. The filename granularity
	// is one second, so space them apart explicitly.
	first, err := svc.EvaluateAll(context.Background(), 3)
	require.NoError(t, err)
	second := first
	second.Timestamp = first.Timestamp.Add(2 * time.Second)
	second.KValue = 7
	require.NoError(t, svc.writeArtifact(second))

	history, err = svc.History()
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 7, history[0].KValue)
	assert.Equal(t, 3, history[1].KValue)

	// A stray file in the results directory is ignored.
	resultsDir := filepath.Join(dataDir, "evaluation", "results")
	require.NoError(t, os.WriteFile(filepath.Join(resultsDir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(resultsDir, "evaluation_garbage.json"), []byte("{"), 0o644))

	history, err = svc.History()
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
