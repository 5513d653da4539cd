package storage_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/mekiki/internal/model"
	"github.com/ashita-ai/mekiki/internal/storage"
)

func memoryFixture(t *testing.T) *storage.MemoryStore {
	t.Helper()
	m := storage.NewMemory()
	names := []string{
		"Verbal Reasoning Assessment",
		"Numerical Reasoning Assessment",
		"Inductive Reasoning Assessment",
		"Personality Assessment",
		"Coding Skills Assessment",
		"Situational Judgment Test",
		"Leadership Assessment",
	}
	for i, name := range names {
		_, err := m.UpsertAssessment(context.Background(), model.Assessment{
			ID:   fmt.Sprintf("%d", i+1),
			Name: name,
		})
		require.NoError(t, err)
	}
	return m
}

func TestMemoryMatchKeywordRanking(t *testing.T) {
	m := memoryFixture(t)
	ctx := context.Background()

	results, err := m.MatchAssessments(ctx, storage.MatchParams{
		QueryText:     "Looking for a coding test for software developers",
		Limit:         10,
		MinSimilarity: 0.6,
	})
	require.NoError(t, err)
	require.Len(t, results, 7)

	// "coding", "software", and "developer" all promote the coding
	// assessment; "software" and "developer" also promote inductive.
	assert.Equal(t, "Coding Skills Assessment", results[0].Assessment.Name)
	assert.Equal(t, "Inductive Reasoning Assessment", results[1].Assessment.Name)

	// The similarity ladder starts at 0.95 and steps down by 0.05.
	assert.InDelta(t, 0.95, float64(results[0].Similarity), 1e-6)
	assert.InDelta(t, 0.90, float64(results[1].Similarity), 1e-6)

	// Every score clears the default floor.
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Similarity, float32(0.6))
	}
}

func TestMemoryMatchKeywordRankingIsDeterministic(t *testing.T) {
	m := memoryFixture(t)
	ctx := context.Background()

	first, err := m.MatchAssessments(ctx, storage.MatchParams{QueryText: "leadership for a manager", Limit: 10})
	require.NoError(t, err)
	second, err := m.MatchAssessments(ctx, storage.MatchParams{QueryText: "leadership for a manager", Limit: 10})
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Assessment.ID, second[i].Assessment.ID)
		assert.Equal(t, first[i].Similarity, second[i].Similarity)
	}

	// "leadership" and "manager" both promote the leadership assessment;
	// ties keep catalog order, so numerical precedes situational judgment.
	assert.Equal(t, "Leadership Assessment", first[0].Assessment.Name)
	assert.Equal(t, "Numerical Reasoning Assessment", first[1].Assessment.Name)
	assert.Equal(t, "Situational Judgment Test", first[2].Assessment.Name)
}

func TestMemoryMatchNoKeywordsKeepsInsertionOrder(t *testing.T) {
	m := memoryFixture(t)

	results, err := m.MatchAssessments(context.Background(), storage.MatchParams{
		QueryText: "zzz nothing matches this",
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, results, 7)
	assert.Equal(t, "1", results[0].Assessment.ID)
	assert.Equal(t, "7", results[6].Assessment.ID)
}

func TestMemoryMatchLimit(t *testing.T) {
	m := memoryFixture(t)

	results, err := m.MatchAssessments(context.Background(), storage.MatchParams{
		QueryText: "coding",
		Limit:     3,
	})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestMemoryMatchByEmbedding(t *testing.T) {
	m := storage.NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		vec := make([]float32, 4)
		vec[i] = 1
		v := pgvector.NewVector(vec)
		_, err := m.UpsertAssessment(ctx, model.Assessment{
			ID:        fmt.Sprintf("a%d", i),
			Name:      fmt.Sprintf("Assessment %d", i),
			Embedding: &v,
		})
		require.NoError(t, err)
	}

	results, err := m.MatchAssessments(ctx, storage.MatchParams{
		Embedding:     []float32{0.9, 0.1, 0, 0},
		Limit:         10,
		MinSimilarity: 0.5,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a0", results[0].Assessment.ID)
}

func TestMemoryCRUD(t *testing.T) {
	m := storage.NewMemory()
	ctx := context.Background()

	_, err := m.GetAssessment(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	created, err := m.UpsertAssessment(ctx, model.Assessment{ID: "x1", Name: "Java Test", Source: "shl"})
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	// Upsert by id replaces fields but keeps created_at.
	updated, err := m.UpsertAssessment(ctx, model.Assessment{ID: "x1", Name: "Java Test v2", Source: "shl"})
	require.NoError(t, err)
	assert.Equal(t, "Java Test v2", updated.Name)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	n, err := m.CountAssessments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	items, total, err := m.ListAssessments(ctx, storage.ListParams{Source: "shl"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)

	require.NoError(t, m.DeleteAssessment(ctx, "x1"))
	assert.ErrorIs(t, m.DeleteAssessment(ctx, "x1"), storage.ErrNotFound)
}

func TestMemoryEmbeddingLifecycle(t *testing.T) {
	m := storage.NewMemory()
	ctx := context.Background()

	_, err := m.UpsertAssessment(ctx, model.Assessment{ID: "e1", Name: "Embedded"})
	require.NoError(t, err)

	missing, err := m.AssessmentsMissingEmbedding(ctx, 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)

	require.NoError(t, m.UpdateAssessmentEmbedding(ctx, "e1", []float32{1, 0}))

	missing, err = m.AssessmentsMissingEmbedding(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, missing)

	// A metadata upsert without a vector keeps the stored one.
	_, err = m.UpsertAssessment(ctx, model.Assessment{ID: "e1", Name: "Embedded v2"})
	require.NoError(t, err)
	missing, err = m.AssessmentsMissingEmbedding(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, missing)

	assert.ErrorIs(t, m.UpdateAssessmentEmbedding(ctx, "nope", []float32{1}), storage.ErrNotFound)
}
