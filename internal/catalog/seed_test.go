package catalog

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/mekiki/internal/model"
	"github.com/ashita-ai/mekiki/internal/storage"
)

func TestSeedCatalog(t *testing.T) {
	seeds := Seed()
	require.Len(t, seeds, 7)

	names := make([]string, 0, len(seeds))
	executive := 0
	for i, a := range seeds {
		assert.Equal(t, strconv.Itoa(i+1), a.ID)
		assert.True(t, a.RemoteTesting, a.Name)
		assert.Contains(t, a.Languages, "English", a.Name)
		assert.NotEmpty(t, a.Description, a.Name)
		assert.True(t, strings.HasPrefix(a.CanonicalURL(), model.CanonicalHost), a.Name)
		require.NoError(t, a.Validate(), a.Name)
		for _, tt := range a.TestTypes {
			assert.True(t, model.KnownTestType(tt), "%s: %s", a.Name, tt)
		}
		for _, jl := range a.JobLevels {
			assert.Contains(t, model.JobLevelVocabulary, jl, a.Name)
		}
		if slices.Contains(a.JobLevels, "Executive") {
			executive++
		}
		names = append(names, a.Name)
	}

	assert.Equal(t, []string{
		"Verbal Reasoning Assessment",
		"Numerical Reasoning Assessment",
		"Inductive Reasoning Assessment",
		"Personality Assessment",
		"Coding Skills Assessment",
		"Situational Judgment Test",
		"Leadership Assessment",
	}, names)

	// Executive-targeted queries infer a job-level filter; three entries
	// carry Executive so such queries still fill a small result page.
	assert.Equal(t, 3, executive)
}

func TestSeedDurations(t *testing.T) {
	seeds := Seed()

	wantMax := []int{30, 40, 25, 35, 60, 30, 45}
	for i, a := range seeds {
		require.NotNil(t, a.DurationMaxMinutes, a.Name)
		assert.Equal(t, wantMax[i], *a.DurationMaxMinutes, a.Name)
		assert.False(t, a.IsUntimed, a.Name)
	}

	personality := seeds[3]
	require.NotNil(t, personality.DurationMinMinutes)
	assert.Equal(t, 25, *personality.DurationMinMinutes)
	assert.True(t, personality.IsVariable)
	assert.Equal(t, model.DurationVariable, model.DurationTypeOf(personality))

	coding := seeds[4]
	assert.Equal(t, 60, coding.DurationMinutesInt())
	assert.Equal(t, model.DurationFixed, model.DurationTypeOf(coding))
}

// Mock-mode ranking is lexical: the memory store routes keyword hits to
// these names and the mock reranker scores candidates by word overlap with
// their descriptions. The vocabulary below is load-bearing.
func TestSeedDescriptionVocabulary(t *testing.T) {
	byName := make(map[string]model.Assessment)
	for _, a := range Seed() {
		byName[a.Name] = a
	}

	coding := byName["Coding Skills Assessment"]
	assert.Contains(t, strings.ToLower(coding.Description), "programming")

	for name, a := range byName {
		// The plural would match every generic catalog query and drown
		// out the discriminating terms.
		assert.NotContains(t, strings.ToLower(a.Description), "assessments", name)
	}
}

func TestSeedStore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, SeedStore(ctx, store))

	n, err := store.CountAssessments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	a, err := store.GetAssessment(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "Coding Skills Assessment", a.Name)
}
