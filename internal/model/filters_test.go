package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/mekiki/internal/model"
)

func float32Ptr(f float32) *float32 { return &f }
func boolPtr(b bool) *bool          { return &b }

func TestMergeFilters_CallerWinsPerAxis(t *testing.T) {
	caller := model.Filters{
		JobLevels:     []string{"Manager"},
		MinSimilarity: float32Ptr(0.8),
	}
	inferred := model.Filters{
		JobLevels:          []string{"Entry-Level"},
		TestTypes:          []string{"Knowledge & Skills"},
		MaxDurationMinutes: intPtr(30),
		MinSimilarity:      float32Ptr(0.5),
	}

	merged := model.MergeFilters(caller, inferred)

	// Caller-set axes survive untouched.
	assert.Equal(t, []string{"Manager"}, merged.JobLevels)
	assert.Equal(t, float32Ptr(0.8), merged.MinSimilarity)
	// Unset axes take the inferred value.
	assert.Equal(t, []string{"Knowledge & Skills"}, merged.TestTypes)
	assert.Equal(t, intPtr(30), merged.MaxDurationMinutes)
}

func TestMergeFilters_ExplicitZeroIsCallerValue(t *testing.T) {
	// An explicit zero similarity disables the floor; merging must not
	// replace it with the inferred value.
	caller := model.Filters{MinSimilarity: float32Ptr(0)}
	inferred := model.Filters{MinSimilarity: float32Ptr(0.7)}

	merged := model.MergeFilters(caller, inferred)
	require.NotNil(t, merged.MinSimilarity)
	assert.Equal(t, float32(0), *merged.MinSimilarity)
}

func TestMergeFilters_Idempotent(t *testing.T) {
	caller := model.Filters{JobLevels: []string{"Executive"}}
	inferred := model.Filters{
		TestTypes:     []string{"Competencies"},
		RemoteTesting: boolPtr(true),
	}

	once := model.MergeFilters(caller, inferred)
	twice := model.MergeFilters(caller, once)
	assert.Equal(t, once, twice)
}

func TestFilters_IsZero(t *testing.T) {
	assert.True(t, model.Filters{}.IsZero())
	assert.False(t, model.Filters{Languages: []string{"English"}}.IsZero())
	assert.False(t, model.Filters{RemoteTesting: boolPtr(false)}.IsZero())
}

func TestFilters_Validate(t *testing.T) {
	tests := []struct {
		name    string
		filters model.Filters
		wantErr bool
	}{
		{"zero filters", model.Filters{}, false},
		{"valid bounds", model.Filters{MaxDurationMinutes: intPtr(30), MinSimilarity: float32Ptr(0.5)}, false},
		{"zero similarity is legal", model.Filters{MinSimilarity: float32Ptr(0)}, false},
		{"negative duration", model.Filters{MaxDurationMinutes: intPtr(-5)}, true},
		{"zero duration", model.Filters{MaxDurationMinutes: intPtr(0)}, true},
		{"similarity above one", model.Filters{MinSimilarity: float32Ptr(1.5)}, true},
		{"bad duration type", model.Filters{DurationType: model.DurationType("Sometimes")}, true},
		{"known duration type", model.Filters{DurationType: model.DurationUntimed}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filters.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecommendationRequest_NormalizeAndValidate(t *testing.T) {
	r := model.RecommendationRequest{Query: "  find coding assessments  "}
	r.Normalize(5)
	assert.Equal(t, "find coding assessments", r.Query)
	assert.Equal(t, 5, r.TopK)
	require.NoError(t, r.Validate())

	short := model.RecommendationRequest{Query: "ab", TopK: 5}
	short.Normalize(5)
	assert.Error(t, short.Validate())

	tooMany := model.RecommendationRequest{Query: "leadership", TopK: 21}
	assert.Error(t, tooMany.Validate())

	explicit := model.RecommendationRequest{Query: "leadership", TopK: 3}
	explicit.Normalize(5)
	assert.Equal(t, 3, explicit.TopK, "explicit top_k must not be overwritten")
}
