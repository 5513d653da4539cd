package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/mekiki/internal/model"
)

func TestParseIndices(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		n    int
		want []int
	}{
		{"bare array", "[0, 2, 1]", 5, []int{0, 2, 1}},
		{"fenced with info string", "```json\n[1, 0]\n```", 3, []int{1, 0}},
		{"fenced without info string", "```\n[2]\n```", 3, []int{2}},
		{"array inside prose", "The most relevant documents are [3, 1] based on the query.", 5, []int{3, 1}},
		{"prose echoing the example format", "[0, 2, 1] - This means DOCUMENT 1, DOCUMENT 3, and DOCUMENT 2", 5, []int{0, 2, 1}},
		{"duplicates keep first occurrence", "[1, 1, 0, 1]", 3, []int{1, 0}},
		{"out of range dropped", "[0, 9, 2]", 3, []int{0, 2}},
		{"negative dropped", "[-1, 1]", 3, []int{1}},
		{"floats dropped", "[0, 1.5, 2]", 5, []int{0, 2}},
		{"strings dropped", `[0, "two", 2]`, 5, []int{0, 2}},
		{"empty array", "[]", 3, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIndices(tt.raw, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIndicesMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no array anywhere", "I cannot rank these documents."},
		{"json object is not a list", `{"indices": [1, 2]}`},
		{"bare number is not a list", "2"},
		{"json string is not a list", `"[0, 1]"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseIndices(tt.raw, 5)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestParseFilters(t *testing.T) {
	t.Run("canonicalizes vocabulary values", func(t *testing.T) {
		raw := `{
			"job_levels": ["manager", "Made-Up Level"],
			"test_types": ["knowledge & skills", "KNOWLEDGE & SKILLS"],
			"languages": ["English", "", "English"],
			"max_duration_minutes": 45,
			"duration_type": "fixed",
			"remote_testing": true
		}`
		f, err := parseFilters(raw)
		require.NoError(t, err)

		assert.Equal(t, []string{"Manager"}, f.JobLevels)
		assert.Equal(t, []string{"Knowledge & Skills"}, f.TestTypes)
		assert.Equal(t, []string{"English"}, f.Languages)
		require.NotNil(t, f.MaxDurationMinutes)
		assert.Equal(t, 45, *f.MaxDurationMinutes)
		assert.Equal(t, model.DurationFixed, f.DurationType)
		require.NotNil(t, f.RemoteTesting)
		assert.True(t, *f.RemoteTesting)
	})

	t.Run("object inside prose", func(t *testing.T) {
		raw := `Here are the filters I found: {"job_levels": ["Executive"]} hope that helps`
		f, err := parseFilters(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"Executive"}, f.JobLevels)
	})

	t.Run("fenced object", func(t *testing.T) {
		raw := "```json\n{\"test_types\": [\"Simulations\"]}\n```"
		f, err := parseFilters(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"Simulations"}, f.TestTypes)
	})

	t.Run("empty object means no filters", func(t *testing.T) {
		f, err := parseFilters("{}")
		require.NoError(t, err)
		assert.True(t, f.IsZero())
	})

	t.Run("unknown vocabulary values are dropped entirely", func(t *testing.T) {
		f, err := parseFilters(`{"job_levels": ["CEO"], "test_types": ["Vibes"]}`)
		require.NoError(t, err)
		assert.Nil(t, f.JobLevels)
		assert.Nil(t, f.TestTypes)
	})

	t.Run("non-positive duration is dropped", func(t *testing.T) {
		f, err := parseFilters(`{"max_duration_minutes": 0}`)
		require.NoError(t, err)
		assert.Nil(t, f.MaxDurationMinutes)
	})

	t.Run("unknown duration type is dropped", func(t *testing.T) {
		f, err := parseFilters(`{"duration_type": "forever"}`)
		require.NoError(t, err)
		assert.Empty(t, f.DurationType)
	})
}

func TestParseFiltersMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no object anywhere", "no structured filters in this query"},
		{"unbalanced braces", "{ not json"},
		{"invalid json between braces", `{"job_levels": [}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFilters(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}
