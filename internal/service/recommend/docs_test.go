package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashita-ai/mekiki/internal/model"
)

func TestContextDocLayout(t *testing.T) {
	a := model.Assessment{
		Name:               "Verbal Reasoning Assessment",
		Description:        "Measures comprehension.",
		TestTypes:          []string{"Ability & Aptitude"},
		JobLevels:          []string{"Entry-Level", "Manager"},
		Languages:          []string{"English", "French"},
		KeyFeatures:        []string{"Online", "Standardized"},
		RemoteTesting:      true,
		DurationMinMinutes: intPtr(30),
		DurationMaxMinutes: intPtr(30),
	}

	doc := contextDoc(model.MatchResult{Assessment: a, Similarity: 0.8534})

	// A fixed duration renders with its own label, hence the doubled
	// "Duration:" on that line.
	want := "Assessment: Verbal Reasoning Assessment\n" +
		"Description: Measures comprehension.\n" +
		"Test Types: Ability & Aptitude\n" +
		"Job Levels: Entry-Level, Manager\n" +
		"Duration: Duration: 30 minutes\n" +
		"Remote Testing: Yes\n" +
		"Languages: English, French\n" +
		"Features: Online, Standardized\n" +
		"Vector Similarity Score: 0.8534\n"
	assert.Equal(t, want, doc)
}

func TestContextDocOmitsEmptyFields(t *testing.T) {
	doc := contextDoc(model.MatchResult{
		Assessment: model.Assessment{Name: "Bare Assessment"},
		Similarity: 0.75,
	})

	want := "Assessment: Bare Assessment\n" +
		"Duration: Duration not specified\n" +
		"Remote Testing: No\n" +
		"Vector Similarity Score: 0.7500\n"
	assert.Equal(t, want, doc)
}

func TestContextDocDurationRenders(t *testing.T) {
	cases := []struct {
		name string
		a    model.Assessment
		want string
	}{
		{"untimed", model.Assessment{Name: "x", IsUntimed: true}, "Duration: Untimed assessment\n"},
		{"variable", model.Assessment{Name: "x", IsVariable: true}, "Duration: Variable duration\n"},
		{"text fallback", model.Assessment{Name: "x", DurationText: "max 20"}, "Duration: max 20\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := contextDoc(model.MatchResult{Assessment: tc.a, Similarity: 0.7})
			assert.Contains(t, doc, tc.want)
		})
	}
}

func TestContextDocsIndexAligned(t *testing.T) {
	results := []model.MatchResult{
		{Assessment: model.Assessment{Name: "First"}, Similarity: 0.9},
		{Assessment: model.Assessment{Name: "Second"}, Similarity: 0.8},
	}
	docs := contextDocs(results)
	assert.Len(t, docs, 2)
	assert.Contains(t, docs[0], "Assessment: First\n")
	assert.Contains(t, docs[0], "Vector Similarity Score: 0.9000\n")
	assert.Contains(t, docs[1], "Assessment: Second\n")
}
