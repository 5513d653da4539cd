package recommend

import (
	"fmt"
	"strings"

	"github.com/ashita-ai/mekiki/internal/model"
)

// contextDoc renders one candidate as the plain-text block the reranker
// prompt consumes. Field order and labels are fixed; fields with no value
// are omitted. The duration line keeps the render's own label, so a fixed
// duration reads "Duration: Duration: 30 minutes".
func contextDoc(m model.MatchResult) string {
	a := m.Assessment
	var b strings.Builder
	fmt.Fprintf(&b, "Assessment: %s\n", a.Name)
	if a.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", a.Description)
	}
	if len(a.TestTypes) > 0 {
		fmt.Fprintf(&b, "Test Types: %s\n", strings.Join(a.TestTypes, ", "))
	}
	if len(a.JobLevels) > 0 {
		fmt.Fprintf(&b, "Job Levels: %s\n", strings.Join(a.JobLevels, ", "))
	}
	fmt.Fprintf(&b, "Duration: %s\n", a.DurationRender())
	fmt.Fprintf(&b, "Remote Testing: %s\n", yesNo(a.RemoteTesting))
	if len(a.Languages) > 0 {
		fmt.Fprintf(&b, "Languages: %s\n", strings.Join(a.Languages, ", "))
	}
	if len(a.KeyFeatures) > 0 {
		fmt.Fprintf(&b, "Features: %s\n", strings.Join(a.KeyFeatures, ", "))
	}
	fmt.Fprintf(&b, "Vector Similarity Score: %.4f\n", m.Similarity)
	return b.String()
}

// contextDocs renders every candidate, index-aligned with the input slice
// so reranker indices map straight back to candidates.
func contextDocs(results []model.MatchResult) []string {
	docs := make([]string, len(results))
	for i, m := range results {
		docs[i] = contextDoc(m)
	}
	return docs
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
