package embedding

import (
	"strings"

	"github.com/ashita-ai/mekiki/internal/model"
)

// Text builds the canonical text representation of an assessment for
// embedding. Queries embed as-is; catalog entries combine name, description,
// and the categorical fields so that terms like "personality" or "entry
// level" carry semantic weight in the vector.
func Text(a model.Assessment) string {
	var b strings.Builder
	b.WriteString("Assessment: ")
	b.WriteString(a.Name)
	b.WriteString("\n\nDescription: ")
	b.WriteString(a.Description)
	b.WriteString("\n\n")
	if len(a.TestTypes) > 0 {
		b.WriteString("Test Types: ")
		b.WriteString(strings.Join(a.TestTypes, ", "))
		b.WriteString("\n\n")
	}
	if len(a.JobLevels) > 0 {
		b.WriteString("Job Levels: ")
		b.WriteString(strings.Join(a.JobLevels, ", "))
		b.WriteString("\n\n")
	}
	if len(a.KeyFeatures) > 0 {
		b.WriteString("Key Features: ")
		b.WriteString(strings.Join(a.KeyFeatures, ", "))
		b.WriteString("\n\n")
	}
	return b.String()
}
