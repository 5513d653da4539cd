package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
)

// Assessment is the unit of recommendation. Identity is an opaque string id;
// Name is unique across the catalog and serves as the ground-truth key.
type Assessment struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// URL may be absolute or site-relative. Emitters prepend the canonical
	// host when relative (see CanonicalURL).
	URL           string   `json:"url,omitempty"`
	RemoteTesting bool     `json:"remote_testing"`
	AdaptiveIRT   bool     `json:"adaptive_irt"`
	TestTypes     []string `json:"test_types"`
	JobLevels     []string `json:"job_levels"`
	Languages     []string `json:"languages"`
	KeyFeatures   []string `json:"key_features"`

	// Parsed duration tuple. At most one of IsUntimed, IsVariable, and a
	// bounded min/max holds; when none hold the duration is unknown and
	// never constrains filtering.
	DurationText       string `json:"duration_text,omitempty"`
	DurationMinMinutes *int   `json:"duration_min_minutes,omitempty"`
	DurationMaxMinutes *int   `json:"duration_max_minutes,omitempty"`
	IsUntimed          bool   `json:"is_untimed"`
	IsVariable         bool   `json:"is_variable_duration"`

	Source string `json:"source,omitempty"`

	// Embedding is the unit-norm description vector. Nil until the
	// generation job has run; an assessment without an embedding is not
	// retrievable by vector search.
	Embedding *pgvector.Vector `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanonicalHost is prepended to site-relative assessment URLs on output.
const CanonicalHost = "https://www.shl.com"

// CanonicalURL returns the assessment URL with the canonical host prepended
// when the stored value is site-relative.
func (a Assessment) CanonicalURL() string {
	u := strings.TrimSpace(a.URL)
	if u == "" {
		return CanonicalHost
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return CanonicalHost + u
}

// DurationRender is the stable human-readable duration used in candidate
// context docs and explanations.
func (a Assessment) DurationRender() string {
	switch {
	case a.IsUntimed:
		return "Untimed assessment"
	case a.IsVariable:
		return "Variable duration"
	case a.DurationMinMinutes != nil && a.DurationMaxMinutes != nil && *a.DurationMinMinutes == *a.DurationMaxMinutes:
		return fmt.Sprintf("Duration: %d minutes", *a.DurationMinMinutes)
	case a.DurationText != "":
		return a.DurationText
	default:
		return "Duration not specified"
	}
}

// EffectiveDurationMinutes is the single number used against a
// max_duration_minutes filter: max when set, else min, else nil (unknown).
// Untimed assessments have no effective duration; the filter engine treats
// them by policy, not via this value.
func (a Assessment) EffectiveDurationMinutes() *int {
	if a.DurationMaxMinutes != nil {
		return a.DurationMaxMinutes
	}
	return a.DurationMinMinutes
}

// DurationMinutesInt derives the integer minutes for the simple /recommend
// contract: max, then min, then a pure-integer duration text, else 0.
func (a Assessment) DurationMinutesInt() int {
	if a.DurationMaxMinutes != nil {
		return *a.DurationMaxMinutes
	}
	if a.DurationMinMinutes != nil {
		return *a.DurationMinMinutes
	}
	if n, ok := atoiStrict(strings.TrimSpace(a.DurationText)); ok {
		return n
	}
	return 0
}

// Validate checks the fields the admin write paths must reject.
func (a Assessment) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("model: assessment name is required")
	}
	if a.DurationMinMinutes != nil && a.DurationMaxMinutes != nil &&
		*a.DurationMinMinutes > *a.DurationMaxMinutes {
		return fmt.Errorf("model: duration min %d exceeds max %d", *a.DurationMinMinutes, *a.DurationMaxMinutes)
	}
	return nil
}

// EmbeddingText composes the document the embedding provider vectorizes for
// this assessment. Name and description carry most of the signal; the
// categorical lines ground vocabulary ("numerical", "entry-level") that
// descriptions often omit. Loader, regeneration job, and admin writes must
// all embed this same text or stored vectors drift from query vectors.
func (a Assessment) EmbeddingText() string {
	parts := []string{a.Name}
	if a.Description != "" {
		parts = append(parts, a.Description)
	}
	if len(a.TestTypes) > 0 {
		parts = append(parts, "Test types: "+strings.Join(a.TestTypes, ", "))
	}
	if len(a.JobLevels) > 0 {
		parts = append(parts, "Job levels: "+strings.Join(a.JobLevels, ", "))
	}
	if len(a.KeyFeatures) > 0 {
		parts = append(parts, "Key features: "+strings.Join(a.KeyFeatures, ", "))
	}
	return strings.Join(parts, "\n")
}

// MatchResult pairs an assessment with its retrieval similarity.
type MatchResult struct {
	Assessment Assessment `json:"assessment"`
	Similarity float32    `json:"similarity"`
}

// RecommendedAssessment augments an assessment with its retrieval score,
// final 1-based rank, and a human-readable explanation.
type RecommendedAssessment struct {
	Assessment
	SimilarityScore float32 `json:"similarity_score"`
	Rank            int     `json:"rank"`
	Explanation     string  `json:"explanation,omitempty"`
}

func atoiStrict(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
		if n > 1<<30 {
			return 0, false
		}
	}
	return n, true
}
