package model

import "strings"

// TestTypeVocabulary is the canonical test-type taxonomy. Catalog exports
// abbreviate these to single-letter codes; NormalizeTestTypes expands them.
var TestTypeVocabulary = []string{
	"Ability & Aptitude",
	"Biodata & Situational Judgement",
	"Competencies",
	"Development & 360",
	"Assessment Exercises",
	"Knowledge & Skills",
	"Personality & Behavior",
	"Simulations",
}

var testTypeByCode = map[string]string{
	"A": "Ability & Aptitude",
	"B": "Biodata & Situational Judgement",
	"C": "Competencies",
	"D": "Development & 360",
	"E": "Assessment Exercises",
	"K": "Knowledge & Skills",
	"P": "Personality & Behavior",
	"S": "Simulations",
}

// JobLevelVocabulary is the canonical job-level taxonomy.
var JobLevelVocabulary = []string{
	"Entry-Level",
	"Graduate",
	"Mid-Professional",
	"Professional Individual Contributor",
	"Front Line Manager",
	"Supervisor",
	"Manager",
	"Director",
	"Executive",
	"General Population",
}

// NormalizeTestTypes expands single-letter codes to canonical names and
// canonicalizes case for known vocabulary entries. Unknown values pass
// through trimmed; loaders warn on them rather than reject, since scraped
// catalogs carry free-form labels.
func NormalizeTestTypes(values []string) []string {
	canonical := make(map[string]string, len(TestTypeVocabulary))
	for _, v := range TestTypeVocabulary {
		canonical[strings.ToLower(v)] = v
	}

	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if full, ok := testTypeByCode[strings.ToUpper(v)]; ok && len(v) == 1 {
			v = full
		} else if full, ok := canonical[strings.ToLower(v)]; ok {
			v = full
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// KnownTestType reports whether a value is in the canonical vocabulary.
func KnownTestType(v string) bool {
	for _, t := range TestTypeVocabulary {
		if strings.EqualFold(t, v) {
			return true
		}
	}
	return false
}

// NormalizeList trims entries, drops empties, and dedupes preserving order.
// Used for job levels, languages, and key features on ingest.
func NormalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Intersects reports whether two string sets share any member,
// case-insensitively. Used by the filter engine's membership axes.
func Intersects(have, want []string) bool {
	if len(have) == 0 || len(want) == 0 {
		return false
	}
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[strings.ToLower(strings.TrimSpace(h))] = true
	}
	for _, w := range want {
		if set[strings.ToLower(strings.TrimSpace(w))] {
			return true
		}
	}
	return false
}
