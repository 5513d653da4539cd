package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ashita-ai/mekiki/internal/model"
)

var indexArrayRe = regexp.MustCompile(`\[\s*\d+(?:\s*,\s*\d+)*\s*\]`)

// parseIndices extracts a ranked index list from a model response. The
// response is parsed as JSON first: an array is used directly, any other
// valid JSON value is rejected. When the response is not JSON at all, the
// first integer-array literal found in the text is used. Non-integer
// values, out-of-range indices, and duplicates are dropped, duplicates
// keeping their first occurrence.
func parseIndices(raw string, n int) ([]int, error) {
	text := stripFences(raw)

	decoded, err := decodeJSON(text)
	if err != nil {
		match := indexArrayRe.FindString(text)
		if match == "" {
			return nil, fmt.Errorf("%w: no index array in %q", ErrMalformedResponse, clip(raw))
		}
		decoded, err = decodeJSON(match)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}

	values, ok := decoded.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: response is not a list: %q", ErrMalformedResponse, clip(raw))
	}

	out := make([]int, 0, len(values))
	seen := make(map[int]bool, len(values))
	for _, v := range values {
		num, isNum := v.(json.Number)
		if !isNum {
			continue
		}
		i64, err := num.Int64()
		if err != nil {
			continue
		}
		idx := int(i64)
		if idx < 0 || idx >= n || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out, nil
}

// decodeJSON parses text as a single JSON value, keeping numbers as
// json.Number so 2 stays distinguishable from 2.5. Text with trailing
// content after the value is rejected, like a strict whole-string parse.
func decodeJSON(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

// filterPayload is the loose JSON shape the extraction prompt requests.
// Scalars are pointers so absent fields stay unset.
type filterPayload struct {
	JobLevels          []string `json:"job_levels"`
	TestTypes          []string `json:"test_types"`
	Languages          []string `json:"languages"`
	MaxDurationMinutes *float64 `json:"max_duration_minutes"`
	DurationType       string   `json:"duration_type"`
	RemoteTesting      *bool    `json:"remote_testing"`
}

// parseFilters extracts a filter object from a model response. The first
// balanced-looking object in the text is parsed, which tolerates prose
// before or after the JSON.
func parseFilters(raw string) (model.Filters, error) {
	text := stripFences(raw)

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return model.Filters{}, fmt.Errorf("%w: no JSON object in %q", ErrMalformedResponse, clip(raw))
	}

	var payload filterPayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return model.Filters{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return sanitizeFilters(payload), nil
}

// sanitizeFilters keeps only values the canonical vocabularies recognize.
// Inferred filters are advisory; unknown values are dropped rather than
// passed through.
func sanitizeFilters(p filterPayload) model.Filters {
	var f model.Filters

	f.JobLevels = matchVocabulary(p.JobLevels, model.JobLevelVocabulary)
	f.TestTypes = matchVocabulary(p.TestTypes, model.TestTypeVocabulary)
	f.Languages = model.NormalizeList(p.Languages)

	if p.MaxDurationMinutes != nil {
		if minutes := int(*p.MaxDurationMinutes); minutes > 0 {
			f.MaxDurationMinutes = &minutes
		}
	}

	switch strings.ToLower(strings.TrimSpace(p.DurationType)) {
	case "fixed":
		f.DurationType = model.DurationFixed
	case "variable":
		f.DurationType = model.DurationVariable
	case "untimed":
		f.DurationType = model.DurationUntimed
	}

	f.RemoteTesting = p.RemoteTesting
	return f
}

// matchVocabulary canonicalizes values case-insensitively against a fixed
// vocabulary, dropping anything unrecognized and deduping.
func matchVocabulary(values, vocab []string) []string {
	if len(values) == 0 {
		return nil
	}
	canonical := make(map[string]string, len(vocab))
	for _, v := range vocab {
		canonical[strings.ToLower(v)] = v
	}

	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		c, ok := canonical[strings.ToLower(strings.TrimSpace(v))]
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// stripFences removes a markdown code fence wrapper, with or without an
// info string, if the response arrives inside one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		info := strings.TrimSpace(s[:i])
		if len(info) <= 8 && !strings.ContainsAny(info, "{[") {
			s = s[i+1:]
		}
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// clip bounds a raw response for inclusion in error messages.
func clip(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
