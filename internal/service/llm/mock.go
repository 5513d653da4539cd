package llm

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ashita-ai/mekiki/internal/model"
)

// Mock implements Reranker and FilterExtractor without an external model.
// Reranking scores candidates by lexical overlap with the query; extraction
// applies a fixed keyword lexicon. Both are pure functions of their inputs,
// so mock-mode runs reproduce exactly.
type Mock struct{}

var (
	_ Reranker        = (*Mock)(nil)
	_ FilterExtractor = (*Mock)(nil)
)

// NewMock returns the deterministic in-process stand-in for an LLM.
func NewMock() *Mock { return &Mock{} }

// Rerank orders docs by how many query words each contains as whole words.
// Ties keep the input order, which preserves the similarity ranking for
// documents the query text does not discriminate between.
func (m *Mock) Rerank(_ context.Context, query string, docs []string, topK int) ([]int, error) {
	if len(docs) == 0 || topK <= 0 {
		return nil, nil
	}

	words := queryWords(query)
	scores := make([]int, len(docs))
	indices := make([]int, len(docs))
	for i, doc := range docs {
		indices[i] = i
		scores[i] = overlapScore(doc, words)
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return scores[indices[a]] > scores[indices[b]]
	})

	if len(indices) > topK {
		indices = indices[:topK]
	}
	return indices, nil
}

// jobLevelCues and testTypeCues map query substrings to vocabulary entries.
// Slices, not maps, so inference order is stable.
var jobLevelCues = []struct{ cue, level string }{
	{"entry", "Entry-Level"},
	{"junior", "Entry-Level"},
	{"graduate", "Graduate"},
	{"supervisor", "Supervisor"},
	{"manager", "Manager"},
	{"management", "Manager"},
	{"director", "Director"},
	{"executive", "Executive"},
}

var testTypeCues = []struct{ cue, testType string }{
	{"cognitive", "Ability & Aptitude"},
	{"aptitude", "Ability & Aptitude"},
	{"personality", "Personality & Behavior"},
	{"behavioral", "Personality & Behavior"},
	{"situational judgment", "Biodata & Situational Judgement"},
	{"situational judgement", "Biodata & Situational Judgement"},
	{"simulation", "Simulations"},
	{"competenc", "Competencies"},
}

var mockDurationRe = regexp.MustCompile(`(\d+)\s*(min|minute|minutes|hour|hours)`)

// ExtractFilters applies the keyword lexicon to the query. Only clear cues
// fill a field; everything else stays unset. It never fails.
func (m *Mock) ExtractFilters(_ context.Context, query string) (model.Filters, error) {
	q := strings.ToLower(query)
	var f model.Filters

	for _, c := range jobLevelCues {
		if strings.Contains(q, c.cue) && !contains(f.JobLevels, c.level) {
			f.JobLevels = append(f.JobLevels, c.level)
		}
	}
	for _, c := range testTypeCues {
		if strings.Contains(q, c.cue) && !contains(f.TestTypes, c.testType) {
			f.TestTypes = append(f.TestTypes, c.testType)
		}
	}

	if match := mockDurationRe.FindStringSubmatch(q); match != nil {
		minutes, err := strconv.Atoi(match[1])
		if err == nil {
			if strings.HasPrefix(match[2], "hour") {
				minutes *= 60
			}
			if minutes > 0 {
				f.MaxDurationMinutes = &minutes
			}
		}
	}

	if strings.Contains(q, "remote") {
		remote := true
		f.RemoteTesting = &remote
	}

	return f, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// queryWords returns the distinct lowercased words of length at least three.
func queryWords(query string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range splitWords(query) {
		if len(w) < 3 || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// overlapScore counts how many of words appear as whole words in doc.
func overlapScore(doc string, words []string) int {
	docWords := make(map[string]bool)
	for _, w := range splitWords(doc) {
		docWords[w] = true
	}
	score := 0
	for _, w := range words {
		if docWords[w] {
			score++
		}
	}
	return score
}

func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
