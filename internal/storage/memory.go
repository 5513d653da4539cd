package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/ashita-ai/mekiki/internal/model"
)

// MemoryStore keeps the catalog in process memory. It backs mock mode and
// tests: when a match request carries the raw query text, ranking falls back
// to a lexical keyword heuristic instead of vector distance, so results are
// deterministic without any embedding provider.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]model.Assessment
	order []string // insertion order, the tie-break for heuristic ranking
}

var _ Store = (*MemoryStore)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{items: make(map[string]model.Assessment)}
}

// UpsertAssessment inserts or replaces a catalog entry by id.
func (m *MemoryStore) UpsertAssessment(ctx context.Context, a model.Assessment) (model.Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertLocked(a), nil
}

// UpsertAssessments inserts or replaces catalog entries and returns the
// number written.
func (m *MemoryStore) UpsertAssessments(ctx context.Context, items []model.Assessment) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range items {
		m.upsertLocked(a)
	}
	return len(items), nil
}

func (m *MemoryStore) upsertLocked(a model.Assessment) model.Assessment {
	now := time.Now().UTC()
	prev, exists := m.items[a.ID]
	if exists {
		a.CreatedAt = prev.CreatedAt
		if a.Embedding == nil {
			a.Embedding = prev.Embedding
		}
	} else {
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		m.order = append(m.order, a.ID)
	}
	a.UpdatedAt = now
	m.items[a.ID] = a
	return a
}

// GetAssessment returns a single catalog entry.
// Returns ErrNotFound if the id does not exist.
func (m *MemoryStore) GetAssessment(ctx context.Context, id string) (model.Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.items[id]
	if !ok {
		return model.Assessment{}, ErrNotFound
	}
	return a, nil
}

// ListAssessments returns a filtered page of the catalog in stable id order.
func (m *MemoryStore) ListAssessments(ctx context.Context, p ListParams) ([]model.Assessment, int, error) {
	m.mu.RLock()
	items := make([]model.Assessment, 0, len(m.order))
	for _, id := range m.order {
		items = append(items, m.items[id])
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	filtered := filterAssessments(items, p)
	return pageAssessments(filtered, p.Limit, p.Offset), len(filtered), nil
}

// DeleteAssessment removes a catalog entry.
// Returns ErrNotFound if the id does not exist.
func (m *MemoryStore) DeleteAssessment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// CountAssessments returns the total catalog size.
func (m *MemoryStore) CountAssessments(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

// MatchAssessments ranks the catalog for a query. With QueryText set it uses
// the keyword heuristic; otherwise it falls back to cosine similarity over
// stored vectors, and to a flat relevance ladder when no vectors exist.
func (m *MemoryStore) MatchAssessments(ctx context.Context, p MatchParams) ([]model.MatchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}

	m.mu.RLock()
	items := make([]model.Assessment, 0, len(m.order))
	for _, id := range m.order {
		items = append(items, m.items[id])
	}
	m.mu.RUnlock()

	var results []model.MatchResult
	switch {
	case p.QueryText != "":
		results = rankByKeywords(items, p.QueryText)
	case len(p.Embedding) > 0 && anyEmbedded(items):
		// Id order first so the stable similarity sort breaks ties by id.
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
		for _, a := range items {
			if a.Embedding == nil {
				continue
			}
			sim := cosineSimilarity(p.Embedding, a.Embedding.Slice())
			results = append(results, model.MatchResult{Assessment: a, Similarity: sim})
		}
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Similarity > results[j].Similarity
		})
	default:
		for i, a := range items {
			results = append(results, model.MatchResult{
				Assessment: a,
				Similarity: ladderScore(0.92, 0.03, i, 0.95),
			})
		}
	}

	filtered := results[:0]
	for _, r := range results {
		if r.Similarity >= p.MinSimilarity {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// AssessmentsMissingEmbedding returns entries without a vector in insertion
// order, up to limit.
func (m *MemoryStore) AssessmentsMissingEmbedding(ctx context.Context, limit int) ([]model.Assessment, error) {
	if limit <= 0 {
		limit = 100
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Assessment
	for _, id := range m.order {
		a := m.items[id]
		if a.Embedding != nil {
			continue
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ListEmbeddings pages through stored vectors in id order for index rebuilds.
func (m *MemoryStore) ListEmbeddings(ctx context.Context, limit, offset int) ([]IDVector, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.items))
	for id, a := range m.items {
		if a.Embedding != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	if offset >= len(ids) {
		return nil, nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}

	out := make([]IDVector, 0, end-offset)
	for _, id := range ids[offset:end] {
		a := m.items[id]
		out = append(out, IDVector{
			ID:        a.ID,
			Name:      a.Name,
			Source:    a.Source,
			Embedding: a.Embedding.Slice(),
		})
	}
	return out, nil
}

// UpdateAssessmentEmbedding replaces the stored vector for one entry.
// Returns ErrNotFound if the id does not exist.
func (m *MemoryStore) UpdateAssessmentEmbedding(ctx context.Context, id string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	vec := pgvector.NewVector(embedding)
	a.Embedding = &vec
	a.UpdatedAt = time.Now().UTC()
	m.items[id] = a
	return nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close(ctx context.Context) error { return nil }

func anyEmbedded(items []model.Assessment) bool {
	for _, a := range items {
		if a.Embedding != nil {
			return true
		}
	}
	return false
}

// keywordMatches maps query keywords to the assessment names they should
// promote. Multiple keyword hits on the same name stack.
var keywordMatches = map[string][]string{
	"coding":      {"Coding Skills Assessment"},
	"software":    {"Coding Skills Assessment", "Inductive Reasoning Assessment"},
	"developer":   {"Coding Skills Assessment", "Inductive Reasoning Assessment"},
	"programming": {"Coding Skills Assessment"},
	"personality": {"Personality Assessment"},
	"behavior":    {"Personality Assessment", "Situational Judgment Test"},
	"leadership":  {"Leadership Assessment", "Situational Judgment Test"},
	"manager":     {"Leadership Assessment", "Numerical Reasoning Assessment"},
	"executive":   {"Leadership Assessment", "Numerical Reasoning Assessment"},
	"entry":       {"Verbal Reasoning Assessment", "Coding Skills Assessment"},
	"junior":      {"Verbal Reasoning Assessment", "Coding Skills Assessment"},
	"technical":   {"Coding Skills Assessment", "Numerical Reasoning Assessment"},
	"verbal":      {"Verbal Reasoning Assessment"},
	"numerical":   {"Numerical Reasoning Assessment"},
	"math":        {"Numerical Reasoning Assessment"},
	"reasoning":   {"Verbal Reasoning Assessment", "Numerical Reasoning Assessment", "Inductive Reasoning Assessment"},
}

// rankByKeywords orders the catalog by how many query keywords promote each
// entry, then assigns a descending similarity ladder anchored at 0.95 so the
// whole ranking clears the default similarity floor.
func rankByKeywords(items []model.Assessment, query string) []model.MatchResult {
	query = strings.ToLower(query)

	scores := make(map[string]int, len(items))
	for keyword, names := range keywordMatches {
		if !strings.Contains(query, keyword) {
			continue
		}
		for _, name := range names {
			scores[name]++
		}
	}

	ranked := make([]model.Assessment, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i].Name] > scores[ranked[j].Name]
	})

	results := make([]model.MatchResult, len(ranked))
	for i, a := range ranked {
		results[i] = model.MatchResult{
			Assessment: a,
			Similarity: ladderScore(0.95, 0.05, i, 0.98),
		}
	}
	return results
}

// ladderScore computes max(0.6, min(ceil, base - step*i)).
func ladderScore(base, step float32, i int, ceil float32) float32 {
	s := base - step*float32(i)
	if s > ceil {
		s = ceil
	}
	if s < 0.6 {
		s = 0.6
	}
	return s
}
