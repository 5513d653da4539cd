package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashita-ai/mekiki/internal/model"
)

// Service implements Reranker and FilterExtractor on top of a completion
// Client. Prompt construction, retries, and response parsing live here so
// every provider behaves identically.
type Service struct {
	client Client
	logger *slog.Logger
}

var (
	_ Reranker        = (*Service)(nil)
	_ FilterExtractor = (*Service)(nil)
)

// NewService wraps a completion client.
func NewService(client Client, logger *slog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Rerank asks the model to order docs by relevance to query. The returned
// indices are distinct, in range, and at most topK long. Short lists are
// passed through as-is; the pipeline fills the remainder from similarity
// order.
func (s *Service) Rerank(ctx context.Context, query string, docs []string, topK int) ([]int, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	prompt := rerankPrompt(query, docs, topK)

	var raw string
	err := withRetry(ctx, rerankTimeout, func(ctx context.Context) error {
		var err error
		raw, err = s.client.Complete(ctx, prompt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("llm: rerank: %w", err)
	}

	indices, err := parseIndices(raw, len(docs))
	if err != nil {
		return nil, fmt.Errorf("llm: rerank: %w", err)
	}
	if len(indices) > topK {
		indices = indices[:topK]
	}

	s.logger.Debug("reranked candidates",
		"query_length", len(query),
		"candidates", len(docs),
		"returned", len(indices))
	return indices, nil
}

// ExtractFilters infers structured filters from free-form query text. Only
// values the canonical vocabularies recognize survive; everything else is
// dropped so a hallucinated level or test type cannot silently empty the
// result set.
func (s *Service) ExtractFilters(ctx context.Context, query string) (model.Filters, error) {
	prompt := extractPrompt(query)

	var raw string
	err := withRetry(ctx, extractTimeout, func(ctx context.Context) error {
		var err error
		raw, err = s.client.Complete(ctx, prompt)
		return err
	})
	if err != nil {
		return model.Filters{}, fmt.Errorf("llm: extract filters: %w", err)
	}

	filters, err := parseFilters(raw)
	if err != nil {
		return model.Filters{}, fmt.Errorf("llm: extract filters: %w", err)
	}

	s.logger.Debug("extracted filters from query",
		"query_length", len(query),
		"job_levels", len(filters.JobLevels),
		"test_types", len(filters.TestTypes),
		"has_duration", filters.MaxDurationMinutes != nil)
	return filters, nil
}

// rerankPrompt renders the ranking instruction. Documents are numbered from
// one in the prompt body; the model answers with zero-based indices.
func rerankPrompt(query string, docs []string, topK int) string {
	var context strings.Builder
	for i, doc := range docs {
		if i > 0 {
			context.WriteString("\n\n")
		}
		fmt.Fprintf(&context, "DOCUMENT %d:\n%s", i+1, doc)
	}

	return fmt.Sprintf(`Your task is to rank the most relevant documents for a given query.

QUERY: %s

Below are the available documents with their scores from a vector search:

%s

INSTRUCTIONS:
1. Analyze the query to understand the user's intent and requirements
2. Evaluate each document for its relevance to the query
3. Consider both the semantic similarity and the assessment characteristics
4. Return a JSON array containing the indices of the top %d most relevant documents
   (0-indexed, based on the DOCUMENT numbers above minus 1)

Example valid outputs:
[0, 2, 1] - This means DOCUMENT 1, DOCUMENT 3, and DOCUMENT 2 are the most relevant, in that order
[5, 3] - This means DOCUMENT 6 and DOCUMENT 4 are the most relevant, in that order

YOUR RESPONSE (just a JSON array of indices):`, query, context.String(), topK)
}

// extractPrompt renders the filter-extraction instruction with the canonical
// vocabularies inlined so the model picks from known values.
func extractPrompt(query string) string {
	return fmt.Sprintf(`Extract assessment search filters from a hiring query.

QUERY: %s

Identify only the constraints the query states explicitly. Do not guess:
omit every field the query does not clearly specify.

Fields:
- "job_levels": array of values from: %s
- "test_types": array of values from: %s
- "languages": array of natural languages the assessment must support
- "max_duration_minutes": integer, the maximum assessment length in minutes
- "duration_type": one of "Fixed", "Variable", "Untimed"
- "remote_testing": boolean, whether remote administration is required

Example valid outputs:
{"job_levels": ["Manager"], "max_duration_minutes": 45}
{"test_types": ["Knowledge & Skills"], "remote_testing": true}
{}

YOUR RESPONSE (just a JSON object):`,
		query,
		strings.Join(model.JobLevelVocabulary, ", "),
		strings.Join(model.TestTypeVocabulary, ", "))
}
