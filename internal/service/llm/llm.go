// Package llm provides the two generative capabilities the recommendation
// pipeline needs: reranking a candidate list for a query and extracting
// structured filters from free-form query text.
//
// Both are implemented once, in Service, on top of a minimal completion
// Client; Gemini, OpenAI, and Ollama clients satisfy that interface over
// raw HTTP. A deterministic mock covers tests and offline mode. Rerank and
// extraction failures are recoverable: callers fall back to similarity
// order and to empty filters respectively.
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/ashita-ai/mekiki/internal/model"
)

// Client produces one text completion for a prompt.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Reranker orders candidate documents by relevance to a query. The returned
// indices point into docs, best first, are distinct and in range, and number
// at most topK. A short list is legal; the caller tops up from the original
// order.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []string, topK int) ([]int, error)
}

// FilterExtractor infers structured filters from a natural-language query.
type FilterExtractor interface {
	ExtractFilters(ctx context.Context, query string) (model.Filters, error)
}

// ErrMalformedResponse indicates the model's output could not be parsed into
// the expected shape after all recovery strategies.
var ErrMalformedResponse = errors.New("llm: malformed response")

const (
	rerankTimeout  = 15 * time.Second
	extractTimeout = 10 * time.Second

	maxAttempts = 3
)

// retryPause is a var so tests can shrink it.
var retryPause = 2 * time.Second

// withRetry executes fn up to maxAttempts times with a fixed pause between
// tries. Each attempt runs under its own timeout derived from ctx.
func withRetry(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	var err error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryPause):
			}
		}
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		err = fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return err
}
