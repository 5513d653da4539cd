// Package embedding turns hiring queries and assessment text into the
// vectors that drive semantic retrieval.
//
// Four providers share one interface: Gemini (the default when an API key
// is configured), OpenAI, a local Ollama server, and a deterministic mock
// for tests and offline development. Remote providers retry transient
// failures with a fixed pause and bound each attempt with its own timeout.
package embedding

import (
	"context"
	"math"
	"time"
)

// Provider generates vector embeddings from text.
type Provider interface {
	// Embed generates a single embedding vector from text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector dimensionality.
	Dimensions() int
}

const (
	maxAttempts    = 3
	attemptTimeout = 10 * time.Second
)

// retryPause is a var so tests can shrink it.
var retryPause = 2 * time.Second

// normalize scales vec to unit L2 norm in place and returns it. Idempotent;
// zero vectors pass through. Gemini and OpenAI return non-unit vectors when
// the dimensions parameter truncates the model's native output size, and
// stored vectors must be unit norm.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := 1 / math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
	return vec
}

// withRetry executes fn up to maxAttempts times with a fixed pause between
// tries. Each attempt runs under its own attemptTimeout so one hung call
// cannot consume the caller's whole deadline.
func withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryPause):
			}
		}
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
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
