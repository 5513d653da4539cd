package embedding

import (
	"context"
	"hash/fnv"
	"math/rand/v2"
)

// MockProvider generates deterministic pseudo-random unit vectors. The same
// text always yields the same vector, so mock-mode retrieval and tests are
// reproducible without network access.
type MockProvider struct {
	dims int
}

// NewMockProvider creates a deterministic mock provider.
func NewMockProvider(dims int) *MockProvider {
	return &MockProvider{dims: dims}
}

// Dimensions returns the embedding vector size.
func (p *MockProvider) Dimensions() int {
	return p.dims
}

// Embed returns a unit vector seeded from a hash of the text.
func (p *MockProvider) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	rng := rand.New(rand.NewPCG(h.Sum64(), 0))

	vec := make([]float32, p.dims)
	for i := range vec {
		vec[i] = float32(rng.Float64()*2 - 1)
	}
	return normalize(vec), nil
}

// EmbedBatch returns deterministic vectors for each text.
func (p *MockProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}
