package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// defaultGeminiModel is the embedding model used when none is configured.
const defaultGeminiModel = "gemini-embedding-001"

// GeminiProvider generates embeddings using Google's Gemini API.
// This is the primary production provider.
type GeminiProvider struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiProvider creates a Gemini embedding provider. An empty model
// selects defaultGeminiModel. Dimensions must match the vector size the
// catalog stores.
func NewGeminiProvider(ctx context.Context, apiKey, model string, dimensions int) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &GeminiProvider{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Dimensions returns the embedding vector size.
func (p *GeminiProvider) Dimensions() int {
	return p.dimensions
}

// Embed generates a single embedding.
func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in a single API call.
func (p *GeminiProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	var result *genai.EmbedContentResponse
	err := withRetry(ctx, func(ctx context.Context) error {
		var err error
		result, err = p.client.Models.EmbedContent(ctx,
			p.model,
			contents,
			&genai.EmbedContentConfig{
				TaskType: "SEMANTIC_SIMILARITY",
			},
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: embed content: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini: expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}

	vecs := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini: empty embedding at index %d", i)
		}
		vecs[i] = normalize(emb.Values)
	}
	return vecs, nil
}

// Close releases the underlying API client. The genai client holds no
// resources that need explicit release.
func (p *GeminiProvider) Close() error {
	return nil
}
