package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiClientComplete(t *testing.T) {
	var gotPath, gotKey string
	var gotReq geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"[0, "},{"text":"1]"}]}}]}`))
	}))
	defer srv.Close()

	client, err := NewGeminiClient("test-key", "")
	require.NoError(t, err)
	client.baseURL = srv.URL

	got, err := client.Complete(context.Background(), "rank these documents")
	require.NoError(t, err)

	// Multiple parts are concatenated into one completion.
	assert.Equal(t, "[0, 1]", got)

	assert.Equal(t, "/models/"+defaultGeminiModel+":generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotReq.Contents, 1)
	assert.Equal(t, "user", gotReq.Contents[0].Role)
	require.Len(t, gotReq.Contents[0].Parts, 1)
	assert.Equal(t, "rank these documents", gotReq.Contents[0].Parts[0].Text)
	assert.InDelta(t, sampleTemperature, gotReq.GenerationConfig.Temperature, 1e-9)
	assert.InDelta(t, sampleTopP, gotReq.GenerationConfig.TopP, 1e-9)
	assert.Equal(t, sampleTopK, gotReq.GenerationConfig.TopK)
	assert.Equal(t, maxCompletionTokens, gotReq.GenerationConfig.MaxOutputTokens)
}

func TestGeminiClientErrors(t *testing.T) {
	t.Run("requires an API key", func(t *testing.T) {
		_, err := NewGeminiClient("", "")
		require.Error(t, err)
	})

	t.Run("api error payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":{"message":"quota exhausted"}}`))
		}))
		defer srv.Close()

		client, err := NewGeminiClient("k", "")
		require.NoError(t, err)
		client.baseURL = srv.URL

		_, err = client.Complete(context.Background(), "p")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exhausted")
	})

	t.Run("unexpected status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "backend exploded", http.StatusInternalServerError)
		}))
		defer srv.Close()

		client, err := NewGeminiClient("k", "")
		require.NoError(t, err)
		client.baseURL = srv.URL

		_, err = client.Complete(context.Background(), "p")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})

	t.Run("no candidates", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		}))
		defer srv.Close()

		client, err := NewGeminiClient("k", "")
		require.NoError(t, err)
		client.baseURL = srv.URL

		_, err = client.Complete(context.Background(), "p")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no completion")
	})
}
