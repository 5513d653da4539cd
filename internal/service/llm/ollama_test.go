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

func TestOllamaClientComplete(t *testing.T) {
	var gotPath string
	var gotReq ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"response":" [0, 2] ","done":true}`))
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "")

	got, err := client.Complete(context.Background(), "rank these documents")
	require.NoError(t, err)
	assert.Equal(t, "[0, 2]", got)

	assert.Equal(t, "/api/generate", gotPath)
	assert.Equal(t, defaultOllamaModel, gotReq.Model)
	assert.Equal(t, "rank these documents", gotReq.Prompt)
	assert.False(t, gotReq.Stream)
	assert.InDelta(t, sampleTemperature, gotReq.Options.Temperature, 1e-9)
	assert.Equal(t, maxCompletionTokens, gotReq.Options.NumPredict)
}

func TestOllamaClientErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer srv.Close()

		client := NewOllamaClient(srv.URL, "missing-model")
		_, err := client.Complete(context.Background(), "p")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 404")
	})

	t.Run("empty completion", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"response":""}`))
		}))
		defer srv.Close()

		client := NewOllamaClient(srv.URL, "")
		_, err := client.Complete(context.Background(), "p")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty completion")
	})
}
