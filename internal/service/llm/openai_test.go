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

func TestOpenAIClientComplete(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  [1, 0]\n"}}]}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient("sk-test", "")
	require.NoError(t, err)
	client.baseURL = srv.URL

	got, err := client.Complete(context.Background(), "rank these documents")
	require.NoError(t, err)
	assert.Equal(t, "[1, 0]", got)

	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, defaultOpenAIModel, gotReq.Model)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "rank these documents", gotReq.Messages[0].Content)
	assert.InDelta(t, sampleTemperature, gotReq.Temperature, 1e-9)
	assert.Equal(t, maxCompletionTokens, gotReq.MaxTokens)
}

func TestOpenAIClientErrors(t *testing.T) {
	t.Run("requires an API key", func(t *testing.T) {
		_, err := NewOpenAIClient("", "")
		require.Error(t, err)
	})

	t.Run("api error payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
		}))
		defer srv.Close()

		client, err := NewOpenAIClient("sk-bad", "")
		require.NoError(t, err)
		client.baseURL = srv.URL

		_, err = client.Complete(context.Background(), "p")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad key")
	})

	t.Run("no choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()

		client, err := NewOpenAIClient("sk-test", "")
		require.NoError(t, err)
		client.baseURL = srv.URL

		_, err = client.Complete(context.Background(), "p")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no completion")
	})
}
