package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastRetries shrinks the retry pause so failure paths do not slow the suite.
func fastRetries(t *testing.T) {
	t.Helper()
	saved := retryPause
	retryPause = time.Millisecond
	t.Cleanup(func() { retryPause = saved })
}

// fakeClient replays canned responses. Call i returns errs[i] when set,
// otherwise responses[i].
type fakeClient struct {
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeClient) Complete(_ context.Context, prompt string) (string, error) {
	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("fakeClient: no canned response")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServiceRerank(t *testing.T) {
	ctx := context.Background()
	docs := []string{"doc zero", "doc one", "doc two"}

	t.Run("returns the model ordering", func(t *testing.T) {
		client := &fakeClient{responses: []string{"[2, 0]"}}
		svc := NewService(client, testLogger())

		got, err := svc.Rerank(ctx, "pick the best", docs, 2)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 0}, got)

		require.Len(t, client.prompts, 1)
		prompt := client.prompts[0]
		assert.Contains(t, prompt, "QUERY: pick the best")
		assert.Contains(t, prompt, "DOCUMENT 1:\ndoc zero")
		assert.Contains(t, prompt, "DOCUMENT 3:\ndoc two")
		assert.Contains(t, prompt, "top 2 most relevant")
	})

	t.Run("sanitizes and truncates indices", func(t *testing.T) {
		client := &fakeClient{responses: []string{"[1, 1, 9, 0, 2]"}}
		svc := NewService(client, testLogger())

		got, err := svc.Rerank(ctx, "query", docs, 2)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 0}, got)
	})

	t.Run("short list passes through", func(t *testing.T) {
		client := &fakeClient{responses: []string{"[2]"}}
		svc := NewService(client, testLogger())

		got, err := svc.Rerank(ctx, "query", docs, 3)
		require.NoError(t, err)
		assert.Equal(t, []int{2}, got)
	})

	t.Run("empty docs skip the client", func(t *testing.T) {
		client := &fakeClient{}
		svc := NewService(client, testLogger())

		got, err := svc.Rerank(ctx, "query", nil, 5)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Empty(t, client.prompts)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		fastRetries(t)
		client := &fakeClient{
			errs:      []error{errors.New("connection refused"), nil},
			responses: []string{"", "[0, 1]"},
		}
		svc := NewService(client, testLogger())

		got, err := svc.Rerank(ctx, "query", docs, 2)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, got)
		assert.Len(t, client.prompts, 2)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		fastRetries(t)
		boom := errors.New("upstream down")
		client := &fakeClient{errs: []error{boom, boom, boom}}
		svc := NewService(client, testLogger())

		_, err := svc.Rerank(ctx, "query", docs, 2)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Len(t, client.prompts, maxAttempts)
	})

	t.Run("malformed response is an error", func(t *testing.T) {
		client := &fakeClient{responses: []string{"I cannot rank these."}}
		svc := NewService(client, testLogger())

		_, err := svc.Rerank(ctx, "query", docs, 2)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestServiceExtractFilters(t *testing.T) {
	ctx := context.Background()

	t.Run("parses and validates filters", func(t *testing.T) {
		client := &fakeClient{responses: []string{`{"job_levels": ["executive"], "max_duration_minutes": 30}`}}
		svc := NewService(client, testLogger())

		f, err := svc.ExtractFilters(ctx, "tests for executives under 30 minutes")
		require.NoError(t, err)
		assert.Equal(t, []string{"Executive"}, f.JobLevels)
		require.NotNil(t, f.MaxDurationMinutes)
		assert.Equal(t, 30, *f.MaxDurationMinutes)

		require.Len(t, client.prompts, 1)
		prompt := client.prompts[0]
		assert.Contains(t, prompt, "QUERY: tests for executives under 30 minutes")
		// The prompt lists both vocabularies so the model picks known values.
		assert.Contains(t, prompt, "Entry-Level")
		assert.Contains(t, prompt, "Biodata & Situational Judgement")
	})

	t.Run("fenced response", func(t *testing.T) {
		client := &fakeClient{responses: []string{"```json\n{\"test_types\": [\"Simulations\"]}\n```"}}
		svc := NewService(client, testLogger())

		f, err := svc.ExtractFilters(ctx, "simulation exercises")
		require.NoError(t, err)
		assert.Equal(t, []string{"Simulations"}, f.TestTypes)
	})

	t.Run("malformed response is an error", func(t *testing.T) {
		client := &fakeClient{responses: []string{"the query has no filters"}}
		svc := NewService(client, testLogger())

		_, err := svc.ExtractFilters(ctx, "plain query")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		fastRetries(t)
		boom := errors.New("upstream down")
		client := &fakeClient{errs: []error{boom, boom, boom}}
		svc := NewService(client, testLogger())

		_, err := svc.ExtractFilters(ctx, "plain query")
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Len(t, client.prompts, maxAttempts)
	})
}

func TestRerankPromptLayout(t *testing.T) {
	prompt := rerankPrompt("find coding tests", []string{"alpha", "beta"}, 5)

	// Documents are numbered from one and separated by blank lines.
	assert.Contains(t, prompt, "DOCUMENT 1:\nalpha\n\nDOCUMENT 2:\nbeta")
	// The response format instruction closes the prompt.
	assert.True(t, strings.HasSuffix(prompt, "YOUR RESPONSE (just a JSON array of indices):"))
}
