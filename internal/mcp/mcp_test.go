package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/mekiki/internal/catalog"
	"github.com/ashita-ai/mekiki/internal/model"
	"github.com/ashita-ai/mekiki/internal/service/embedding"
	"github.com/ashita-ai/mekiki/internal/service/llm"
	"github.com/ashita-ai/mekiki/internal/service/recommend"
	"github.com/ashita-ai/mekiki/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := storage.NewMemory()
	require.NoError(t, catalog.SeedStore(context.Background(), store))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mock := llm.NewMock()
	svc := recommend.New(store, embedding.NewMockProvider(768), mock, mock, nil,
		recommend.Options{
			DefaultTopK:         5,
			RetrievalMultiplier: 3,
			MinSimilarity:       0.6,
		}, logger)

	return New(store, svc, logger, "test")
}

func callRequest(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// toolText extracts the first TextContent text from a CallToolResult.
func toolText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("tool result has no text content")
	return ""
}

func TestHandleRecommend(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleRecommend(context.Background(), callRequest("recommend_assessments", map[string]any{
		"query": "software developer with coding skills",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, toolText(t, result))

	var resp struct {
		Recommendations []recommendationItem `json:"recommendations"`
		TotalCandidates int                  `json:"total_candidates"`
	}
	require.NoError(t, json.Unmarshal([]byte(toolText(t, result)), &resp))

	require.NotEmpty(t, resp.Recommendations)
	top := resp.Recommendations[0]
	assert.Equal(t, "Coding Skills Assessment", top.Name)
	assert.Equal(t, 1, top.Rank)
	assert.Contains(t, top.URL, "https://www.shl.com/")
	assert.NotEmpty(t, top.Duration)
	assert.Positive(t, resp.TotalCandidates)
}

func TestHandleRecommendMissingQuery(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleRecommend(context.Background(),
		callRequest("recommend_assessments", map[string]any{}))
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, toolText(t, result), "query is required")
}

func TestHandleRecommendDurationFilter(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleRecommend(context.Background(), callRequest("recommend_assessments", map[string]any{
		"query":                "cognitive reasoning tests",
		"max_duration_minutes": 30,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, toolText(t, result))

	var resp struct {
		Recommendations []recommendationItem `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal([]byte(toolText(t, result)), &resp))

	require.NotEmpty(t, resp.Recommendations)
	for _, item := range resp.Recommendations {
		assert.NotEqual(t, "Numerical Reasoning Assessment", item.Name,
			"40 minutes exceeds the requested cap")
	}
}

func TestHandleSearch(t *testing.T) {
	s := newTestServer(t)

	t.Run("by test type", func(t *testing.T) {
		result, err := s.handleSearch(context.Background(), callRequest("search_assessments", map[string]any{
			"test_type": "Ability & Aptitude",
		}))
		require.NoError(t, err)
		require.False(t, result.IsError, toolText(t, result))

		var resp struct {
			Assessments []model.Assessment `json:"assessments"`
			Total       int                `json:"total"`
		}
		require.NoError(t, json.Unmarshal([]byte(toolText(t, result)), &resp))
		assert.Equal(t, 3, resp.Total)
	})

	t.Run("by substring", func(t *testing.T) {
		result, err := s.handleSearch(context.Background(), callRequest("search_assessments", map[string]any{
			"search": "coding",
		}))
		require.NoError(t, err)
		require.False(t, result.IsError, toolText(t, result))

		var resp struct {
			Assessments []model.Assessment `json:"assessments"`
			Total       int                `json:"total"`
		}
		require.NoError(t, json.Unmarshal([]byte(toolText(t, result)), &resp))
		require.Equal(t, 1, resp.Total)
		assert.Equal(t, "Coding Skills Assessment", resp.Assessments[0].Name)
	})
}

func TestHandleGet(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleGet(context.Background(), callRequest("get_assessment", map[string]any{
		"id": "5",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, toolText(t, result))

	var a model.Assessment
	require.NoError(t, json.Unmarshal([]byte(toolText(t, result)), &a))
	assert.Equal(t, "Coding Skills Assessment", a.Name)

	result, err = s.handleGet(context.Background(), callRequest("get_assessment", map[string]any{
		"id": "no-such-id",
	}))
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, toolText(t, result), "not found")
}

func TestHandleCatalogSummary(t *testing.T) {
	s := newTestServer(t)

	contents, err := s.handleCatalogSummary(context.Background(), mcplib.ReadResourceRequest{
		Params: mcplib.ReadResourceParams{URI: catalogSummaryURI},
	})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcplib.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, catalogSummaryURI, text.URI)

	var summary struct {
		TotalAssessments int `json:"total_assessments"`
		ByTestType       []struct {
			TestType string `json:"test_type"`
			Count    int    `json:"count"`
		} `json:"by_test_type"`
		RemoteTesting int `json:"remote_testing"`
	}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &summary))
	assert.Equal(t, 7, summary.TotalAssessments)
	assert.NotEmpty(t, summary.ByTestType)
	assert.Equal(t, 7, summary.RemoteTesting, "every seed entry supports remote testing")
}
