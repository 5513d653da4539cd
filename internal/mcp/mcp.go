// Package mcp exposes the recommendation engine over the Model Context
// Protocol. MCP-compatible agents get the same pipeline the HTTP API runs,
// as tools plus a catalog summary resource.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/mekiki/internal/ctxutil"
	"github.com/ashita-ai/mekiki/internal/model"
	"github.com/ashita-ai/mekiki/internal/service/recommend"
	"github.com/ashita-ai/mekiki/internal/storage"
)

const catalogSummaryURI = "mekiki://catalog/summary"

// Server wraps the MCP server with mekiki's service layer.
type Server struct {
	mcpServer    *mcpserver.MCPServer
	store        storage.Store
	recommendSvc *recommend.Service
	logger       *slog.Logger
}

// New creates and configures an MCP server with all tools and resources.
func New(store storage.Store, recommendSvc *recommend.Service, logger *slog.Logger, version string) *Server {
	s := &Server{
		store:        store,
		recommendSvc: recommendSvc,
		logger:       logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"mekiki",
		version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
	)

	s.registerResources()
	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			catalogSummaryURI,
			"Catalog Summary",
			mcplib.WithResourceDescription("Size and composition of the assessment catalog"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleCatalogSummary,
	)
}

func (s *Server) registerTools() {
	// recommend_assessments — the full retrieval + rerank pipeline.
	s.mcpServer.AddTool(
		mcplib.NewTool("recommend_assessments",
			mcplib.WithDescription("Recommend assessments for a hiring query or job description. Runs semantic retrieval with optional filters."),
			mcplib.WithString("query", mcplib.Description("Natural language query or job description"), mcplib.Required()),
			mcplib.WithNumber("top_k", mcplib.Description("Number of recommendations to return (1-20)")),
			mcplib.WithNumber("max_duration_minutes", mcplib.Description("Only assessments completable within this many minutes")),
			mcplib.WithString("test_type", mcplib.Description("Restrict to one test type, e.g. Ability & Aptitude")),
			mcplib.WithString("job_level", mcplib.Description("Restrict to one job level, e.g. Executive")),
		),
		s.handleRecommend,
	)

	// search_assessments — structured catalog listing, no pipeline.
	s.mcpServer.AddTool(
		mcplib.NewTool("search_assessments",
			mcplib.WithDescription("List catalog entries by structured filters and substring search, without ranking"),
			mcplib.WithString("search", mcplib.Description("Substring match on name and description")),
			mcplib.WithString("test_type", mcplib.Description("Filter by test type")),
			mcplib.WithString("job_level", mcplib.Description("Filter by job level")),
			mcplib.WithString("source", mcplib.Description("Filter by catalog source")),
			mcplib.WithNumber("limit", mcplib.Description("Maximum results to return")),
		),
		s.handleSearch,
	)

	// get_assessment — single catalog entry by id.
	s.mcpServer.AddTool(
		mcplib.NewTool("get_assessment",
			mcplib.WithDescription("Fetch one assessment by its catalog id"),
			mcplib.WithString("id", mcplib.Description("Assessment id"), mcplib.Required()),
		),
		s.handleGet,
	)
}

// recommendationItem is the tool-facing projection of a recommendation:
// absolute URL and rendered duration, so agents need no further lookups.
type recommendationItem struct {
	Rank            int      `json:"rank"`
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Duration        string   `json:"duration"`
	TestTypes       []string `json:"test_types"`
	SimilarityScore float32  `json:"similarity_score"`
	Explanation     string   `json:"explanation,omitempty"`
}

func (s *Server) handleRecommend(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	query := request.GetString("query", "")
	if query == "" {
		return errorResult("query is required"), nil
	}

	req := model.RecommendationRequest{
		Query: query,
		TopK:  request.GetInt("top_k", 0),
	}
	var f model.Filters
	if v := request.GetInt("max_duration_minutes", 0); v > 0 {
		f.MaxDurationMinutes = &v
	}
	if v := request.GetString("test_type", ""); v != "" {
		f.TestTypes = []string{v}
	}
	if v := request.GetString("job_level", ""); v != "" {
		f.JobLevels = []string{v}
	}
	if !f.IsZero() {
		req.Filters = &f
	}

	res, err := s.recommendSvc.Recommend(ctx, req)
	if err != nil {
		s.logger.Warn("mcp: recommendation failed", "error", err,
			"request_id", ctxutil.RequestIDFromContext(ctx))
		return errorResult(fmt.Sprintf("recommendation failed: %v", err)), nil
	}

	items := make([]recommendationItem, len(res.Items))
	for i, r := range res.Items {
		items[i] = recommendationItem{
			Rank:            r.Rank,
			Name:            r.Name,
			URL:             r.CanonicalURL(),
			Duration:        r.DurationRender(),
			TestTypes:       r.TestTypes,
			SimilarityScore: r.SimilarityScore,
			Explanation:     r.Explanation,
		}
	}

	resultData, _ := json.MarshalIndent(map[string]any{
		"recommendations":  items,
		"total_candidates": res.TotalCandidates,
	}, "", "  ")

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

func (s *Server) handleSearch(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	params := storage.ListParams{
		Search:   request.GetString("search", ""),
		TestType: request.GetString("test_type", ""),
		JobLevel: request.GetString("job_level", ""),
		Source:   request.GetString("source", ""),
		Limit:    request.GetInt("limit", 20),
	}

	items, total, err := s.store.ListAssessments(ctx, params)
	if err != nil {
		s.logger.Warn("mcp: search failed", "error", err,
			"request_id", ctxutil.RequestIDFromContext(ctx))
		return errorResult(fmt.Sprintf("search failed: %v", err)), nil
	}

	resultData, _ := json.MarshalIndent(map[string]any{
		"assessments": items,
		"total":       total,
	}, "", "  ")

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

func (s *Server) handleGet(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id := request.GetString("id", "")
	if id == "" {
		return errorResult("id is required"), nil
	}

	a, err := s.store.GetAssessment(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errorResult(fmt.Sprintf("assessment %q not found", id)), nil
		}
		s.logger.Warn("mcp: assessment lookup failed", "error", err, "id", id,
			"request_id", ctxutil.RequestIDFromContext(ctx))
		return errorResult(fmt.Sprintf("lookup failed: %v", err)), nil
	}

	resultData, _ := json.MarshalIndent(a, "", "  ")

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

// catalogSummary aggregates the catalog for the summary resource. The page
// cap is generous: the full SHL catalog is a few hundred entries.
func (s *Server) handleCatalogSummary(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	items, total, err := s.store.ListAssessments(ctx, storage.ListParams{Limit: 1000})
	if err != nil {
		return nil, fmt.Errorf("mcp: catalog summary: %w", err)
	}

	byType := make(map[string]int)
	remote, adaptive := 0, 0
	for _, a := range items {
		for _, tt := range a.TestTypes {
			byType[tt]++
		}
		if a.RemoteTesting {
			remote++
		}
		if a.AdaptiveIRT {
			adaptive++
		}
	}

	types := make([]string, 0, len(byType))
	for tt := range byType {
		types = append(types, tt)
	}
	sort.Strings(types)
	typeCounts := make([]map[string]any, 0, len(types))
	for _, tt := range types {
		typeCounts = append(typeCounts, map[string]any{"test_type": tt, "count": byType[tt]})
	}

	data, err := json.MarshalIndent(map[string]any{
		"total_assessments": total,
		"by_test_type":      typeCounts,
		"remote_testing":    remote,
		"adaptive_irt":      adaptive,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal summary: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      catalogSummaryURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
