package mekiki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// userAgent identifies this SDK version to the server.
const userAgent = "mekiki-go/0.1.0"

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the Mekiki server (e.g. "http://localhost:8000").
	BaseURL string

	// APIKey is the admin API key. It is exchanged for a short-lived JWT on
	// first use and never sent on individual requests. Leave empty for a
	// read-only client: recommendations, catalog reads, and evaluation
	// queries need no credentials.
	APIKey string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with a 30-second timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 30 seconds.
	Timeout time.Duration
}

// Client is an HTTP client for the Mekiki assessment recommendation API.
// All methods are safe for concurrent use.
type Client struct {
	baseURL  string
	client   *http.Client
	tokenMgr *tokenManager
}

// NewClient creates a Client from the given configuration.
// Returns an error if BaseURL is empty.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("mekiki: BaseURL is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		baseURL: baseURL,
		client:  httpClient,
	}
	if cfg.APIKey != "" {
		c.tokenMgr = newTokenManager(baseURL, cfg.APIKey, httpClient)
	}
	return c, nil
}

// Recommend returns ranked assessments for a natural-language query.
// Query must be at least three characters; the server infers missing
// filters from the query text and merges them under any the request sets.
func (c *Client) Recommend(ctx context.Context, req RecommendationRequest) (*RecommendationResponse, error) {
	var resp RecommendationResponse
	if err := c.post(ctx, "/api/recommendations", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SimpleRecommend returns recommendations in the compact webhook shape.
// If topK is not positive the server default is used. The endpoint always
// answers 200 with at most ten results, so errors here mean transport or
// malformed-request problems only.
func (c *Client) SimpleRecommend(ctx context.Context, query string, topK int) (*SimpleRecommendResponse, error) {
	body := map[string]any{"query": query}
	if topK > 0 {
		body["top_k"] = topK
	}
	var resp SimpleRecommendResponse
	if err := c.post(ctx, "/recommend", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListAssessments returns a page of the assessment catalog, optionally
// filtered. Nil opts list the first 50.
func (c *Client) ListAssessments(ctx context.Context, opts *ListAssessmentsOptions) (*AssessmentListResponse, error) {
	params := url.Values{}
	if opts != nil {
		if opts.TestType != "" {
			params.Set("test_type", opts.TestType)
		}
		if opts.JobLevel != "" {
			params.Set("job_level", opts.JobLevel)
		}
		if opts.Source != "" {
			params.Set("source", opts.Source)
		}
		if opts.Search != "" {
			params.Set("search", opts.Search)
		}
		if opts.Remote != nil {
			params.Set("remote", strconv.FormatBool(*opts.Remote))
		}
		if opts.Skip > 0 {
			params.Set("skip", strconv.Itoa(opts.Skip))
		}
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
	}

	path := "/api/assessments"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp AssessmentListResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAssessment returns a single assessment by ID.
func (c *Client) GetAssessment(ctx context.Context, id string) (*Assessment, error) {
	var resp Assessment
	if err := c.get(ctx, "/api/assessments/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateAssessment adds an assessment to the catalog. Requires an API key.
// If a.ID is empty the server mints one from the name; the returned
// assessment carries the final ID and timestamps.
func (c *Client) CreateAssessment(ctx context.Context, a Assessment) (*Assessment, error) {
	var resp Assessment
	if err := c.post(ctx, "/api/assessments", a, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateAssessment replaces the assessment with the given ID. Requires an
// API key. The path ID wins over a.ID.
func (c *Client) UpdateAssessment(ctx context.Context, id string, a Assessment) (*Assessment, error) {
	var resp Assessment
	if err := c.put(ctx, "/api/assessments/"+url.PathEscape(id), a, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteAssessment removes an assessment from the catalog. Requires an
// API key.
func (c *Client) DeleteAssessment(ctx context.Context, id string) error {
	return c.doDelete(ctx, "/api/assessments/"+url.PathEscape(id), nil)
}

// UploadCatalog imports a catalog CSV. Requires an API key. The filename
// labels the upload; source tags the imported rows and defaults to the
// filename when empty.
func (c *Client) UploadCatalog(ctx context.Context, filename string, csv io.Reader, source string) (*UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("mekiki: build multipart form: %w", err)
	}
	if _, err := io.Copy(part, csv); err != nil {
		return nil, fmt.Errorf("mekiki: read catalog: %w", err)
	}
	if source != "" {
		if err := mw.WriteField("source", source); err != nil {
			return nil, fmt.Errorf("mekiki: build multipart form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("mekiki: build multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/assessments/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("mekiki: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp UploadResponse
	if err := c.doRequest(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveGroundTruth replaces the stored ground-truth set. Requires an API key.
func (c *Client) SaveGroundTruth(ctx context.Context, entries []GroundTruth) (*GroundTruthSaveResult, error) {
	var resp GroundTruthSaveResult
	if err := c.post(ctx, "/api/evaluation/ground-truth", entries, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GroundTruth returns the stored ground-truth set. IsNotFound reports the
// case where none has been saved yet.
func (c *Client) GroundTruth(ctx context.Context) ([]GroundTruth, error) {
	var resp []GroundTruth
	if err := c.get(ctx, "/api/evaluation/ground-truth", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// RunEvaluation scores the recommendation pipeline against the full
// ground-truth set and persists the summary on the server. If k is not
// positive the server default of 5 is used.
func (c *Client) RunEvaluation(ctx context.Context, k int) (*EvaluationSummary, error) {
	path := "/api/evaluation/run"
	if k > 0 {
		path += "?k=" + strconv.Itoa(k)
	}
	var resp EvaluationSummary
	if err := c.post(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EvaluateQuery scores a single ground-truth query without persisting the
// result. If k is not positive the server default of 5 is used.
func (c *Client) EvaluateQuery(ctx context.Context, queryID string, k int) (*EvaluationResult, error) {
	path := "/api/evaluation/query"
	if k > 0 {
		path += "?k=" + strconv.Itoa(k)
	}
	body := map[string]string{"query_id": queryID}
	var resp EvaluationResult
	if err := c.post(ctx, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EvaluationHistory returns persisted evaluation summaries, newest first.
func (c *Client) EvaluationHistory(ctx context.Context) ([]EvaluationSummary, error) {
	var resp []EvaluationSummary
	if err := c.get(ctx, "/api/evaluation/history", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Health reports server health without authentication. A degraded server
// answers 503 with the same body shape, so both 200 and 503 decode into
// the response; check Status to tell them apart.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("mekiki: create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mekiki: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("mekiki: read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, parseErrorResponse(resp.StatusCode, body)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("mekiki: decode health response: %w", err)
	}
	return &health, nil
}

// ---------------------------------------------------------------------------
// HTTP transport
// ---------------------------------------------------------------------------

// apiErrorEnvelope is the server's standard error response wrapper.
// Success bodies are bare; only errors are wrapped.
type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, body any, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("mekiki: marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("mekiki: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.doRequest(ctx, req, dest)
}

func (c *Client) put(ctx context.Context, path string, body any, dest any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("mekiki: marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("mekiki: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(ctx, req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("mekiki: create request: %w", err)
	}

	return c.doRequest(ctx, req, dest)
}

func (c *Client) doDelete(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("mekiki: create request: %w", err)
	}

	return c.doRequest(ctx, req, dest)
}

func (c *Client) doRequest(ctx context.Context, req *http.Request, dest any) error {
	req.Header.Set("User-Agent", userAgent)
	if c.tokenMgr != nil {
		token, err := c.tokenMgr.getToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("mekiki: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return handleResponse(resp, dest)
}

func handleResponse(resp *http.Response, dest any) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mekiki: read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	if resp.StatusCode == http.StatusNoContent || dest == nil {
		return nil
	}

	if err := json.Unmarshal(bodyBytes, dest); err != nil {
		return fmt.Errorf("mekiki: decode response: %w", err)
	}
	return nil
}

func parseErrorResponse(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Code = http.StatusText(statusCode)
		apiErr.Message = string(body)
	}

	return apiErr
}
