package model

import "time"

// APIError is the standard error response body. Successful responses are
// emitted bare (the response shapes are part of the public contract); only
// errors share a common wrapper. The request ID travels in the
// X-Request-ID header rather than the body.
type APIError struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeRateLimited         = "RATE_LIMITED"
)

// HealthResponse reports overall service health plus per-dependency status.
type HealthResponse struct {
	Status            string `json:"status"`
	Version           string `json:"version"`
	Store             string `json:"store"`
	Search            string `json:"search,omitempty"`
	EmbeddingProvider string `json:"embedding_provider,omitempty"`
	LLMProvider       string `json:"llm_provider,omitempty"`
	Uptime            int64  `json:"uptime_seconds"`
}

// AuthTokenRequest is the body for POST /api/auth/token. The admin API key
// is exchanged for a short-lived JWT so the key itself stays out of
// request logs on every mutating call.
type AuthTokenRequest struct {
	APIKey string `json:"api_key"`
}

// AuthTokenResponse carries a minted admin token.
type AuthTokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SimpleRecommendRequest is the body for POST /recommend.
type SimpleRecommendRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SimpleRecommendResponse is the fixed-contract body for POST /recommend.
// The endpoint never returns an HTTP error; on internal failure the list
// is empty.
type SimpleRecommendResponse struct {
	RecommendedAssessments []SimpleRecommendation `json:"recommended_assessments"`
}

// SimpleRecommendation is one item in the fixed /recommend contract.
// Boolean support flags render as "Yes"/"No" strings and the duration
// collapses to a single integer, matching the published shape exactly.
type SimpleRecommendation struct {
	URL             string   `json:"url"`
	AdaptiveSupport string   `json:"adaptive_support"`
	Description     string   `json:"description"`
	Duration        int      `json:"duration"`
	RemoteSupport   string   `json:"remote_support"`
	TestType        []string `json:"test_type"`
}

// NewSimpleRecommendation projects a ranked assessment onto the fixed
// /recommend contract shape.
func NewSimpleRecommendation(r RecommendedAssessment) SimpleRecommendation {
	return SimpleRecommendation{
		URL:             r.CanonicalURL(),
		AdaptiveSupport: supportString(r.AdaptiveIRT),
		Description:     r.Description,
		Duration:        r.DurationMinutesInt(),
		RemoteSupport:   supportString(r.RemoteTesting),
		TestType:        r.TestTypes,
	}
}

func supportString(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// UploadResponse summarizes a catalog CSV import.
type UploadResponse struct {
	Message      string `json:"message"`
	SuccessCount int    `json:"success_count"`
	ErrorCount   int    `json:"error_count"`
}

// AssessmentListResponse is one page of the catalog.
type AssessmentListResponse struct {
	Assessments []Assessment `json:"assessments"`
	Total       int          `json:"total"`
	Skip        int          `json:"skip"`
	Limit       int          `json:"limit"`
}
