package server

import (
	"context"

	"github.com/ashita-ai/mekiki/internal/model"
)

// RecommendationHook receives recommendation results within the server layer.
// Defined here (not in the root mekiki package) to avoid a circular import:
// internal/server → mekiki → internal/server would be a cycle.
// The root mekiki package wraps mekiki.RecommendationHook into this type via
// an adapter.
//
// Hooks are called asynchronously in goroutines after the response is
// written. Implementations must not block indefinitely. Failures are logged
// and do not fail the originating request.
type RecommendationHook interface {
	OnRecommendation(ctx context.Context, query string, filters model.Filters, recommendations []model.RecommendedAssessment) error
}
