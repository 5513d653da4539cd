package recommend

import (
	"github.com/ashita-ai/mekiki/internal/model"
)

// applyFilters keeps the candidates that satisfy every set axis, preserving
// order. The min_similarity axis is absent here: the store enforces it at
// match time.
func (s *Service) applyFilters(results []model.MatchResult, f model.Filters) []model.MatchResult {
	out := make([]model.MatchResult, 0, len(results))
	for _, m := range results {
		if s.matchesFilters(m.Assessment, f) {
			out = append(out, m)
		}
	}
	return out
}

func (s *Service) matchesFilters(a model.Assessment, f model.Filters) bool {
	if len(f.JobLevels) > 0 && !model.Intersects(a.JobLevels, f.JobLevels) {
		return false
	}
	if len(f.TestTypes) > 0 && !model.Intersects(a.TestTypes, f.TestTypes) {
		return false
	}
	if len(f.Languages) > 0 && !model.Intersects(a.Languages, f.Languages) {
		return false
	}
	if f.RemoteTesting != nil && a.RemoteTesting != *f.RemoteTesting {
		return false
	}
	if f.MaxDurationMinutes != nil && !s.withinMaxDuration(a, *f.MaxDurationMinutes) {
		return false
	}
	if f.DurationType != "" && model.DurationTypeOf(a) != f.DurationType {
		return false
	}
	return true
}

// withinMaxDuration applies the canonical duration policy: untimed fails a
// max-duration cap because completion time is unbounded, bounded durations
// compare their effective minutes, and unknown durations pass because there
// is nothing to compare.
func (s *Service) withinMaxDuration(a model.Assessment, maxMinutes int) bool {
	if a.IsUntimed {
		return false
	}
	eff := a.EffectiveDurationMinutes()
	if eff == nil {
		s.logger.Debug("recommend: duration unknown, passing max-duration filter",
			"assessment_id", a.ID, "name", a.Name)
		return true
	}
	return *eff <= maxMinutes
}

// hasInferredAxes reports whether the merge added any post-retrieval axis
// the caller did not set. Such axes may be relaxed when they empty the
// candidate set; caller-supplied axes never are. min_similarity is excluded
// because it binds at match time, before filtering.
func hasInferredAxes(caller, merged model.Filters) bool {
	switch {
	case len(caller.JobLevels) == 0 && len(merged.JobLevels) > 0:
		return true
	case len(caller.TestTypes) == 0 && len(merged.TestTypes) > 0:
		return true
	case len(caller.Languages) == 0 && len(merged.Languages) > 0:
		return true
	case caller.MaxDurationMinutes == nil && merged.MaxDurationMinutes != nil:
		return true
	case caller.DurationType == "" && merged.DurationType != "":
		return true
	case caller.RemoteTesting == nil && merged.RemoteTesting != nil:
		return true
	}
	return false
}
