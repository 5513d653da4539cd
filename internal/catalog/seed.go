package catalog

import (
	"context"
	"fmt"

	"github.com/ashita-ai/mekiki/internal/model"
	"github.com/ashita-ai/mekiki/internal/storage"
)

// Seed returns the built-in seven-assessment catalog served in mock mode.
// Names, ids, and the vocabulary in the descriptions are load-bearing: the
// memory store's keyword ranking and the mock reranker's word-overlap
// scoring key off them, so deterministic runs depend on these exact values.
func Seed() []model.Assessment {
	entries := []struct {
		id, name, url, description, duration string

		adaptive  bool
		testTypes []string
		jobLevels []string
		languages []string
		features  []string
	}{
		{
			id:          "1",
			name:        "Verbal Reasoning Assessment",
			url:         "/solutions/products/product-catalog/view/verbal-reasoning-assessment/",
			description: "Test for verbal reasoning skills and language comprehension. Evaluates ability to understand and analyze written information.",
			duration:    "30 minutes",
			testTypes:   []string{"Ability & Aptitude"},
			jobLevels:   []string{"Entry-Level", "Mid-Professional", "Manager"},
			languages:   []string{"English", "French", "German"},
			features:    []string{"Online", "Standardized", "Mobile Compatible"},
		},
		{
			id:          "2",
			name:        "Numerical Reasoning Assessment",
			url:         "/solutions/products/product-catalog/view/numerical-reasoning-assessment/",
			description: "Test for numerical reasoning skills and data interpretation. Measures ability to analyze numerical data and make logical decisions.",
			duration:    "40 minutes",
			testTypes:   []string{"Ability & Aptitude"},
			jobLevels:   []string{"Mid-Professional", "Manager", "Executive"},
			languages:   []string{"English", "Spanish", "French"},
			features:    []string{"Online", "Standardized", "Calculator Provided"},
		},
		{
			id:          "3",
			name:        "Inductive Reasoning Assessment",
			url:         "/solutions/products/product-catalog/view/inductive-reasoning-assessment/",
			description: "Test for inductive reasoning skills and pattern recognition. Evaluates ability to identify patterns and apply logical thinking.",
			duration:    "25 minutes",
			adaptive:    true,
			testTypes:   []string{"Ability & Aptitude"},
			jobLevels:   []string{"Mid-Professional", "Manager"},
			languages:   []string{"English", "French", "Chinese"},
			features:    []string{"Online", "Standardized", "Adaptive"},
		},
		{
			id:          "4",
			name:        "Personality Assessment",
			url:         "/solutions/products/product-catalog/view/personality-assessment/",
			description: "Comprehensive personality assessment that measures work-related personality traits and behavioral preferences.",
			duration:    "25 to 35 minutes",
			testTypes:   []string{"Personality & Behavior"},
			jobLevels:   []string{"General Population"},
			languages:   []string{"English", "French", "German", "Spanish", "Chinese"},
			features:    []string{"Online", "Normative", "GDPR Compliant"},
		},
		{
			id:          "5",
			name:        "Coding Skills Assessment",
			url:         "/solutions/products/product-catalog/view/coding-skills-assessment/",
			description: "Practical coding assessment to evaluate programming and software development skills through problem solving in real-world scenarios.",
			duration:    "60 minutes",
			testTypes:   []string{"Knowledge & Skills"},
			jobLevels:   []string{"Entry-Level", "Mid-Professional"},
			languages:   []string{"English"},
			features:    []string{"Online", "Live Coding", "Multiple Languages"},
		},
		{
			id:          "6",
			name:        "Situational Judgment Test",
			url:         "/solutions/products/product-catalog/view/situational-judgment-test/",
			description: "Assesses decision-making and judgment in workplace scenarios. Evaluates how candidates approach real-world job situations.",
			duration:    "30 minutes",
			testTypes:   []string{"Biodata & Situational Judgement"},
			jobLevels:   []string{"Entry-Level", "Mid-Professional", "Manager", "Executive"},
			languages:   []string{"English", "Spanish", "French"},
			features:    []string{"Online", "Scenario-based", "Video Elements"},
		},
		{
			id:          "7",
			name:        "Leadership Assessment",
			url:         "/solutions/products/product-catalog/view/leadership-assessment/",
			description: "Evaluates leadership potential and competencies through a combination of cognitive and behavioral measures.",
			duration:    "45 minutes",
			testTypes:   []string{"Competencies", "Personality & Behavior"},
			jobLevels:   []string{"Manager", "Director", "Executive"},
			languages:   []string{"English", "French", "German"},
			features:    []string{"Online", "Competency-based", "Benchmarking"},
		},
	}

	out := make([]model.Assessment, 0, len(entries))
	for _, e := range entries {
		d := model.ParseDuration(e.duration)
		out = append(out, model.Assessment{
			ID:                 e.id,
			Name:               e.name,
			URL:                e.url,
			Description:        e.description,
			RemoteTesting:      true,
			AdaptiveIRT:        e.adaptive,
			TestTypes:          e.testTypes,
			JobLevels:          e.jobLevels,
			Languages:          e.languages,
			KeyFeatures:        e.features,
			DurationText:       d.Text,
			DurationMinMinutes: d.MinMinutes,
			DurationMaxMinutes: d.MaxMinutes,
			IsUntimed:          d.IsUntimed,
			IsVariable:         d.IsVariable,
			Source:             "seed",
		})
	}
	return out
}

// SeedStore loads the seed catalog. Mock mode calls this at startup so
// recommendations work before any real catalog has been imported.
func SeedStore(ctx context.Context, store storage.Store) error {
	if _, err := store.UpsertAssessments(ctx, Seed()); err != nil {
		return fmt.Errorf("catalog: seed: %w", err)
	}
	return nil
}
