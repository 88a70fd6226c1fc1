package services

import (
	"github.com/perfgate/backend/internal/models"
)

// FrontendComparison is the frontend comparator's full output.
type FrontendComparison struct {
	Results            []MetricComparison `json:"results"`
	Score              float64            `json:"score"`
	ExperienceScore    float64            `json:"experience_score"`
	LoadScore          float64            `json:"load_score"`
	PaintScore         float64            `json:"paint_score"`
	InteractivityScore float64            `json:"interactivity_score"`
	// Escalation flags independent of individual metric severities.
	ExperienceDegraded bool `json:"experience_degraded"` // load regression beyond 20%
	BlockingIssue      bool `json:"blocking_issue"`      // blocking-time regression beyond 30%
	ReleaseRisk        bool `json:"release_risk"`        // aggregate score dropped more than 10 points
}

// Frontend score weights.
const (
	frontendExperienceWeight    = 0.30
	frontendLoadWeight          = 0.25
	frontendPaintWeight         = 0.25
	frontendInteractivityWeight = 0.20
)

// Frontend escalation thresholds.
const (
	loadDegradedPercent     = 20
	blockingDegradedPercent = 30
	experienceDropPoints    = 10
)

// FrontendComparator mirrors the backend comparator for page-experience
// metrics: load, paint, stability, interactivity and the aggregate experience
// score, optionally keyed by page name.
type FrontendComparator struct{}

func NewFrontendComparator() *FrontendComparator {
	return &FrontendComparator{}
}

func (c *FrontendComparator) Compare(baseline, current *MetricSet) *FrontendComparison {
	out := &FrontendComparison{}

	out.Results = compareMetricSets(baseline, current, models.CategoryFrontend)
	c.applyEscalations(out)

	out.ExperienceScore = familyScore(out.Results, FamilyExperience)
	out.LoadScore = familyScore(out.Results, FamilyLoad)
	out.PaintScore = familyScore(out.Results, FamilyPaint)
	out.InteractivityScore = familyScore(out.Results, FamilyInteractivity)
	out.Score = round2(frontendExperienceWeight*out.ExperienceScore +
		frontendLoadWeight*out.LoadScore +
		frontendPaintWeight*out.PaintScore +
		frontendInteractivityWeight*out.InteractivityScore)

	return out
}

func (c *FrontendComparator) applyEscalations(out *FrontendComparison) {
	for _, r := range out.Results {
		if r.ChangeType != ChangeRegression {
			continue
		}

		switch r.Family {
		case FamilyLoad:
			if r.PercentChange > loadDegradedPercent {
				out.ExperienceDegraded = true
			}
		case FamilyInteractivity:
			if r.PercentChange > blockingDegradedPercent {
				out.BlockingIssue = true
			}
		case FamilyExperience:
			// absolute point drop on the 0-100 aggregate score, not relative
			if r.BaselineValue-r.CurrentValue > experienceDropPoints {
				out.ReleaseRisk = true
			}
		}
	}
}
