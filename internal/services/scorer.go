package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/perfgate/backend/internal/models"
)

// Release verdicts.
const (
	VerdictApproved       = "approved"
	VerdictMonitor        = "monitor"
	VerdictApprovalNeeded = "approval_needed"
	VerdictBlocked        = "blocked"
)

// Overall score weights for a full comparison. Partial comparison types drop
// the absent components and renormalize the remaining weights.
const (
	overallBackendWeight     = 0.4
	overallFrontendWeight    = 0.4
	overallReliabilityWeight = 0.2
)

// ReleaseAssessment is the scorer's structured verdict.
type ReleaseAssessment struct {
	OverallScore     float64  `json:"overall_score"`
	BackendScore     *float64 `json:"backend_score,omitempty"`
	FrontendScore    *float64 `json:"frontend_score,omitempty"`
	ReliabilityScore *float64 `json:"reliability_score,omitempty"`
	Verdict          string   `json:"verdict"`
	BlockingReasons  []string `json:"blocking_reasons,omitempty"`
	RiskFactors      []string `json:"risk_factors,omitempty"`
	Summary          string   `json:"summary"`
}

// ReleaseScorer combines comparator outputs and correlation findings into a
// single weighted score, verdict and human-readable report. Pure: the same
// inputs always produce the same assessment, summary text included.
type ReleaseScorer struct {
	SummaryTopN int
}

func NewReleaseScorer(topN int) *ReleaseScorer {
	if topN <= 0 {
		topN = 5
	}
	return &ReleaseScorer{SummaryTopN: topN}
}

// Score computes the weighted overall score and verdict. Either comparator
// output may be nil when the comparison type excludes that side; reliability
// is derived from the backend error rate and is absent without backend data.
func (s *ReleaseScorer) Score(comparisonType string, be *BackendComparison, fe *FrontendComparison, causes []RootCause) *ReleaseAssessment {
	a := &ReleaseAssessment{}

	weightSum := 0.0
	weighted := 0.0

	if be != nil {
		score := be.Score
		a.BackendScore = &score
		weighted += overallBackendWeight * score
		weightSum += overallBackendWeight

		reliability := 100 - be.CurrentErrorRate
		if reliability < 0 {
			reliability = 0
		}
		a.ReliabilityScore = &reliability
		weighted += overallReliabilityWeight * reliability
		weightSum += overallReliabilityWeight
	}
	if fe != nil {
		score := fe.Score
		a.FrontendScore = &score
		weighted += overallFrontendWeight * score
		weightSum += overallFrontendWeight
	}

	if weightSum > 0 {
		a.OverallScore = round2(weighted / weightSum)
	}

	a.Verdict = verdictFor(a.OverallScore)

	regressions := collectRegressions(be, fe)
	switch a.Verdict {
	case VerdictBlocked:
		a.BlockingReasons = blockingReasons(regressions, be, fe)
	case VerdictMonitor, VerdictApprovalNeeded:
		a.RiskFactors = riskFactors(regressions, causes)
	}

	a.Summary = s.buildSummary(comparisonType, a, regressions, causes)
	return a
}

func verdictFor(score float64) string {
	switch {
	case score >= 90:
		return VerdictApproved
	case score >= 75:
		return VerdictMonitor
	case score >= 60:
		return VerdictApprovalNeeded
	default:
		return VerdictBlocked
	}
}

var severityRank = map[Severity]int{
	SeverityCritical: 3,
	SeverityMajor:    2,
	SeverityMinor:    1,
	SeverityStable:   0,
}

// collectRegressions gathers every regression from both sides, most severe
// first; ties break on absolute percent change, then metric name, so the
// ordering (and therefore the summary) is deterministic.
func collectRegressions(be *BackendComparison, fe *FrontendComparison) []MetricComparison {
	var all []MetricComparison
	if be != nil {
		all = append(all, be.Results...)
	}
	if fe != nil {
		all = append(all, fe.Results...)
	}

	var regressions []MetricComparison
	for _, r := range all {
		if r.ChangeType == ChangeRegression {
			regressions = append(regressions, r)
		}
	}

	sort.SliceStable(regressions, func(i, j int) bool {
		ri, rj := regressions[i], regressions[j]
		if severityRank[ri.Severity] != severityRank[rj.Severity] {
			return severityRank[ri.Severity] > severityRank[rj.Severity]
		}
		pi, pj := abs(ri.PercentChange), abs(rj.PercentChange)
		if pi != pj {
			return pi > pj
		}
		if ri.Metric != rj.Metric {
			return ri.Metric < rj.Metric
		}
		return ri.SubEntity < rj.SubEntity
	})

	return regressions
}

// blockingReasons names the specific critical regressions that drove a
// blocked verdict.
func blockingReasons(regressions []MetricComparison, be *BackendComparison, fe *FrontendComparison) []string {
	var reasons []string
	for _, r := range regressions {
		if r.Severity != SeverityCritical {
			continue
		}
		reasons = append(reasons, fmt.Sprintf("critical regression in %s: %s", metricLabel(r), changeLabel(r)))
	}
	if be != nil && be.HasNewFailures {
		reasons = append(reasons, fmt.Sprintf("new failing transactions: %s", strings.Join(be.NewFailures, ", ")))
	}
	if fe != nil && fe.BlockingIssue {
		reasons = append(reasons, "interactivity blocking time regressed beyond the acceptable limit")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "overall score below the release threshold")
	}
	return reasons
}

// riskFactors lists notable but non-blocking findings: major regressions and
// high-confidence correlated root causes.
func riskFactors(regressions []MetricComparison, causes []RootCause) []string {
	var factors []string
	for _, r := range regressions {
		if r.Severity != SeverityMajor {
			continue
		}
		factors = append(factors, fmt.Sprintf("major regression in %s: %s", metricLabel(r), changeLabel(r)))
	}
	for _, cause := range causes {
		if cause.Confidence == ConfidenceHigh {
			factors = append(factors, fmt.Sprintf("correlated root cause (%s): %s", cause.Type, cause.Description))
		}
	}
	return factors
}

// buildSummary renders the multi-paragraph natural-language report from the
// structured result only.
func (s *ReleaseScorer) buildSummary(comparisonType string, a *ReleaseAssessment, regressions []MetricComparison, causes []RootCause) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Release readiness score: %.2f/100 (%s comparison). Verdict: %s.",
		a.OverallScore, summaryTypeLabel(comparisonType), verdictText(a.Verdict))
	if a.BackendScore != nil {
		fmt.Fprintf(&b, " Backend health: %.2f.", *a.BackendScore)
	}
	if a.FrontendScore != nil {
		fmt.Fprintf(&b, " Frontend health: %.2f.", *a.FrontendScore)
	}
	if a.ReliabilityScore != nil {
		fmt.Fprintf(&b, " Reliability: %.2f.", *a.ReliabilityScore)
	}
	b.WriteString("\n\n")

	if len(regressions) == 0 {
		b.WriteString("No regressions were detected against the baseline.")
	} else {
		fmt.Fprintf(&b, "%d regression(s) were detected. Most significant:\n", len(regressions))
		top := regressions
		if len(top) > s.SummaryTopN {
			top = top[:s.SummaryTopN]
		}
		for i, r := range top {
			fmt.Fprintf(&b, "%d. [%s] %s: %s (baseline %.2f, current %.2f)\n",
				i+1, r.Severity, metricLabel(r), changeLabel(r), r.BaselineValue, r.CurrentValue)
		}
	}
	b.WriteString("\n")

	if len(causes) == 0 {
		b.WriteString("No correlated root causes were identified; observed degradations appear isolated to a single layer.")
	} else {
		b.WriteString("Probable root causes:\n")
		for _, cause := range causes {
			fmt.Fprintf(&b, "- %s (confidence %s): %s Recommendation: %s\n",
				cause.Type, cause.Confidence, cause.Description, cause.Recommendation)
		}
	}
	b.WriteString("\n")

	switch a.Verdict {
	case VerdictApproved:
		b.WriteString("The release meets the readiness bar and can proceed.")
	case VerdictMonitor:
		b.WriteString("The release can proceed but should be monitored closely after rollout.")
		b.WriteString(appendList(" Risk factors:", a.RiskFactors))
	case VerdictApprovalNeeded:
		b.WriteString("The release needs explicit approval before it can proceed.")
		b.WriteString(appendList(" Risk factors:", a.RiskFactors))
	case VerdictBlocked:
		b.WriteString("The release is blocked.")
		b.WriteString(appendList(" Blocking reasons:", a.BlockingReasons))
	}

	return b.String()
}

func appendList(title string, items []string) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return b.String()
}

func metricLabel(r MetricComparison) string {
	if r.SubEntity != "" {
		return fmt.Sprintf("%s/%s (%s)", r.SubEntity, r.Metric, r.Category)
	}
	return fmt.Sprintf("%s (%s)", r.Metric, r.Category)
}

func changeLabel(r MetricComparison) string {
	if r.PercentChange >= PercentChangeCap {
		return "appeared with no baseline value"
	}
	return fmt.Sprintf("%+.1f%%", r.PercentChange)
}

func summaryTypeLabel(comparisonType string) string {
	switch comparisonType {
	case models.ComparisonTypeBackend:
		return "backend-only"
	case models.ComparisonTypeFrontend:
		return "frontend-only"
	default:
		return "full"
	}
}

func verdictText(verdict string) string {
	return strings.ReplaceAll(verdict, "_", " ")
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
