package services

// RootCause is one inferred explanation linking co-occurring backend and
// frontend degradations.
type RootCause struct {
	Type           string `json:"type"`
	Confidence     string `json:"confidence"` // high, medium
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"

	CauseBackendPerformance = "backend_performance"
	CauseFrontendRendering  = "frontend_rendering"
	CauseScalability        = "scalability"
	CauseBackendRobustness  = "backend_robustness"
)

// Correlate applies an ordered rule list over the two comparators' outputs and
// returns the root causes whose conditions hold. Rules co-fire; an empty list
// means degradations are isolated to one side, which is itself signal.
// Either side may be nil for partial comparison types.
func Correlate(be *BackendComparison, fe *FrontendComparison) []RootCause {
	causes := []RootCause{}

	backendLatencyDegraded := be != nil && familyDegraded(be.Results, FamilyLatency)
	backendThroughputDropped := be != nil && familyDegraded(be.Results, FamilyThroughput)
	backendErrorsIncreased := be != nil && familyDegraded(be.Results, FamilyErrorRate)
	backendHealthy := be != nil && !anyDegraded(be.Results)

	frontendLoadDegraded := fe != nil && familyDegraded(fe.Results, FamilyLoad)
	frontendPaintDegraded := fe != nil && familyDegraded(fe.Results, FamilyPaint)
	frontendBlockingDegraded := fe != nil && familyDegraded(fe.Results, FamilyInteractivity)

	if backendLatencyDegraded && frontendLoadDegraded {
		causes = append(causes, RootCause{
			Type:           CauseBackendPerformance,
			Confidence:     ConfidenceHigh,
			Description:    "Backend latency regressed together with frontend load timing, so page slowdown is most likely driven by slower server responses.",
			Recommendation: "Profile backend request handling and database access before investigating frontend code; frontend timings should recover once backend latency is restored.",
		})
	}

	if backendHealthy && (frontendLoadDegraded || frontendPaintDegraded) && frontendBlockingDegraded {
		causes = append(causes, RootCause{
			Type:           CauseFrontendRendering,
			Confidence:     ConfidenceHigh,
			Description:    "Backend metrics are stable or improved while page timing regressed together with blocking time, pointing at a frontend rendering or bundle problem.",
			Recommendation: "Inspect recent frontend changes: bundle size, render-blocking scripts, main-thread work and image weight.",
		})
	}

	if backendThroughputDropped && be != nil && !backendErrorsIncreased {
		causes = append(causes, RootCause{
			Type:           CauseScalability,
			Confidence:     ConfidenceMedium,
			Description:    "Throughput dropped without a matching error-rate increase, which usually indicates resource contention or saturation rather than failing requests.",
			Recommendation: "Check CPU, memory, connection-pool and thread-pool utilization under load; consider scaling out before the next release.",
		})
	}

	if backendErrorsIncreased && backendLatencyDegraded {
		causes = append(causes, RootCause{
			Type:           CauseBackendRobustness,
			Confidence:     ConfidenceMedium,
			Description:    "Error rate and latency regressed together, suggesting failing or retried requests are slowing the backend down.",
			Recommendation: "Review error logs for new failure modes, and verify timeout/retry configuration on downstream dependencies.",
		})
	}

	return causes
}

// familyDegraded reports whether any metric in the family regressed at minor
// severity or worse.
func familyDegraded(results []MetricComparison, family MetricFamily) bool {
	for _, r := range results {
		if r.Family == family && r.ChangeType == ChangeRegression && r.Severity != SeverityStable {
			return true
		}
	}
	return false
}

// anyDegraded reports whether any metric at all regressed.
func anyDegraded(results []MetricComparison) bool {
	for _, r := range results {
		if r.ChangeType == ChangeRegression && r.Severity != SeverityStable {
			return true
		}
	}
	return false
}
