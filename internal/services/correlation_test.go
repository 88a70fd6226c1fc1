package services

import (
	"testing"
)

func regression(metric string, family MetricFamily, severity Severity) MetricComparison {
	return MetricComparison{
		Metric: metric,
		Family: family,
		Classification: Classification{
			Severity:   severity,
			ChangeType: ChangeRegression,
		},
	}
}

func stable(metric string, family MetricFamily) MetricComparison {
	return MetricComparison{
		Metric: metric,
		Family: family,
		Classification: Classification{
			Severity:   SeverityStable,
			ChangeType: ChangeStable,
		},
	}
}

func hasCause(causes []RootCause, causeType string) bool {
	for _, c := range causes {
		if c.Type == causeType {
			return true
		}
	}
	return false
}

func TestCorrelate_NoDegradations(t *testing.T) {
	be := &BackendComparison{Results: []MetricComparison{stable("avg_response_time", FamilyLatency)}}
	fe := &FrontendComparison{Results: []MetricComparison{stable("load_time", FamilyLoad)}}

	causes := Correlate(be, fe)

	if causes == nil {
		t.Fatal("Correlate should return an empty list, not nil")
	}
	if len(causes) != 0 {
		t.Errorf("causes = %v, expected none", causes)
	}
}

func TestCorrelate_BackendPerformance(t *testing.T) {
	be := &BackendComparison{Results: []MetricComparison{
		regression("avg_response_time", FamilyLatency, SeverityMajor),
	}}
	fe := &FrontendComparison{Results: []MetricComparison{
		regression("load_time", FamilyLoad, SeverityMinor),
	}}

	causes := Correlate(be, fe)

	if !hasCause(causes, CauseBackendPerformance) {
		t.Error("latency + frontend load regression should yield backend_performance")
	}
	for _, c := range causes {
		if c.Type == CauseBackendPerformance && c.Confidence != ConfidenceHigh {
			t.Errorf("backend_performance confidence = %q, expected high", c.Confidence)
		}
	}
}

func TestCorrelate_FrontendRendering(t *testing.T) {
	be := &BackendComparison{Results: []MetricComparison{
		stable("avg_response_time", FamilyLatency),
		stable("throughput", FamilyThroughput),
	}}
	fe := &FrontendComparison{Results: []MetricComparison{
		regression("load_time", FamilyLoad, SeverityMinor),
		regression("first_contentful_paint", FamilyPaint, SeverityMajor),
		regression("total_blocking_time", FamilyInteractivity, SeverityMinor),
	}}

	causes := Correlate(be, fe)

	if !hasCause(causes, CauseFrontendRendering) {
		t.Error("healthy backend with broad frontend regressions should yield frontend_rendering")
	}
}

func TestCorrelate_FrontendRenderingPaintPlusBlocking(t *testing.T) {
	be := &BackendComparison{Results: []MetricComparison{
		stable("avg_response_time", FamilyLatency),
	}}
	fe := &FrontendComparison{Results: []MetricComparison{
		stable("load_time", FamilyLoad),
		regression("first_contentful_paint", FamilyPaint, SeverityMajor),
		regression("total_blocking_time", FamilyInteractivity, SeverityMinor),
	}}

	causes := Correlate(be, fe)

	if !hasCause(causes, CauseFrontendRendering) {
		t.Error("paint plus blocking-time regressions should be enough page-timing signal")
	}
}

func TestCorrelate_FrontendRenderingNeedsBlocking(t *testing.T) {
	be := &BackendComparison{Results: []MetricComparison{
		stable("avg_response_time", FamilyLatency),
	}}
	fe := &FrontendComparison{Results: []MetricComparison{
		regression("load_time", FamilyLoad, SeverityMajor),
		regression("first_contentful_paint", FamilyPaint, SeverityMajor),
	}}

	causes := Correlate(be, fe)

	if hasCause(causes, CauseFrontendRendering) {
		t.Error("frontend_rendering requires a blocking-time regression")
	}
}

func TestCorrelate_FrontendRenderingNeedsHealthyBackend(t *testing.T) {
	be := &BackendComparison{Results: []MetricComparison{
		regression("throughput", FamilyThroughput, SeverityMinor),
	}}
	fe := &FrontendComparison{Results: []MetricComparison{
		regression("load_time", FamilyLoad, SeverityMinor),
		regression("first_contentful_paint", FamilyPaint, SeverityMinor),
		regression("total_blocking_time", FamilyInteractivity, SeverityMinor),
	}}

	causes := Correlate(be, fe)

	if hasCause(causes, CauseFrontendRendering) {
		t.Error("frontend_rendering requires a backend with no regressions at all")
	}
}

func TestCorrelate_Scalability(t *testing.T) {
	be := &BackendComparison{Results: []MetricComparison{
		regression("throughput", FamilyThroughput, SeverityCritical),
		stable("error_rate", FamilyErrorRate),
	}}

	causes := Correlate(be, nil)

	if !hasCause(causes, CauseScalability) {
		t.Error("throughput drop without error increase should yield scalability")
	}
	for _, c := range causes {
		if c.Type == CauseScalability && c.Confidence != ConfidenceMedium {
			t.Errorf("scalability confidence = %q, expected medium", c.Confidence)
		}
	}
}

func TestCorrelate_ScalabilitySuppressedByErrors(t *testing.T) {
	be := &BackendComparison{Results: []MetricComparison{
		regression("throughput", FamilyThroughput, SeverityCritical),
		regression("error_rate", FamilyErrorRate, SeverityMinor),
	}}

	causes := Correlate(be, nil)

	if hasCause(causes, CauseScalability) {
		t.Error("scalability should not fire when errors increased too")
	}
}

func TestCorrelate_BackendRobustness(t *testing.T) {
	be := &BackendComparison{Results: []MetricComparison{
		regression("error_rate", FamilyErrorRate, SeverityCritical),
		regression("avg_response_time", FamilyLatency, SeverityMajor),
	}}

	causes := Correlate(be, nil)

	if !hasCause(causes, CauseBackendRobustness) {
		t.Error("errors + latency regressions should yield backend_robustness")
	}
}

func TestCorrelate_RulesCoFire(t *testing.T) {
	be := &BackendComparison{Results: []MetricComparison{
		regression("avg_response_time", FamilyLatency, SeverityMajor),
		regression("error_rate", FamilyErrorRate, SeverityCritical),
	}}
	fe := &FrontendComparison{Results: []MetricComparison{
		regression("load_time", FamilyLoad, SeverityMajor),
	}}

	causes := Correlate(be, fe)

	if !hasCause(causes, CauseBackendPerformance) || !hasCause(causes, CauseBackendRobustness) {
		t.Errorf("expected both backend_performance and backend_robustness, got %v", causes)
	}
}

func TestCorrelate_NilSides(t *testing.T) {
	if causes := Correlate(nil, nil); len(causes) != 0 {
		t.Errorf("causes = %v, expected none for nil inputs", causes)
	}

	fe := &FrontendComparison{Results: []MetricComparison{
		regression("load_time", FamilyLoad, SeverityCritical),
	}}
	if causes := Correlate(nil, fe); len(causes) != 0 {
		t.Errorf("causes = %v, frontend-only degradation has nothing to correlate against", causes)
	}
}
