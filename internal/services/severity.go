package services

import (
	"math"
	"strings"
)

// Severity classifies the magnitude of a single metric change.
type Severity string

const (
	SeverityStable   Severity = "stable"
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// ChangeType records whether a change is a degradation or a gain.
type ChangeType string

const (
	ChangeStable      ChangeType = "stable"
	ChangeRegression  ChangeType = "regression"
	ChangeImprovement ChangeType = "improvement"
)

// MetricFamily selects the threshold ruleset applied to a metric.
type MetricFamily string

const (
	FamilyLatency       MetricFamily = "latency"
	FamilyThroughput    MetricFamily = "throughput"
	FamilyErrorRate     MetricFamily = "error_rate"
	FamilySuccessRate   MetricFamily = "success_rate"
	FamilyLoad          MetricFamily = "load"
	FamilyPaint         MetricFamily = "paint"
	FamilyStability     MetricFamily = "stability"
	FamilyInteractivity MetricFamily = "interactivity"
	FamilyExperience    MetricFamily = "experience"
)

// PercentChangeCap is the sentinel used when the baseline value is zero and
// the current value is not: the relative change is unbounded, so it is
// reported as +/-1000% and classified critical.
const PercentChangeCap = 1000.0

// overrideRule is a family-specific escalation checked before the generic
// percentage table. First match wins.
type overrideRule struct {
	applies  func(baseline, current, percent float64) bool
	severity Severity
}

type familyProfile struct {
	lowerIsBetter bool
	overrides     []overrideRule
}

var familyProfiles = map[MetricFamily]familyProfile{
	FamilyLatency: {lowerIsBetter: true},
	FamilyThroughput: {
		lowerIsBetter: false,
		overrides: []overrideRule{
			// any throughput drop beyond 20% is critical regardless of the table
			{applies: func(_, _, pct float64) bool { return pct < -20 }, severity: SeverityCritical},
		},
	},
	FamilyErrorRate: {
		lowerIsBetter: true,
		overrides: []overrideRule{
			// absolute increase above 5 percentage points is critical even when
			// the relative change is small
			{applies: func(b, c, _ float64) bool { return c-b > 5 }, severity: SeverityCritical},
		},
	},
	FamilySuccessRate: {lowerIsBetter: false},
	FamilyLoad:        {lowerIsBetter: true},
	FamilyPaint:       {lowerIsBetter: true},
	FamilyStability: {
		lowerIsBetter: true,
		overrides: []overrideRule{
			// layout-shift style metrics have an absolute ceiling independent of
			// the baseline
			{applies: func(_, c, _ float64) bool { return c > 0.25 }, severity: SeverityCritical},
		},
	},
	FamilyInteractivity: {lowerIsBetter: true},
	FamilyExperience:    {lowerIsBetter: false},
}

// Classification is the outcome of comparing one metric pair.
type Classification struct {
	PercentChange float64    `json:"percent_change"`
	Severity      Severity   `json:"severity"`
	ChangeType    ChangeType `json:"change_type"`
}

// Classify compares a baseline and current value under the given family's
// ruleset. Family overrides are evaluated before the generic percentage table;
// the table (<5 stable, <15 minor, <30 major, else critical) is the fallback
// for every family.
func Classify(baseline, current float64, family MetricFamily) Classification {
	profile, ok := familyProfiles[family]
	if !ok {
		profile = familyProfiles[FamilyLatency]
	}

	if baseline == 0 {
		if current == 0 {
			return Classification{PercentChange: 0, Severity: SeverityStable, ChangeType: ChangeStable}
		}
		percent := PercentChangeCap
		if current < 0 {
			percent = -PercentChangeCap
		}
		return Classification{
			PercentChange: percent,
			Severity:      SeverityCritical,
			ChangeType:    directionOf(percent, profile.lowerIsBetter),
		}
	}

	percent := (current - baseline) / baseline * 100
	if percent > PercentChangeCap {
		percent = PercentChangeCap
	} else if percent < -PercentChangeCap {
		percent = -PercentChangeCap
	}

	severity := SeverityStable
	matched := false
	for _, rule := range profile.overrides {
		if rule.applies(baseline, current, percent) {
			severity = rule.severity
			matched = true
			break
		}
	}
	if !matched {
		severity = genericSeverity(percent)
	}

	if severity == SeverityStable {
		return Classification{PercentChange: percent, Severity: SeverityStable, ChangeType: ChangeStable}
	}

	return Classification{
		PercentChange: percent,
		Severity:      severity,
		ChangeType:    directionOf(percent, profile.lowerIsBetter),
	}
}

func genericSeverity(percent float64) Severity {
	abs := math.Abs(percent)
	switch {
	case abs < 5:
		return SeverityStable
	case abs < 15:
		return SeverityMinor
	case abs < 30:
		return SeverityMajor
	default:
		return SeverityCritical
	}
}

// directionOf maps the sign of a change onto regression/improvement. A zero
// percent change with non-stable severity (possible when an absolute-ceiling
// override fires) counts as a regression.
func directionOf(percent float64, lowerIsBetter bool) ChangeType {
	if percent == 0 {
		return ChangeRegression
	}
	degraded := percent > 0
	if !lowerIsBetter {
		degraded = percent < 0
	}
	if degraded {
		return ChangeRegression
	}
	return ChangeImprovement
}

// LowerIsBetter reports the degradation direction for a family.
func LowerIsBetter(family MetricFamily) bool {
	profile, ok := familyProfiles[family]
	if !ok {
		return true
	}
	return profile.lowerIsBetter
}

// FamilyForMetric maps a metric name to its threshold family. Unknown backend
// metrics fall back to latency rules, unknown frontend metrics to load rules.
func FamilyForMetric(category, name string) MetricFamily {
	key := strings.ToLower(strings.TrimSpace(name))

	switch key {
	case "error_rate", "failure_rate":
		return FamilyErrorRate
	case "success_rate":
		return FamilySuccessRate
	case "throughput", "requests_per_second", "tps":
		return FamilyThroughput
	case "cumulative_layout_shift", "layout_shift":
		return FamilyStability
	case "total_blocking_time", "time_to_interactive", "first_input_delay", "interaction_to_next_paint":
		return FamilyInteractivity
	case "first_contentful_paint", "largest_contentful_paint", "first_paint", "speed_index":
		return FamilyPaint
	case "performance_score", "experience_score":
		return FamilyExperience
	case "load_time", "page_load_time", "dom_content_loaded", "time_to_first_byte", "ttfb":
		return FamilyLoad
	}

	if strings.HasSuffix(key, "_response_time") || strings.Contains(key, "latency") {
		return FamilyLatency
	}

	if category == "frontend" {
		return FamilyLoad
	}
	return FamilyLatency
}
