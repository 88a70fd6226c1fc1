package services

import (
	"math"
	"sort"

	"github.com/perfgate/backend/internal/models"
)

// MetricComparison is one classified metric pair, overall or per sub-entity.
type MetricComparison struct {
	Metric        string       `json:"metric"`
	SubEntity     string       `json:"sub_entity,omitempty"`
	Category      string       `json:"category"`
	Family        MetricFamily `json:"family"`
	BaselineValue float64      `json:"baseline_value"`
	CurrentValue  float64      `json:"current_value"`
	Classification
}

// BackendComparison is the backend comparator's full output.
type BackendComparison struct {
	Results          []MetricComparison `json:"results"`
	Score            float64            `json:"score"`
	LatencyScore     float64            `json:"latency_score"`
	ThroughputScore  float64            `json:"throughput_score"`
	ErrorScore       float64            `json:"error_score"`
	HasNewFailures   bool               `json:"has_new_failures"`
	NewFailures      []string           `json:"new_failures,omitempty"`
	CurrentErrorRate float64            `json:"current_error_rate"`
}

// Backend score weights and severity penalties.
const (
	backendLatencyWeight    = 0.4
	backendThroughputWeight = 0.3
	backendErrorWeight      = 0.3
)

var severityPenalty = map[Severity]float64{
	SeverityStable:   0,
	SeverityMinor:    10,
	SeverityMajor:    30,
	SeverityCritical: 60,
}

// BackendComparator classifies throughput/latency/error metrics between two
// runs and aggregates a 0-100 backend health score.
type BackendComparator struct{}

func NewBackendComparator() *BackendComparator {
	return &BackendComparator{}
}

// Compare walks every metric pair present on both sides, overall and per
// transaction, detects newly-introduced transaction failures, and blends the
// family scores into one backend health score.
func (c *BackendComparator) Compare(baseline, current *MetricSet) *BackendComparison {
	out := &BackendComparison{}

	out.Results = compareMetricSets(baseline, current, models.CategoryBackend)
	c.detectNewFailures(baseline, current, out)

	if v, ok := current.Overall["error_rate"]; ok {
		out.CurrentErrorRate = v
	}

	out.LatencyScore = familyScore(out.Results, FamilyLatency)
	out.ThroughputScore = familyScore(out.Results, FamilyThroughput)
	out.ErrorScore = familyScore(out.Results, FamilyErrorRate, FamilySuccessRate)
	out.Score = round2(backendLatencyWeight*out.LatencyScore +
		backendThroughputWeight*out.ThroughputScore +
		backendErrorWeight*out.ErrorScore)

	return out
}

// detectNewFailures flags transactions failing in the current run that were
// absent or error-free in the baseline and forces them critical.
func (c *BackendComparator) detectNewFailures(baseline, current *MetricSet, out *BackendComparison) {
	names := make([]string, 0, len(current.BySubEntity))
	for name := range current.BySubEntity {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		currentErr, ok := current.BySubEntity[name]["error_rate"]
		if !ok || currentErr <= 0 {
			continue
		}

		baselineErr := 0.0
		if baselineTxn, exists := baseline.BySubEntity[name]; exists {
			baselineErr = baselineTxn["error_rate"]
		}
		if baselineErr > 0 {
			continue
		}

		out.HasNewFailures = true
		out.NewFailures = append(out.NewFailures, name)
		out.Results = forceNewFailure(out.Results, name, baselineErr, currentErr)
	}
}

// forceNewFailure rewrites (or appends) the transaction's error_rate result as
// a critical regression, regardless of what the numeric classification said.
// A transaction absent from the baseline has no comparator pair at all, so a
// synthetic row with baseline value 0 is added.
func forceNewFailure(results []MetricComparison, txn string, baselineErr, currentErr float64) []MetricComparison {
	for i := range results {
		if results[i].SubEntity == txn && results[i].Metric == "error_rate" {
			results[i].Severity = SeverityCritical
			results[i].ChangeType = ChangeRegression
			return results
		}
	}

	cls := Classify(baselineErr, currentErr, FamilyErrorRate)
	cls.Severity = SeverityCritical
	cls.ChangeType = ChangeRegression
	return append(results, MetricComparison{
		Metric:         "error_rate",
		SubEntity:      txn,
		Category:       models.CategoryBackend,
		Family:         FamilyErrorRate,
		BaselineValue:  baselineErr,
		CurrentValue:   currentErr,
		Classification: cls,
	})
}

// compareMetricSets classifies every metric present on both sides, overall
// first, then per sub-entity. Metrics present on only one side have no pair to
// classify and are skipped; new transaction failures are handled separately.
func compareMetricSets(baseline, current *MetricSet, category string) []MetricComparison {
	var results []MetricComparison

	for _, name := range sortedKeys(current.Overall) {
		baseVal, ok := baseline.Overall[name]
		if !ok {
			continue
		}
		results = append(results, classifyPair(name, "", category, baseVal, current.Overall[name]))
	}

	subNames := make([]string, 0, len(current.BySubEntity))
	for name := range current.BySubEntity {
		subNames = append(subNames, name)
	}
	sort.Strings(subNames)

	for _, sub := range subNames {
		baseSub, ok := baseline.BySubEntity[sub]
		if !ok {
			// no baseline counterpart; new-failure detection covers the error
			// side of brand new transactions
			continue
		}
		currentSub := current.BySubEntity[sub]
		for _, name := range sortedKeys(currentSub) {
			baseVal, ok := baseSub[name]
			if !ok {
				continue
			}
			results = append(results, classifyPair(name, sub, category, baseVal, currentSub[name]))
		}
	}

	return results
}

func classifyPair(name, subEntity, category string, baseline, current float64) MetricComparison {
	family := FamilyForMetric(category, name)
	return MetricComparison{
		Metric:         name,
		SubEntity:      subEntity,
		Category:       category,
		Family:         family,
		BaselineValue:  baseline,
		CurrentValue:   current,
		Classification: Classify(baseline, current, family),
	}
}

// familyScore is max(0, 100 - accumulated penalty) over the regressions
// belonging to the given families. Improvements never penalize.
func familyScore(results []MetricComparison, families ...MetricFamily) float64 {
	wanted := make(map[MetricFamily]bool, len(families))
	for _, f := range families {
		wanted[f] = true
	}

	penalty := 0.0
	for _, r := range results {
		if !wanted[r.Family] || r.ChangeType != ChangeRegression {
			continue
		}
		penalty += severityPenalty[r.Severity]
	}
	if penalty > 100 {
		penalty = 100
	}
	return 100 - penalty
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
