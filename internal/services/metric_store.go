package services

import (
	"errors"

	"github.com/perfgate/backend/internal/models"
	"gorm.io/gorm"
)

// MetricSet is a flat view of one run's (or one baseline snapshot's) metrics
// for a single category: run-wide values plus per-sub-entity values keyed by
// transaction or page name.
type MetricSet struct {
	Overall     map[string]float64
	BySubEntity map[string]map[string]float64
}

func NewMetricSet() *MetricSet {
	return &MetricSet{
		Overall:     make(map[string]float64),
		BySubEntity: make(map[string]map[string]float64),
	}
}

func (m *MetricSet) add(name string, value float64, subEntity string) {
	if subEntity == "" {
		m.Overall[name] = value
		return
	}
	if m.BySubEntity[subEntity] == nil {
		m.BySubEntity[subEntity] = make(map[string]float64)
	}
	m.BySubEntity[subEntity][name] = value
}

// Empty reports whether the set holds no values at all.
func (m *MetricSet) Empty() bool {
	return m == nil || (len(m.Overall) == 0 && len(m.BySubEntity) == 0)
}

// MetricStore is the read side of the metrics data consumed by comparisons.
// The engine never parses raw test output; it only reads already-aggregated
// values through this interface.
type MetricStore interface {
	// RunMetrics returns the metrics ingested for a run in one category.
	// Returns ErrRunMetricsNotFound when the run has no values in it.
	RunMetrics(runID, category string) (*MetricSet, error)
	// HasRunMetrics reports whether any metrics exist for the run/category.
	HasRunMetrics(runID, category string) (bool, error)
	// BaselineMetrics returns the immutable snapshot of a baseline in one
	// category. Returns ErrBaselineSnapshotEmpty when the snapshot holds no
	// values in it.
	BaselineMetrics(baselineRef uint, category string) (*MetricSet, error)
}

type gormMetricStore struct {
	db *gorm.DB
}

// NewMetricStore returns a MetricStore backed by the run_metrics and
// baseline_metrics tables.
func NewMetricStore(db *gorm.DB) MetricStore {
	return &gormMetricStore{db: db}
}

func (s *gormMetricStore) RunMetrics(runID, category string) (*MetricSet, error) {
	var rows []models.RunMetric
	err := s.db.Where("run_id = ? AND category = ?", runID, category).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrRunMetricsNotFound
	}

	set := NewMetricSet()
	for _, row := range rows {
		set.add(row.Name, row.Value, row.SubEntity)
	}
	return set, nil
}

func (s *gormMetricStore) HasRunMetrics(runID, category string) (bool, error) {
	var count int64
	err := s.db.Model(&models.RunMetric{}).
		Where("run_id = ? AND category = ?", runID, category).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *gormMetricStore) BaselineMetrics(baselineRef uint, category string) (*MetricSet, error) {
	var rows []models.BaselineMetric
	err := s.db.Where("baseline_ref = ? AND category = ?", baselineRef, category).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrBaselineSnapshotEmpty
	}

	set := NewMetricSet()
	for _, row := range rows {
		set.add(row.Name, row.Value, row.SubEntity)
	}
	return set, nil
}

// RunExists checks run registration independently of metrics.
func RunExists(db *gorm.DB, runID string) (bool, error) {
	var count int64
	err := db.Model(&models.TestRun{}).Where("run_id = ?", runID).Count(&count).Error
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}
	return true, nil
}

// IsNotFound reports whether err is one of the store's absence errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRunMetricsNotFound) ||
		errors.Is(err, ErrBaselineSnapshotEmpty) ||
		errors.Is(err, ErrRunNotFound) ||
		errors.Is(err, ErrBaselineNotFound)
}
