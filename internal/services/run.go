package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/perfgate/backend/internal/models"
	"gorm.io/gorm"
)

// RunService registers test runs and their already-aggregated metrics. It is
// the write side of the metrics store; the comparison engine only reads.
type RunService struct {
	db *gorm.DB
}

func NewRunService(db *gorm.DB) *RunService {
	return &RunService{db: db}
}

type IngestMetric struct {
	Name      string  `json:"name" binding:"required"`
	Value     float64 `json:"value"`
	SubEntity string  `json:"sub_entity"`
}

type IngestRunRequest struct {
	RunID       string                    `json:"run_id" binding:"required"`
	Application string                    `json:"application" binding:"required"`
	Environment string                    `json:"environment" binding:"required"`
	Source      string                    `json:"source"`
	StartedAt   *time.Time                `json:"started_at"`
	CompletedAt *time.Time                `json:"completed_at"`
	Metrics     map[string][]IngestMetric `json:"metrics" binding:"required"` // category -> metrics
}

type RunListRequest struct {
	Application string `form:"application"`
	Environment string `form:"environment"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}

type RunListResponse struct {
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Items    []models.TestRun `json:"items"`
}

// Ingest registers a run and stores its metric values. Re-ingesting the same
// run id replaces the previous values, category by category.
func (s *RunService) Ingest(req *IngestRunRequest) (*models.TestRun, error) {
	categories := make([]string, 0, len(req.Metrics))
	for category, metrics := range req.Metrics {
		if category != models.CategoryBackend && category != models.CategoryFrontend {
			return nil, fmt.Errorf("unknown metric category %q", category)
		}
		if len(metrics) == 0 {
			return nil, fmt.Errorf("category %q has no metrics", category)
		}
		categories = append(categories, category)
	}
	if len(categories) == 0 {
		return nil, errors.New("at least one metric category is required")
	}

	var run models.TestRun
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("run_id = ?", req.RunID).First(&run).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			run = models.TestRun{
				RunID:       req.RunID,
				Application: req.Application,
				Environment: req.Environment,
				Source:      req.Source,
				StartedAt:   req.StartedAt,
				CompletedAt: req.CompletedAt,
			}
			if err := tx.Create(&run).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}

		existing := splitCategories(run.Categories)
		for _, category := range categories {
			if err := tx.Where("run_id = ? AND category = ?", req.RunID, category).
				Delete(&models.RunMetric{}).Error; err != nil {
				return err
			}

			rows := make([]models.RunMetric, 0, len(req.Metrics[category]))
			for _, m := range req.Metrics[category] {
				rows = append(rows, models.RunMetric{
					RunID:     req.RunID,
					Category:  category,
					Name:      strings.ToLower(strings.TrimSpace(m.Name)),
					Value:     m.Value,
					SubEntity: m.SubEntity,
				})
			}
			if err := tx.CreateInBatches(rows, 200).Error; err != nil {
				return err
			}

			existing[category] = true
		}

		run.Categories = joinCategories(existing)
		run.Application = req.Application
		run.Environment = req.Environment
		return tx.Save(&run).Error
	})
	if err != nil {
		return nil, err
	}

	metricCount := 0
	for _, metrics := range req.Metrics {
		metricCount += len(metrics)
	}
	LogInfo("run", "ingest", fmt.Sprintf("run %s ingested with %d metrics", req.RunID, metricCount), map[string]interface{}{
		"run_id":     req.RunID,
		"categories": categories,
	})

	return &run, nil
}

// List returns registered runs, newest first.
func (s *RunService) List(req *RunListRequest) (*RunListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	var runs []models.TestRun
	var total int64

	query := s.db.Model(&models.TestRun{})
	if req.Application != "" {
		query = query.Where("application = ?", req.Application)
	}
	if req.Environment != "" {
		query = query.Where("environment = ?", req.Environment)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	err := query.Order("created_at DESC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}

	return &RunListResponse{Total: total, Page: req.Page, PageSize: req.PageSize, Items: runs}, nil
}

// Metrics returns the raw stored metric rows for one run.
func (s *RunService) Metrics(runID string) ([]models.RunMetric, error) {
	exists, err := RunExists(s.db, runID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRunNotFound
	}

	var rows []models.RunMetric
	err = s.db.Where("run_id = ?", runID).
		Order("category, sub_entity, name").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func splitCategories(s string) map[string]bool {
	out := make(map[string]bool)
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out[c] = true
		}
	}
	return out
}

func joinCategories(set map[string]bool) string {
	ordered := []string{models.CategoryBackend, models.CategoryFrontend}
	var out []string
	for _, c := range ordered {
		if set[c] {
			out = append(out, c)
		}
	}
	return strings.Join(out, ",")
}
