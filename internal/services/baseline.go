package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/perfgate/backend/internal/models"
	"gorm.io/gorm"
)

// BaselineService manages baseline records and their immutable metric
// snapshots. It is the only component that writes to the baseline side of the
// metrics store.
type BaselineService struct {
	db *gorm.DB
}

func NewBaselineService(db *gorm.DB) *BaselineService {
	return &BaselineService{db: db}
}

type CreateBaselineRequest struct {
	RunID       string `json:"run_id" binding:"required"`
	Application string `json:"application" binding:"required"`
	Environment string `json:"environment" binding:"required"`
	Version     string `json:"version"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by"`
}

type UpdateBaselineRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Version     string  `json:"version"`
}

type BaselineListRequest struct {
	Application string `form:"application"`
	Environment string `form:"environment"`
	ActiveOnly  bool   `form:"active_only"`
}

// Create snapshots the run's current metrics into a new baseline. Fails with
// ErrRunMetricsNotFound if the run has no metrics yet. Creating several
// baselines for one run is allowed; each gets an independent copy. A newly
// created baseline becomes the single active one for its (application,
// environment) pair.
func (s *BaselineService) Create(req *CreateBaselineRequest) (*models.Baseline, error) {
	var rows []models.RunMetric
	if err := s.db.Where("run_id = ?", req.RunID).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrRunMetricsNotFound
	}

	baseline := models.Baseline{
		BaselineID:  uuid.NewString(),
		RunID:       req.RunID,
		Application: req.Application,
		Environment: req.Environment,
		Version:     req.Version,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
		CreatedBy:   req.CreatedBy,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// one active baseline per (application, environment)
		err := tx.Model(&models.Baseline{}).
			Where("application = ? AND environment = ? AND is_active = ?", req.Application, req.Environment, true).
			Update("is_active", false).Error
		if err != nil {
			return err
		}

		if err := tx.Create(&baseline).Error; err != nil {
			return err
		}

		snapshot := make([]models.BaselineMetric, 0, len(rows))
		for _, row := range rows {
			snapshot = append(snapshot, models.BaselineMetric{
				BaselineRef: baseline.ID,
				Category:    row.Category,
				Name:        row.Name,
				Value:       row.Value,
				SubEntity:   row.SubEntity,
			})
		}
		return tx.CreateInBatches(snapshot, 200).Error
	})
	if err != nil {
		return nil, err
	}

	LogInfo("baseline", "create", fmt.Sprintf("baseline %q created from run %s", req.Name, req.RunID), map[string]interface{}{
		"baseline_id":  baseline.BaselineID,
		"run_id":       req.RunID,
		"metric_count": len(rows),
	})

	return &baseline, nil
}

// List returns baselines filtered by application, environment and active flag.
func (s *BaselineService) List(req *BaselineListRequest) ([]models.Baseline, error) {
	var baselines []models.Baseline

	query := s.db.Model(&models.Baseline{})
	if req.Application != "" {
		query = query.Where("application = ?", req.Application)
	}
	if req.Environment != "" {
		query = query.Where("environment = ?", req.Environment)
	}
	if req.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Order("created_at DESC").Find(&baselines).Error; err != nil {
		return nil, err
	}
	return baselines, nil
}

// Get resolves a baseline by its public identifier.
func (s *BaselineService) Get(baselineID string) (*models.Baseline, error) {
	var baseline models.Baseline
	err := s.db.Where("baseline_id = ?", baselineID).First(&baseline).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBaselineNotFound
	}
	if err != nil {
		return nil, err
	}
	return &baseline, nil
}

// UpdateMetadata edits the mutable descriptive fields. The metric snapshot is
// immutable and cannot be touched here.
func (s *BaselineService) UpdateMetadata(baselineID string, req *UpdateBaselineRequest) (*models.Baseline, error) {
	baseline, err := s.Get(baselineID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		baseline.Name = req.Name
	}
	if req.Description != nil {
		baseline.Description = *req.Description
	}
	if req.Version != "" {
		baseline.Version = req.Version
	}

	if err := s.db.Save(baseline).Error; err != nil {
		return nil, err
	}
	return baseline, nil
}

// Deactivate soft-deletes the baseline: it stays readable for historical
// comparisons but is no longer offered as a reference point.
func (s *BaselineService) Deactivate(baselineID string) (*models.Baseline, error) {
	baseline, err := s.Get(baselineID)
	if err != nil {
		return nil, err
	}

	baseline.IsActive = false
	if err := s.db.Save(baseline).Error; err != nil {
		return nil, err
	}

	LogInfo("baseline", "deactivate", fmt.Sprintf("baseline %q deactivated", baseline.Name), map[string]interface{}{
		"baseline_id": baseline.BaselineID,
	})
	return baseline, nil
}

// Delete hard-deletes the baseline and cascades its snapshot rows. Completed
// comparison jobs keep their baseline reference and denormalized payload, so
// comparison history survives the deletion.
func (s *BaselineService) Delete(baselineID string) error {
	baseline, err := s.Get(baselineID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("baseline_ref = ?", baseline.ID).Delete(&models.BaselineMetric{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(baseline).Error
	})
	if err != nil {
		return err
	}

	LogWarning("baseline", "delete", fmt.Sprintf("baseline %q deleted with its snapshot", baseline.Name), map[string]interface{}{
		"baseline_id": baseline.BaselineID,
		"run_id":      baseline.RunID,
	})
	return nil
}
