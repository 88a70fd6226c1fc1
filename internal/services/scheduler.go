package services

import (
	"fmt"
	"time"

	"github.com/perfgate/backend/internal/config"
	"github.com/perfgate/backend/internal/models"
	"github.com/perfgate/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// MaintenanceService runs the periodic housekeeping jobs: reporting
// comparison jobs stuck in processing and purging terminal jobs past the
// retention window. Stale jobs are only reported, never failed automatically;
// callers detect staleness through the status endpoint.
type MaintenanceService struct {
	db        *gorm.DB
	cfg       config.ComparisonConfig
	scheduler *cron.Cron
	log       zerolog.Logger
}

func NewMaintenanceService(db *gorm.DB, cfg config.ComparisonConfig) *MaintenanceService {
	return &MaintenanceService{db: db, cfg: cfg, log: logger.With("maintenance")}
}

func (s *MaintenanceService) Start() {
	s.scheduler = cron.New()

	if _, err := s.scheduler.AddFunc("*/10 * * * *", s.reportStaleJobs); err != nil {
		s.log.Error().Msgf("failed to schedule stale-job check: %v", err)
	}
	if _, err := s.scheduler.AddFunc("0 3 * * *", s.cleanupExpiredJobs); err != nil {
		s.log.Error().Msgf("failed to schedule retention cleanup: %v", err)
	}

	s.scheduler.Start()
	s.log.Info().Msgf("scheduler started (stale threshold: %dm, retention: %dd)",
		s.cfg.StaleAfterMinutes, s.cfg.RetentionDays)
}

func (s *MaintenanceService) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// reportStaleJobs logs every processing job whose last update is older than
// the stale threshold.
func (s *MaintenanceService) reportStaleJobs() {
	cutoff := time.Now().Add(-time.Duration(s.cfg.StaleAfterMinutes) * time.Minute)

	var stale []models.ComparisonJob
	err := s.db.Where("status = ? AND updated_at < ?", models.JobStatusProcessing, cutoff).
		Find(&stale).Error
	if err != nil {
		s.log.Error().Msgf("stale-job query failed: %v", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	for _, job := range stale {
		s.log.Warn().
			Str("job_id", job.JobID).
			Time("last_updated", job.UpdatedAt).
			Msg("comparison job appears stuck in processing")
	}
	LogWarning("maintenance", "stale_jobs",
		fmt.Sprintf("%d comparison job(s) stuck in processing past %dm", len(stale), s.cfg.StaleAfterMinutes),
		map[string]interface{}{"count": len(stale)})
}

// cleanupExpiredJobs purges terminal jobs older than the retention window
// together with their regression rows.
func (s *MaintenanceService) cleanupExpiredJobs() {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)

	var expired []models.ComparisonJob
	err := s.db.Where("status IN ? AND created_at < ?",
		[]string{models.JobStatusCompleted, models.JobStatusFailed}, cutoff).
		Find(&expired).Error
	if err != nil {
		s.log.Error().Msgf("retention query failed: %v", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	ids := make([]uint, 0, len(expired))
	for _, job := range expired {
		ids = append(ids, job.ID)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_ref IN ?", ids).Delete(&models.RegressionDetail{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.ComparisonJob{}).Error
	})
	if err != nil {
		s.log.Error().Msgf("retention cleanup failed: %v", err)
		return
	}

	s.log.Info().Msgf("purged %d comparison job(s) older than %d days", len(expired), s.cfg.RetentionDays)
	LogInfo("maintenance", "retention_cleanup",
		fmt.Sprintf("purged %d expired comparison job(s)", len(expired)),
		map[string]interface{}{"count": len(expired), "retention_days": s.cfg.RetentionDays})
}
