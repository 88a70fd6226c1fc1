package main

import (
	"github.com/perfgate/backend/internal/config"
	"github.com/perfgate/backend/internal/models"
	"github.com/perfgate/backend/internal/services"
	"github.com/perfgate/backend/pkg/logger"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	comparisonService  *services.ComparisonService
	maintenanceService *services.MaintenanceService
	taskQueue          services.TaskQueue
	worker             *services.Worker
}

// bootstrap initializes all application dependencies: database, queue,
// comparison pipeline, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	services.InitSystemLogger(models.GetDB())

	// Task queue (uses Redis if enabled, otherwise in-process mode)
	taskQueue := services.InitTaskQueue(cfg)

	store := services.NewMetricStore(models.GetDB())
	comparisonService := services.NewComparisonService(models.GetDB(), store, taskQueue, cfg.Comparison)

	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(comparisonService.Process)
	}

	// Async worker when Redis is enabled
	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis, cfg.Comparison.WorkerConcurrency)
		if worker != nil {
			worker.SetProcessor(comparisonService.Process)
			if err := worker.Start(); err != nil {
				logger.Fatalf("Failed to start comparison worker: %v", err)
			}
		}
	}

	maintenanceService := services.NewMaintenanceService(models.GetDB(), cfg.Comparison)
	maintenanceService.Start()

	return &appServices{
		comparisonService:  comparisonService,
		maintenanceService: maintenanceService,
		taskQueue:          taskQueue,
		worker:             worker,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.maintenanceService.Stop()
	logger.Info().Msg("Schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close task queue")
		}
	}
}
