package main

import (
	"github.com/gin-gonic/gin"
	"github.com/perfgate/backend/internal/handlers"
	"github.com/perfgate/backend/internal/middleware"
	"github.com/perfgate/backend/internal/models"
	"github.com/perfgate/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for ingest routes
	ingestLimiter := middleware.NewRateLimiter(10, 20)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "perfgate"})
	})

	// API routes
	api := r.Group("/api")
	{
		// Test runs
		runHandler := handlers.NewRunHandler(models.GetDB())
		api.POST("/runs", ingestLimiter.Middleware(), runHandler.Ingest)
		api.GET("/runs", runHandler.List)
		api.GET("/runs/:run_id/metrics", runHandler.Metrics)

		// Baselines
		baselineHandler := handlers.NewBaselineHandler(models.GetDB())
		api.POST("/baselines", baselineHandler.Create)
		api.GET("/baselines", baselineHandler.List)
		api.GET("/baselines/:id", baselineHandler.GetByID)
		api.PUT("/baselines/:id", baselineHandler.Update)
		api.POST("/baselines/:id/deactivate", baselineHandler.Deactivate)
		api.DELETE("/baselines/:id", baselineHandler.Delete)

		// Comparisons
		comparisonHandler := handlers.NewComparisonHandler(svc.comparisonService)
		api.POST("/comparisons", comparisonHandler.Start)
		api.GET("/comparisons/:id/status", comparisonHandler.Status)
		api.GET("/comparisons/:id", comparisonHandler.Result)
		api.GET("/comparisons/:id/regressions", comparisonHandler.Regressions)
		api.GET("/comparisons/:id/summary", comparisonHandler.Summary)

		// System logs
		systemLogHandler := handlers.NewSystemLogHandler(models.GetDB())
		api.GET("/system-logs", systemLogHandler.List)
	}
}
