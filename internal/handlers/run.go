package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/perfgate/backend/internal/services"
	"github.com/perfgate/backend/pkg/response"
	"gorm.io/gorm"
)

// RunHandler exposes run registration and metric ingestion.
type RunHandler struct {
	runService *services.RunService
}

func NewRunHandler(db *gorm.DB) *RunHandler {
	return &RunHandler{
		runService: services.NewRunService(db),
	}
}

func (h *RunHandler) Ingest(c *gin.Context) {
	var req services.IngestRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	run, err := h.runService.Ingest(&req)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Created(c, run)
}

func (h *RunHandler) List(c *gin.Context) {
	var req services.RunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.runService.List(&req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, resp)
}

func (h *RunHandler) Metrics(c *gin.Context) {
	runID := c.Param("run_id")

	metrics, err := h.runService.Metrics(runID)
	if err != nil {
		if errors.Is(err, services.ErrRunNotFound) {
			response.NotFound(c, "run not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, metrics)
}
