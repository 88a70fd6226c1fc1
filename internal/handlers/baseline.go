package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/perfgate/backend/internal/services"
	"github.com/perfgate/backend/pkg/response"
	"gorm.io/gorm"
)

// BaselineHandler exposes baseline CRUD over the baseline service.
type BaselineHandler struct {
	baselineService *services.BaselineService
}

func NewBaselineHandler(db *gorm.DB) *BaselineHandler {
	return &BaselineHandler{
		baselineService: services.NewBaselineService(db),
	}
}

func (h *BaselineHandler) Create(c *gin.Context) {
	var req services.CreateBaselineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	baseline, err := h.baselineService.Create(&req)
	if err != nil {
		if errors.Is(err, services.ErrRunMetricsNotFound) {
			response.NotFound(c, "run has no metrics to snapshot")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Created(c, baseline)
}

func (h *BaselineHandler) List(c *gin.Context) {
	var req services.BaselineListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	baselines, err := h.baselineService.List(&req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, baselines)
}

func (h *BaselineHandler) GetByID(c *gin.Context) {
	baseline, err := h.baselineService.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrBaselineNotFound) {
			response.NotFound(c, "baseline not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, baseline)
}

func (h *BaselineHandler) Update(c *gin.Context) {
	var req services.UpdateBaselineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	baseline, err := h.baselineService.UpdateMetadata(c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, services.ErrBaselineNotFound) {
			response.NotFound(c, "baseline not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, baseline)
}

func (h *BaselineHandler) Deactivate(c *gin.Context) {
	baseline, err := h.baselineService.Deactivate(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrBaselineNotFound) {
			response.NotFound(c, "baseline not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, baseline)
}

func (h *BaselineHandler) Delete(c *gin.Context) {
	if err := h.baselineService.Delete(c.Param("id")); err != nil {
		if errors.Is(err, services.ErrBaselineNotFound) {
			response.NotFound(c, "baseline not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "baseline deleted"})
}
