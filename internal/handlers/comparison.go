package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/perfgate/backend/internal/services"
	"github.com/perfgate/backend/pkg/response"
)

// ComparisonHandler exposes the comparison job lifecycle: start, poll,
// results, regressions and the text summary.
type ComparisonHandler struct {
	comparisonService *services.ComparisonService
}

func NewComparisonHandler(comparisonService *services.ComparisonService) *ComparisonHandler {
	return &ComparisonHandler{comparisonService: comparisonService}
}

func (h *ComparisonHandler) Start(c *gin.Context) {
	var req services.StartComparisonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	job, err := h.comparisonService.Start(&req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Accepted(c, gin.H{
		"job_id": job.JobID,
		"status": job.Status,
	})
}

func (h *ComparisonHandler) Status(c *gin.Context) {
	status, err := h.comparisonService.Status(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, status)
}

func (h *ComparisonHandler) Result(c *gin.Context) {
	result, err := h.comparisonService.Result(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, result)
}

func (h *ComparisonHandler) Regressions(c *gin.Context) {
	details, err := h.comparisonService.Regressions(c.Param("id"), c.Query("category"), c.Query("severity"), c.Query("change_type"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, details)
}

func (h *ComparisonHandler) Summary(c *gin.Context) {
	summary, err := h.comparisonService.Summary(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.String(200, summary)
}

// writeError maps the service's sentinel errors onto HTTP statuses.
func (h *ComparisonHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidComparisonType):
		response.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrResultNotReady):
		response.NotReady(c, err.Error())
	case services.IsNotFound(err) || errors.Is(err, services.ErrJobNotFound):
		response.NotFound(c, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}
