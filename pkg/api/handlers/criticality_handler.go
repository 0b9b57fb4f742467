package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/forecastry/montecarlo/internal/storage"
	"github.com/forecastry/montecarlo/pkg/api/dto"
	"github.com/forecastry/montecarlo/pkg/api/middleware"
)

// CriticalityHandler handles per-task criticality/sensitivity requests.
type CriticalityHandler struct {
	criticalityRepo storage.CriticalityRepository
}

// NewCriticalityHandler creates a new criticality handler.
func NewCriticalityHandler(criticalityRepo storage.CriticalityRepository) *CriticalityHandler {
	return &CriticalityHandler{criticalityRepo: criticalityRepo}
}

// ListRunCriticality handles GET /api/v1/runs/:id/criticality
// @Summary List a SimulationRun's task_criticality[]/sensitivity[] rows
// @Tags simulation-runs
// @Produce json
// @Param id path string true "SimulationRun ID"
// @Success 200 {object} dto.TaskCriticalityListResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/runs/{id}/criticality [get]
func (h *CriticalityHandler) ListRunCriticality(c *gin.Context) {
	runID := c.Param("id")

	rows, err := h.criticalityRepo.ListByRun(c.Request.Context(), runID)
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "LIST_FAILED", err.Error())
		return
	}

	responses := make([]dto.TaskCriticalityResponse, len(rows))
	for i, r := range rows {
		responses[i] = dto.ToTaskCriticalityResponse(r)
	}

	c.JSON(http.StatusOK, dto.TaskCriticalityListResponse{
		SimulationRunID: runID,
		Rows:            responses,
	})
}
