package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/forecastry/montecarlo/internal/runservice"
	"github.com/forecastry/montecarlo/internal/storage"
	"github.com/forecastry/montecarlo/pkg/api/dto"
	"github.com/forecastry/montecarlo/pkg/api/middleware"
	"github.com/forecastry/montecarlo/pkg/models"
)

// SimulationRunHandler handles SimulationRun-related HTTP requests.
type SimulationRunHandler struct {
	projectRepo storage.ProjectRepository
	runRepo     storage.SimulationRunRepository
	runner      *runservice.Service
}

// NewSimulationRunHandler creates a new SimulationRun handler.
func NewSimulationRunHandler(
	projectRepo storage.ProjectRepository,
	runRepo storage.SimulationRunRepository,
	runner *runservice.Service,
) *SimulationRunHandler {
	return &SimulationRunHandler{
		projectRepo: projectRepo,
		runRepo:     runRepo,
		runner:      runner,
	}
}

// TriggerRun handles POST /api/v1/projects/:id/trigger
// @Summary Trigger a re-forecast of a Project
// @Description Manually trigger a simulation run outside its cron schedule
// @Tags simulation-runs
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body dto.TriggerRunRequest false "Trigger options"
// @Success 201 {object} dto.SimulationRunResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{id}/trigger [post]
func (h *SimulationRunHandler) TriggerRun(c *gin.Context) {
	projectID := c.Param("id")

	var req dto.TriggerRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = dto.TriggerRunRequest{}
	}

	project, err := h.projectRepo.Get(c.Request.Context(), projectID)
	if err != nil {
		middleware.AbortWithError(c, http.StatusNotFound, "PROJECT_NOT_FOUND", "project not found")
		return
	}

	if project.IsPaused {
		middleware.AbortWithError(c, http.StatusBadRequest, "PROJECT_PAUSED", "cannot trigger a paused project")
		return
	}

	run := &models.SimulationRun{
		ID:              uuid.New().String(),
		ProjectID:       projectID,
		State:           models.StateQueued,
		Config:          req.Config.ToConfig(),
		ScheduledAt:     req.ScheduledAt,
		ExternalTrigger: true,
	}

	if err := h.runRepo.Create(c.Request.Context(), run); err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "CREATE_RUN_FAILED", err.Error())
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		_, _ = h.runner.Execute(ctx, run)
	}()

	c.JSON(http.StatusCreated, dto.ToSimulationRunResponse(run))
}

// ListRuns handles GET /api/v1/runs
// @Summary List SimulationRuns
// @Tags simulation-runs
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param project_id query string false "Filter by Project ID"
// @Param state query string false "Filter by state"
// @Success 200 {object} dto.SimulationRunListResponse
// @Router /api/v1/runs [get]
func (h *SimulationRunHandler) ListRuns(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filters := storage.SimulationRunFilters{
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}

	if projectID := c.Query("project_id"); projectID != "" {
		filters.ProjectID = projectID
	}

	if stateStr := c.Query("state"); stateStr != "" {
		state := models.State(stateStr)
		filters.State = &state
	}

	runs, err := h.runRepo.List(c.Request.Context(), filters)
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "LIST_FAILED", err.Error())
		return
	}

	responses := make([]dto.SimulationRunResponse, len(runs))
	for i, run := range runs {
		responses[i] = dto.ToSimulationRunResponse(run)
	}

	totalCount := int64(len(responses))

	c.JSON(http.StatusOK, dto.SimulationRunListResponse{
		Runs:       responses,
		Pagination: dto.NewPaginationMeta(page, pageSize, totalCount),
	})
}

// GetRun handles GET /api/v1/runs/:id
// @Summary Get SimulationRun details
// @Tags simulation-runs
// @Produce json
// @Param id path string true "SimulationRun ID"
// @Success 200 {object} dto.SimulationRunDetailResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/runs/{id} [get]
func (h *SimulationRunHandler) GetRun(c *gin.Context) {
	id := c.Param("id")

	run, err := h.runRepo.Get(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, http.StatusNotFound, "RUN_NOT_FOUND", "simulation run not found")
		return
	}

	c.JSON(http.StatusOK, dto.SimulationRunDetailResponse{
		SimulationRunResponse: dto.ToSimulationRunResponse(run),
	})
}

// CancelRun handles POST /api/v1/runs/:id/cancel
// @Summary Cancel a running SimulationRun
// @Tags simulation-runs
// @Param id path string true "SimulationRun ID"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/runs/{id}/cancel [post]
func (h *SimulationRunHandler) CancelRun(c *gin.Context) {
	id := c.Param("id")

	run, err := h.runRepo.Get(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, http.StatusNotFound, "RUN_NOT_FOUND", "simulation run not found")
		return
	}

	if run.State.IsTerminal() {
		middleware.AbortWithError(c, http.StatusBadRequest, "INVALID_STATE",
			"cannot cancel a simulation run in a terminal state")
		return
	}

	// Cancellation of an in-flight run is cooperative: internal/orchestrator
	// checks ctx between trials. The HTTP layer only has the persisted
	// record to work with, so a cancel request here marks the run
	// partially completed; the in-process goroutine driving it (if any)
	// observes its own context separately.
	if err := h.runRepo.UpdateState(c.Request.Context(), id, run.State, models.StatePartiallyCompleted); err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "CANCEL_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Message: "simulation run cancelled"})
}
