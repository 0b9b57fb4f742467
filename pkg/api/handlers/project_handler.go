package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/forecastry/montecarlo/internal/dag"
	"github.com/forecastry/montecarlo/internal/storage"
	"github.com/forecastry/montecarlo/pkg/api/dto"
	"github.com/forecastry/montecarlo/pkg/api/middleware"
	"github.com/forecastry/montecarlo/pkg/models"
)

// ProjectHandler handles Project-related HTTP requests.
type ProjectHandler struct {
	projectRepo storage.ProjectRepository
}

// NewProjectHandler creates a new Project handler.
func NewProjectHandler(projectRepo storage.ProjectRepository) *ProjectHandler {
	return &ProjectHandler{projectRepo: projectRepo}
}

// CreateProject handles POST /api/v1/projects
// @Summary Create a new Project
// @Description Create a new project from a task table, validating its DAG
// @Tags projects
// @Accept json
// @Produce json
// @Param project body dto.CreateProjectRequest true "Project definition"
// @Success 201 {object} dto.ProjectResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req dto.CreateProjectRequest
	if !middleware.BindAndValidate(c, &req) {
		return
	}

	project := req.ToProject()

	if _, err := dag.Build(project.Tasks); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "INVALID_PROJECT", err.Error())
		return
	}

	if err := h.projectRepo.Create(c.Request.Context(), project); err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "CREATE_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectResponse(project))
}

// ListProjects handles GET /api/v1/projects
// @Summary List Projects
// @Description Get a paginated list of Projects with optional filters
// @Tags projects
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param is_paused query bool false "Filter by paused status"
// @Param tags query []string false "Filter by tags"
// @Success 200 {object} dto.ProjectListResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filters := storage.ProjectFilters{
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}

	if isPausedStr := c.Query("is_paused"); isPausedStr != "" {
		isPaused := isPausedStr == "true"
		filters.IsPaused = &isPaused
	}

	if tags := c.QueryArray("tags"); len(tags) > 0 {
		filters.Tags = tags
	}

	projects, err := h.projectRepo.List(c.Request.Context(), filters)
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "LIST_FAILED", err.Error())
		return
	}

	responses := make([]dto.ProjectResponse, len(projects))
	for i, p := range projects {
		responses[i] = dto.ToProjectResponse(p)
	}

	totalCount := int64(len(responses))

	c.JSON(http.StatusOK, dto.ProjectListResponse{
		Projects:   responses,
		Pagination: dto.NewPaginationMeta(page, pageSize, totalCount),
	})
}

// GetProject handles GET /api/v1/projects/:id
// @Summary Get Project details
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} dto.ProjectResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{id} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id := c.Param("id")

	project, err := h.projectRepo.Get(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, http.StatusNotFound, "PROJECT_NOT_FOUND", "project not found")
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectResponse(project))
}

// UpdateProject handles PATCH /api/v1/projects/:id
// @Summary Update Project
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param project body dto.UpdateProjectRequest true "Project update"
// @Success 200 {object} dto.ProjectResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/projects/{id} [patch]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id := c.Param("id")

	var req dto.UpdateProjectRequest
	if !middleware.BindAndValidate(c, &req) {
		return
	}

	project, err := h.projectRepo.Get(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, http.StatusNotFound, "PROJECT_NOT_FOUND", "project not found")
		return
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Schedule != nil {
		project.Schedule = *req.Schedule
	}
	if req.Tasks != nil {
		tasks := make([]models.Task, len(req.Tasks))
		for i, taskDTO := range req.Tasks {
			tasks[i] = taskDTO.ToTask()
		}
		project.Tasks = tasks

		if _, err := dag.Build(project.Tasks); err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, "INVALID_PROJECT", err.Error())
			return
		}
	}
	if req.Tags != nil {
		project.Tags = req.Tags
	}
	if req.IsPaused != nil {
		project.IsPaused = *req.IsPaused
	}

	if err := h.projectRepo.Update(c.Request.Context(), project); err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "UPDATE_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectResponse(project))
}

// DeleteProject handles DELETE /api/v1/projects/:id
// @Summary Delete Project
// @Tags projects
// @Param id path string true "Project ID"
// @Success 204 "No Content"
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/projects/{id} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id := c.Param("id")

	if err := h.projectRepo.Delete(c.Request.Context(), id); err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "DELETE_FAILED", err.Error())
		return
	}

	c.Status(http.StatusNoContent)
}

// PauseProject handles POST /api/v1/projects/:id/pause
// @Summary Pause a Project, preventing further scheduled re-forecasts
// @Tags projects
// @Param id path string true "Project ID"
// @Success 200 {object} dto.SuccessResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/projects/{id}/pause [post]
func (h *ProjectHandler) PauseProject(c *gin.Context) {
	id := c.Param("id")

	if err := h.projectRepo.Pause(c.Request.Context(), id); err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "PAUSE_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Message: "project paused successfully"})
}

// UnpauseProject handles POST /api/v1/projects/:id/unpause
// @Summary Unpause a Project
// @Tags projects
// @Param id path string true "Project ID"
// @Success 200 {object} dto.SuccessResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/projects/{id}/unpause [post]
func (h *ProjectHandler) UnpauseProject(c *gin.Context) {
	id := c.Param("id")

	if err := h.projectRepo.Unpause(c.Request.Context(), id); err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, "UNPAUSE_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Message: "project unpaused successfully"})
}
