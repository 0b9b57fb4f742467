package dto

import (
	"time"

	"github.com/forecastry/montecarlo/pkg/models"
)

// CreateProjectRequest represents the request to create a new Project.
type CreateProjectRequest struct {
	Name        string    `json:"name" validate:"required,min=1,max=255"`
	Description string    `json:"description"`
	Schedule    string    `json:"schedule" validate:"omitempty,cron"`
	Tasks       []TaskDTO `json:"tasks" validate:"required,min=1,dive"`
	Tags        []string  `json:"tags"`
	IsPaused    bool      `json:"is_paused"`
}

// UpdateProjectRequest represents the request to update an existing
// Project.
type UpdateProjectRequest struct {
	Name        *string   `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string   `json:"description,omitempty"`
	Schedule    *string   `json:"schedule,omitempty" validate:"omitempty,cron"`
	Tasks       []TaskDTO `json:"tasks,omitempty" validate:"omitempty,min=1,dive"`
	Tags        []string  `json:"tags,omitempty"`
	IsPaused    *bool     `json:"is_paused,omitempty"`
}

// TaskDTO represents a three-point-estimate task in a Project.
type TaskDTO struct {
	ID           string   `json:"id" validate:"required"`
	Name         string   `json:"name" validate:"required"`
	Category     string   `json:"category"`
	Predecessors []string `json:"predecessors"`
	Optimistic   float64  `json:"optimistic" validate:"required,gte=0"`
	MostLikely   float64  `json:"most_likely" validate:"required,gte=0"`
	Pessimistic  float64  `json:"pessimistic" validate:"required,gte=0"`
	Resources    string   `json:"resources,omitempty"`
}

// ProjectResponse represents the response for a Project.
type ProjectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Schedule    string    `json:"schedule"`
	Tasks       []TaskDTO `json:"tasks"`
	Tags        []string  `json:"tags"`
	IsPaused    bool      `json:"is_paused"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectListResponse represents a paginated list of Projects.
type ProjectListResponse struct {
	Projects   []ProjectResponse `json:"projects"`
	Pagination PaginationMeta    `json:"pagination"`
}

// ToTaskDTO converts a models.Task to a TaskDTO.
func ToTaskDTO(task models.Task) TaskDTO {
	return TaskDTO{
		ID:           task.ID,
		Name:         task.Name,
		Category:     task.Category,
		Predecessors: task.Predecessors,
		Optimistic:   task.Optimistic,
		MostLikely:   task.MostLikely,
		Pessimistic:  task.Pessimistic,
		Resources:    task.Resources,
	}
}

// ToTask converts a TaskDTO to a models.Task.
func (t TaskDTO) ToTask() models.Task {
	return models.Task{
		ID:           t.ID,
		Name:         t.Name,
		Category:     t.Category,
		Predecessors: t.Predecessors,
		Optimistic:   t.Optimistic,
		MostLikely:   t.MostLikely,
		Pessimistic:  t.Pessimistic,
		Resources:    t.Resources,
	}
}

// ToProjectResponse converts a models.Project to a ProjectResponse.
func ToProjectResponse(project *models.Project) ProjectResponse {
	tasks := make([]TaskDTO, len(project.Tasks))
	for i, task := range project.Tasks {
		tasks[i] = ToTaskDTO(task)
	}

	return ProjectResponse{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		Schedule:    project.Schedule,
		Tasks:       tasks,
		Tags:        project.Tags,
		IsPaused:    project.IsPaused,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
}

// ToProject converts a CreateProjectRequest to a models.Project.
func (r CreateProjectRequest) ToProject() *models.Project {
	tasks := make([]models.Task, len(r.Tasks))
	for i, taskDTO := range r.Tasks {
		tasks[i] = taskDTO.ToTask()
	}

	return &models.Project{
		Name:        r.Name,
		Description: r.Description,
		Schedule:    r.Schedule,
		Tasks:       tasks,
		Tags:        r.Tags,
		IsPaused:    r.IsPaused,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}
