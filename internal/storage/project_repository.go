package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/forecastry/montecarlo/pkg/models"
	"gorm.io/gorm"
)

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new Project repository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	model, err := FromProject(project)
	if err != nil {
		return fmt.Errorf("failed to convert project to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	project.ID = model.ID.String()
	project.CreatedAt = model.CreatedAt
	project.UpdatedAt = model.UpdatedAt

	return nil
}

func (r *projectRepository) Get(ctx context.Context, id string) (*models.Project, error) {
	projectID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid project ID: %w", err)
	}

	var model ProjectModel
	if err := r.db.WithContext(ctx).Where("id = ?", projectID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("project not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return model.ToProject(), nil
}

func (r *projectRepository) GetByName(ctx context.Context, name string) (*models.Project, error) {
	var model ProjectModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("project not found: %s", name)
		}
		return nil, fmt.Errorf("failed to get project by name: %w", err)
	}

	return model.ToProject(), nil
}

func (r *projectRepository) List(ctx context.Context, filters ProjectFilters) ([]*models.Project, error) {
	query := r.db.WithContext(ctx).Model(&ProjectModel{})

	if filters.IsPaused != nil {
		query = query.Where("is_paused = ?", *filters.IsPaused)
	}

	if len(filters.Tags) > 0 {
		for _, tag := range filters.Tags {
			query = query.Where("tags @> ?", fmt.Sprintf("[\"%s\"]", tag))
		}
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}

	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var projectModels []ProjectModel
	if err := query.Find(&projectModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	projects := make([]*models.Project, len(projectModels))
	for i, model := range projectModels {
		projects[i] = model.ToProject()
	}

	return projects, nil
}

func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	projectID, err := uuid.Parse(project.ID)
	if err != nil {
		return fmt.Errorf("invalid project ID: %w", err)
	}

	model, err := FromProject(project)
	if err != nil {
		return fmt.Errorf("failed to convert project to model: %w", err)
	}

	model.ID = projectID

	if err := r.db.WithContext(ctx).Model(&ProjectModel{}).Where("id = ?", projectID).Updates(model).Error; err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	return nil
}

func (r *projectRepository) Delete(ctx context.Context, id string) error {
	projectID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid project ID: %w", err)
	}

	if err := r.db.WithContext(ctx).Delete(&ProjectModel{}, "id = ?", projectID).Error; err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}

func (r *projectRepository) Pause(ctx context.Context, id string) error {
	projectID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid project ID: %w", err)
	}

	if err := r.db.WithContext(ctx).Model(&ProjectModel{}).Where("id = ?", projectID).Update("is_paused", true).Error; err != nil {
		return fmt.Errorf("failed to pause project: %w", err)
	}

	return nil
}

func (r *projectRepository) Unpause(ctx context.Context, id string) error {
	projectID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid project ID: %w", err)
	}

	if err := r.db.WithContext(ctx).Model(&ProjectModel{}).Where("id = ?", projectID).Update("is_paused", false).Error; err != nil {
		return fmt.Errorf("failed to unpause project: %w", err)
	}

	return nil
}
