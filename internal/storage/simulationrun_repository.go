package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/forecastry/montecarlo/internal/state"
	"github.com/forecastry/montecarlo/pkg/models"
	"gorm.io/gorm"
)

type simulationRunRepository struct {
	db           *gorm.DB
	stateManager *state.Manager
}

// NewSimulationRunRepository creates a new SimulationRun repository
func NewSimulationRunRepository(db *gorm.DB, stateManager *state.Manager) SimulationRunRepository {
	return &simulationRunRepository{
		db:           db,
		stateManager: stateManager,
	}
}

func (r *simulationRunRepository) Create(ctx context.Context, run *models.SimulationRun) error {
	model, err := FromSimulationRun(run)
	if err != nil {
		return fmt.Errorf("failed to convert simulation run to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create simulation run: %w", err)
	}

	run.ID = model.ID.String()

	return nil
}

func (r *simulationRunRepository) Get(ctx context.Context, id string) (*models.SimulationRun, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid simulation run ID: %w", err)
	}

	var model SimulationRunModel
	if err := r.db.WithContext(ctx).Where("id = ?", runID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("simulation run not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get simulation run: %w", err)
	}

	return model.ToSimulationRun()
}

func (r *simulationRunRepository) List(ctx context.Context, filters SimulationRunFilters) ([]*models.SimulationRun, error) {
	query := r.db.WithContext(ctx).Model(&SimulationRunModel{})

	if filters.ProjectID != "" {
		projectID, err := uuid.Parse(filters.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("invalid project ID: %w", err)
		}
		query = query.Where("project_id = ?", projectID)
	}

	if filters.State != nil {
		query = query.Where("state = ?", string(*filters.State))
	}

	if filters.After != nil {
		query = query.Where("created_at > ?", *filters.After)
	}

	if filters.Before != nil {
		query = query.Where("created_at < ?", *filters.Before)
	}

	query = query.Order("created_at DESC")

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}

	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var runModels []SimulationRunModel
	if err := query.Find(&runModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list simulation runs: %w", err)
	}

	runs := make([]*models.SimulationRun, len(runModels))
	for i, model := range runModels {
		run, err := model.ToSimulationRun()
		if err != nil {
			return nil, fmt.Errorf("failed to convert simulation run: %w", err)
		}
		runs[i] = run
	}

	return runs, nil
}

func (r *simulationRunRepository) Update(ctx context.Context, run *models.SimulationRun) error {
	runID, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("invalid simulation run ID: %w", err)
	}

	model, err := FromSimulationRun(run)
	if err != nil {
		return fmt.Errorf("failed to convert simulation run to model: %w", err)
	}

	model.ID = runID

	if err := r.db.WithContext(ctx).Model(&SimulationRunModel{}).Where("id = ?", runID).Updates(model).Error; err != nil {
		return fmt.Errorf("failed to update simulation run: %w", err)
	}

	return nil
}

func (r *simulationRunRepository) UpdateState(ctx context.Context, id string, oldState, newState models.State) error {
	runID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid simulation run ID: %w", err)
	}

	if err := r.stateManager.Transition("simulation_run", id, oldState, newState, nil); err != nil {
		return fmt.Errorf("invalid state transition: %w", err)
	}

	// Use optimistic locking to prevent concurrent updates
	result := r.db.WithContext(ctx).
		Model(&SimulationRunModel{}).
		Where("id = ? AND state = ?", runID, string(oldState)).
		Updates(map[string]interface{}{
			"state":   string(newState),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update simulation run state: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return state.ErrOptimisticLock
	}

	return nil
}

func (r *simulationRunRepository) Delete(ctx context.Context, id string) error {
	runID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid simulation run ID: %w", err)
	}

	if err := r.db.WithContext(ctx).Delete(&SimulationRunModel{}, "id = ?", runID).Error; err != nil {
		return fmt.Errorf("failed to delete simulation run: %w", err)
	}

	return nil
}

func (r *simulationRunRepository) GetLatestRun(ctx context.Context, projectID string) (*models.SimulationRun, error) {
	projectUUID, err := uuid.Parse(projectID)
	if err != nil {
		return nil, fmt.Errorf("invalid project ID: %w", err)
	}

	var model SimulationRunModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectUUID).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest simulation run: %w", err)
	}

	return model.ToSimulationRun()
}

// GetByScheduledAt looks up the run already created for a given
// scheduled slot, letting a restarted scheduler avoid creating a
// duplicate run for the same cron tick.
func (r *simulationRunRepository) GetByScheduledAt(ctx context.Context, projectID string, scheduledAt time.Time) (*models.SimulationRun, error) {
	projectUUID, err := uuid.Parse(projectID)
	if err != nil {
		return nil, fmt.Errorf("invalid project ID: %w", err)
	}

	var model SimulationRunModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND scheduled_at = ?", projectUUID, scheduledAt).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get simulation run by scheduled time: %w", err)
	}

	return model.ToSimulationRun()
}
