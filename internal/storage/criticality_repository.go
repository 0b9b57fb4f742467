package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type criticalityRepository struct {
	db *gorm.DB
}

// NewCriticalityRepository creates a new per-task criticality repository
func NewCriticalityRepository(db *gorm.DB) CriticalityRepository {
	return &criticalityRepository{db: db}
}

// CreateBatch persists every task's criticality/sensitivity row for one
// SimulationRun in a single insert, mirroring how internal/serialize
// produces the whole task_criticality[] table at once rather than
// incrementally the way a task-execution engine would.
func (r *criticalityRepository) CreateBatch(ctx context.Context, simulationRunID string, rows []TaskCriticalityRow) error {
	if len(rows) == 0 {
		return nil
	}

	runID, err := uuid.Parse(simulationRunID)
	if err != nil {
		return fmt.Errorf("invalid simulation run ID: %w", err)
	}

	models := make([]TaskCriticalityModel, len(rows))
	for i, row := range rows {
		models[i] = FromRow(runID, row)
	}

	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return fmt.Errorf("failed to create task criticality rows: %w", err)
	}

	return nil
}

func (r *criticalityRepository) ListByRun(ctx context.Context, simulationRunID string) ([]TaskCriticalityRow, error) {
	runID, err := uuid.Parse(simulationRunID)
	if err != nil {
		return nil, fmt.Errorf("invalid simulation run ID: %w", err)
	}

	var rowModels []TaskCriticalityModel
	if err := r.db.WithContext(ctx).
		Where("simulation_run_id = ?", runID).
		Order("criticality_pct DESC").
		Find(&rowModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list task criticality rows: %w", err)
	}

	rows := make([]TaskCriticalityRow, len(rowModels))
	for i, m := range rowModels {
		rows[i] = m.ToRow()
	}

	return rows, nil
}

func (r *criticalityRepository) DeleteByRun(ctx context.Context, simulationRunID string) error {
	runID, err := uuid.Parse(simulationRunID)
	if err != nil {
		return fmt.Errorf("invalid simulation run ID: %w", err)
	}

	if err := r.db.WithContext(ctx).Where("simulation_run_id = ?", runID).Delete(&TaskCriticalityModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete task criticality rows: %w", err)
	}

	return nil
}
