package storage

import (
	"context"
	"time"

	"github.com/forecastry/montecarlo/pkg/models"
)

// ProjectRepository defines the interface for Project persistence
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	Get(ctx context.Context, id string) (*models.Project, error)
	GetByName(ctx context.Context, name string) (*models.Project, error)
	List(ctx context.Context, filters ProjectFilters) ([]*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id string) error
	Pause(ctx context.Context, id string) error
	Unpause(ctx context.Context, id string) error
}

// ProjectFilters defines filters for listing Projects
type ProjectFilters struct {
	IsPaused *bool
	Tags     []string
	Limit    int
	Offset   int
}

// SimulationRunRepository defines the interface for SimulationRun persistence
type SimulationRunRepository interface {
	Create(ctx context.Context, run *models.SimulationRun) error
	Get(ctx context.Context, id string) (*models.SimulationRun, error)
	List(ctx context.Context, filters SimulationRunFilters) ([]*models.SimulationRun, error)
	Update(ctx context.Context, run *models.SimulationRun) error
	UpdateState(ctx context.Context, id string, oldState, newState models.State) error
	Delete(ctx context.Context, id string) error
	GetLatestRun(ctx context.Context, projectID string) (*models.SimulationRun, error)
	GetByScheduledAt(ctx context.Context, projectID string, scheduledAt time.Time) (*models.SimulationRun, error)
}

// SimulationRunFilters defines filters for listing SimulationRuns
type SimulationRunFilters struct {
	ProjectID string
	State     *models.State
	After     *time.Time
	Before    *time.Time
	Limit     int
	Offset    int
}

// CriticalityRepository defines the interface for per-task criticality
// and sensitivity persistence
type CriticalityRepository interface {
	CreateBatch(ctx context.Context, simulationRunID string, rows []TaskCriticalityRow) error
	ListByRun(ctx context.Context, simulationRunID string) ([]TaskCriticalityRow, error)
	DeleteByRun(ctx context.Context, simulationRunID string) error
}
