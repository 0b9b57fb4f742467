package storage

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/forecastry/montecarlo/pkg/models"
)

// JSONB is a custom type for JSONB columns
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, j)
}

// StringArray is a custom type for string array columns
type StringArray []string

// Value implements the driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, s)
}

// TaskArray is a custom type for the Tasks column, holding a Project's
// immutable authoring data. Tasks never need a relational query of their
// own (nothing filters or joins on a single task across projects), so
// they're stored as one JSONB blob alongside the project rather than
// broken out into a child table.
type TaskArray []models.Task

// Value implements the driver.Valuer interface
func (t TaskArray) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

// Scan implements the sql.Scanner interface
func (t *TaskArray) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, t)
}

// ProjectModel represents the database model for a Project.
type ProjectModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Name        string      `gorm:"type:varchar(255);unique;not null;index:idx_projects_name"`
	Description string      `gorm:"type:text"`
	Tasks       TaskArray   `gorm:"type:jsonb;not null;default:'[]'"`
	Tags        StringArray `gorm:"type:jsonb;default:'[]'"`
	Schedule    string      `gorm:"type:varchar(100)"`
	IsPaused    bool        `gorm:"default:false;index:idx_projects_is_paused"`
	CreatedAt   time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for ProjectModel
func (ProjectModel) TableName() string {
	return "projects"
}

// SimulationRunModel represents the database model for a SimulationRun.
type SimulationRunModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	ProjectID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_simulation_runs_project_id"`
	State           string     `gorm:"type:varchar(50);not null;default:'queued';index:idx_simulation_runs_state"`
	Config          JSONB      `gorm:"type:jsonb;default:'{}'"`
	StartDate       *time.Time
	EndDate         *time.Time
	ScheduledAt     *time.Time `gorm:"index:idx_simulation_runs_scheduled_at"`
	TrialsRun       int    `gorm:"not null;default:0"`
	ErrorMessage    string `gorm:"type:text"`
	ExternalTrigger bool   `gorm:"default:false"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_simulation_runs_created_at"`
	UpdatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	Version         int       `gorm:"not null;default:1"` // For optimistic locking

	// Relationships
	Project         ProjectModel           `gorm:"foreignKey:ProjectID"`
	TaskCriticality []TaskCriticalityModel `gorm:"foreignKey:SimulationRunID"`
}

// TableName specifies the table name for SimulationRunModel
func (SimulationRunModel) TableName() string {
	return "simulation_runs"
}

// TaskCriticalityModel represents one task's criticality and sensitivity
// statistics for a single SimulationRun — the forecasting analogue of
// the teacher's per-execution TaskInstanceModel, one row per task per
// run rather than one row per task attempt.
type TaskCriticalityModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	SimulationRunID uuid.UUID `gorm:"type:uuid;not null;index:idx_task_criticality_run_id"`
	TaskID          string    `gorm:"type:varchar(255);not null;index:idx_task_criticality_task_id"`
	Name            string    `gorm:"type:varchar(255);not null"`
	Category        string    `gorm:"type:varchar(100)"`
	CriticalityPct  float64   `gorm:"not null"`
	ImpactScore     float64   `gorm:"not null"`
	Correlation     float64   `gorm:"not null"`
	Variance        float64   `gorm:"not null"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_task_criticality_created_at"`

	// Relationships
	SimulationRun SimulationRunModel `gorm:"foreignKey:SimulationRunID"`
}

// TableName specifies the table name for TaskCriticalityModel
func (TaskCriticalityModel) TableName() string {
	return "task_criticality"
}

// ToProject converts a ProjectModel to a models.Project
func (p *ProjectModel) ToProject() *models.Project {
	return &models.Project{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Tasks:       []models.Task(p.Tasks),
		Tags:        []string(p.Tags),
		Schedule:    p.Schedule,
		IsPaused:    p.IsPaused,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// FromProject converts a models.Project to a ProjectModel
func FromProject(p *models.Project) (*ProjectModel, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		id = uuid.New()
	}

	return &ProjectModel{
		ID:          id,
		Name:        p.Name,
		Description: p.Description,
		Tasks:       TaskArray(p.Tasks),
		Tags:        StringArray(p.Tags),
		Schedule:    p.Schedule,
		IsPaused:    p.IsPaused,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

// ToSimulationRun converts a SimulationRunModel to a models.SimulationRun
func (sr *SimulationRunModel) ToSimulationRun() (*models.SimulationRun, error) {
	var cfg models.Config
	if len(sr.Config) > 0 {
		data, err := json.Marshal(sr.Config)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	return &models.SimulationRun{
		ID:              sr.ID.String(),
		ProjectID:       sr.ProjectID.String(),
		State:           models.State(sr.State),
		Config:          cfg,
		StartDate:       sr.StartDate,
		EndDate:         sr.EndDate,
		ScheduledAt:     sr.ScheduledAt,
		TrialsRun:       sr.TrialsRun,
		ErrorMessage:    sr.ErrorMessage,
		ExternalTrigger: sr.ExternalTrigger,
	}, nil
}

// FromSimulationRun converts a models.SimulationRun to a SimulationRunModel
func FromSimulationRun(sr *models.SimulationRun) (*SimulationRunModel, error) {
	id, err := uuid.Parse(sr.ID)
	if err != nil {
		id = uuid.New()
	}

	projectID, err := uuid.Parse(sr.ProjectID)
	if err != nil {
		return nil, err
	}

	cfgBytes, err := json.Marshal(sr.Config)
	if err != nil {
		return nil, err
	}
	var cfgMap JSONB
	if err := json.Unmarshal(cfgBytes, &cfgMap); err != nil {
		return nil, err
	}

	return &SimulationRunModel{
		ID:              id,
		ProjectID:       projectID,
		State:           string(sr.State),
		Config:          cfgMap,
		StartDate:       sr.StartDate,
		EndDate:         sr.EndDate,
		ScheduledAt:     sr.ScheduledAt,
		TrialsRun:       sr.TrialsRun,
		ErrorMessage:    sr.ErrorMessage,
		ExternalTrigger: sr.ExternalTrigger,
		Version:         1,
	}, nil
}

// TaskCriticalityRow is the plain-Go shape of a TaskCriticalityModel,
// used by callers that don't want to depend on storage's uuid columns.
type TaskCriticalityRow struct {
	TaskID         string
	Name           string
	Category       string
	CriticalityPct float64
	ImpactScore    float64
	Correlation    float64
	Variance       float64
}

// ToRow converts a TaskCriticalityModel to a TaskCriticalityRow
func (tc *TaskCriticalityModel) ToRow() TaskCriticalityRow {
	return TaskCriticalityRow{
		TaskID:         tc.TaskID,
		Name:           tc.Name,
		Category:       tc.Category,
		CriticalityPct: tc.CriticalityPct,
		ImpactScore:    tc.ImpactScore,
		Correlation:    tc.Correlation,
		Variance:       tc.Variance,
	}
}

// FromRow converts a TaskCriticalityRow for a given SimulationRun into a
// TaskCriticalityModel
func FromRow(runID uuid.UUID, r TaskCriticalityRow) TaskCriticalityModel {
	return TaskCriticalityModel{
		SimulationRunID: runID,
		TaskID:          r.TaskID,
		Name:            r.Name,
		Category:        r.Category,
		CriticalityPct:  r.CriticalityPct,
		ImpactScore:     r.ImpactScore,
		Correlation:     r.Correlation,
		Variance:        r.Variance,
	}
}
