package dto

import (
	"time"

	"github.com/forecastry/montecarlo/internal/serialize"
	"github.com/forecastry/montecarlo/pkg/models"
)

// TriggerRunRequest represents the request to manually trigger a
// re-forecast of a Project.
type TriggerRunRequest struct {
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`
	Config      *ConfigRequest `json:"config,omitempty"`
}

// ConfigRequest is the request-body shape of a simulation Config
// override; every field is optional and falls back to
// models.DefaultConfig().
type ConfigRequest struct {
	SimulationRuns   int       `json:"simulation_runs,omitempty" validate:"omitempty,min=1"`
	ConfidenceLevels []float64 `json:"confidence_levels,omitempty"`
	Seed             *int64    `json:"seed,omitempty"`
	Workers          int       `json:"workers,omitempty" validate:"omitempty,min=0"`
	DistributedMode  bool      `json:"distributed_mode,omitempty"`
}

// ToConfig converts a ConfigRequest onto models.DefaultConfig(), only
// overriding fields the caller actually set.
func (r *ConfigRequest) ToConfig() models.Config {
	cfg := models.DefaultConfig()
	if r == nil {
		return cfg
	}
	if r.SimulationRuns > 0 {
		cfg.SimulationRuns = r.SimulationRuns
	}
	if len(r.ConfidenceLevels) > 0 {
		cfg.ConfidenceLevels = r.ConfidenceLevels
	}
	if r.Seed != nil {
		cfg.Seed = r.Seed
	}
	if r.Workers > 0 {
		cfg.Workers = r.Workers
	}
	cfg.DistributedMode = r.DistributedMode
	return cfg
}

// SimulationRunResponse represents the response for a SimulationRun.
type SimulationRunResponse struct {
	ID              string     `json:"id"`
	ProjectID       string     `json:"project_id"`
	State           string     `json:"state"`
	Config          models.Config `json:"config"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	TrialsRun       int        `json:"trials_run"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	ExternalTrigger bool       `json:"external_trigger"`
}

// SimulationRunListResponse represents a paginated list of
// SimulationRuns.
type SimulationRunListResponse struct {
	Runs       []SimulationRunResponse `json:"runs"`
	Pagination PaginationMeta          `json:"pagination"`
}

// SimulationRunDetailResponse represents a SimulationRun together with
// an optional Result. GetRun does not set Result and no Result is
// persisted, so the field is omitted from its responses.
type SimulationRunDetailResponse struct {
	SimulationRunResponse
	Result *serialize.Result `json:"result,omitempty"`
}

// ToSimulationRunResponse converts a models.SimulationRun to a
// SimulationRunResponse.
func ToSimulationRunResponse(run *models.SimulationRun) SimulationRunResponse {
	return SimulationRunResponse{
		ID:              run.ID,
		ProjectID:       run.ProjectID,
		State:           string(run.State),
		Config:          run.Config,
		StartDate:       run.StartDate,
		EndDate:         run.EndDate,
		ScheduledAt:     run.ScheduledAt,
		TrialsRun:       run.TrialsRun,
		ErrorMessage:    run.ErrorMessage,
		ExternalTrigger: run.ExternalTrigger,
	}
}
