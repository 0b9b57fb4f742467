package dto

import "github.com/forecastry/montecarlo/internal/storage"

// TaskCriticalityResponse represents one task_criticality[]/sensitivity[]
// row for a completed SimulationRun.
type TaskCriticalityResponse struct {
	TaskID         string  `json:"task_id"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	CriticalityPct float64 `json:"criticality_pct"`
	ImpactScore    float64 `json:"impact_score"`
	Correlation    float64 `json:"correlation"`
	Variance       float64 `json:"variance"`
}

// TaskCriticalityListResponse represents every row for one SimulationRun.
type TaskCriticalityListResponse struct {
	SimulationRunID string                     `json:"simulation_run_id"`
	Rows            []TaskCriticalityResponse `json:"rows"`
}

// ToTaskCriticalityResponse converts a storage.TaskCriticalityRow to a
// TaskCriticalityResponse.
func ToTaskCriticalityResponse(r storage.TaskCriticalityRow) TaskCriticalityResponse {
	return TaskCriticalityResponse{
		TaskID:         r.TaskID,
		Name:           r.Name,
		Category:       r.Category,
		CriticalityPct: r.CriticalityPct,
		ImpactScore:    r.ImpactScore,
		Correlation:    r.Correlation,
		Variance:       r.Variance,
	}
}
