package models

import "time"

// Task is a single estimated unit of work in a Project.
//
// A Task is immutable once a Project has been built from it: the DAG
// builder resolves Predecessors into indices and computes a topological
// order, and nothing downstream of that mutates the Task itself.
type Task struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Predecessors []string `json:"predecessors"`
	Optimistic   float64  `json:"optimistic"`
	MostLikely   float64  `json:"most_likely"`
	Pessimistic  float64  `json:"pessimistic"`
	Resources    string   `json:"resources,omitempty"`
}

// Project is a set of Tasks plus the total order in which they satisfy
// their dependency edges. Project is built once by internal/dag and is
// read-only for the remainder of a simulation run's lifetime.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tasks       []Task    `json:"tasks"`
	Tags        []string  `json:"tags"`
	// Schedule is an optional cron expression driving automatic
	// re-forecasting as estimates are revised (internal/scheduler). Empty
	// means the project is only simulated on demand.
	Schedule  string `json:"schedule,omitempty"`
	IsPaused  bool   `json:"is_paused"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State represents the execution state of a SimulationRun.
type State string

const (
	StateQueued             State = "queued"
	StateRunning            State = "running"
	StateSucceeded          State = "succeeded"
	StatePartiallyCompleted State = "partially_completed"
	StateFailed             State = "failed"
)

// IsTerminal returns true if the state is a terminal state (no further
// transitions are possible).
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StatePartiallyCompleted || s == StateFailed
}

// SimulationRun is a single invocation of the Monte Carlo core over one
// Project with one Config. It is the forecasting analogue of the
// teacher's DAGRun.
type SimulationRun struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"project_id"`
	State     State      `json:"state"`
	Config    Config     `json:"config"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	// ScheduledAt is set only for a run created by a cron-triggered
	// re-forecast or a reforecast backfill; it identifies which
	// scheduled slot this run satisfies, so a crash-and-restart doesn't
	// create a duplicate run for the same slot. Nil for ad hoc runs.
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	TrialsRun       int        `json:"trials_run"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	ExternalTrigger bool       `json:"external_trigger"`
}

// Config is the hierarchical simulation configuration of spec §6.
type Config struct {
	SimulationRuns   int       `json:"simulation_runs" yaml:"simulation_runs"`
	ConfidenceLevels []float64 `json:"confidence_levels" yaml:"confidence_levels"`
	Seed             *int64    `json:"seed,omitempty" yaml:"seed,omitempty"`
	Workers          int       `json:"workers" yaml:"workers"`
	DistributedMode  bool      `json:"distributed_mode" yaml:"distributed_mode"`
}

// DefaultConfig returns a Config with the defaults spec.md §6 names.
func DefaultConfig() Config {
	return Config{
		SimulationRuns:   10000,
		ConfidenceLevels: []float64{0.8, 0.9, 0.95},
		Workers:          0, // 0 means "implementation-defined, typically CPU count"
	}
}
