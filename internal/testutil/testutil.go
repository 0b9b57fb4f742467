package testutil

import (
	"time"

	"github.com/forecastry/montecarlo/internal/serialize"
	"github.com/forecastry/montecarlo/pkg/models"
)

// CreateTestProject creates a simple single-task Project for testing.
func CreateTestProject(name string) *models.Project {
	now := time.Now()
	return &models.Project{
		ID:          "project-" + name,
		Name:        name,
		Description: "test project: " + name,
		Tasks: []models.Task{
			CreateTestTask("task1", "Task 1", nil),
		},
		Tags:      []string{"test"},
		IsPaused:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestProjectWithDependencies creates a Project with a small
// diamond-shaped dependency graph: task1 -> {task2, task3} -> task4.
func CreateTestProjectWithDependencies(name string) *models.Project {
	now := time.Now()
	return &models.Project{
		ID:          "project-" + name,
		Name:        name,
		Description: "test project with dependencies: " + name,
		Tasks: []models.Task{
			CreateTestTask("task1", "Task 1", nil),
			CreateTestTask("task2", "Task 2", []string{"task1"}),
			CreateTestTask("task3", "Task 3", []string{"task1"}),
			CreateTestTask("task4", "Task 4", []string{"task2", "task3"}),
		},
		Tags:      []string{"test", "complex"},
		IsPaused:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestTask creates a three-point-estimate task for testing, with
// Optimistic/MostLikely/Pessimistic set to a small, valid spread.
func CreateTestTask(id, name string, predecessors []string) models.Task {
	return models.Task{
		ID:           id,
		Name:         name,
		Category:     "default",
		Predecessors: predecessors,
		Optimistic:   1,
		MostLikely:   2,
		Pessimistic:  4,
	}
}

// CreateTestSimulationRun creates a SimulationRun for testing.
func CreateTestSimulationRun(projectID string, state models.State) *models.SimulationRun {
	now := time.Now()
	return &models.SimulationRun{
		ID:              "run-" + projectID,
		ProjectID:       projectID,
		State:           state,
		Config:          models.DefaultConfig(),
		StartDate:       &now,
		ExternalTrigger: false,
	}
}

// CreateTestCriticalityRow creates a task_criticality[] row for testing.
func CreateTestCriticalityRow(taskID, name string, criticalityPct float64) serialize.TaskCriticality {
	return serialize.TaskCriticality{
		ID:             taskID,
		Name:           name,
		Category:       "default",
		CriticalityPct: criticalityPct,
	}
}
