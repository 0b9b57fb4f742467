// Package runservice drives one SimulationRun end to end: it builds the
// Project's DAG, hands it to internal/orchestrator, serializes the
// merged aggregate state into the spec §6 Result shape, and persists
// both the run's terminal state and its per-task criticality/sensitivity
// rows. It is the place pkg/api/handlers goes through to "actually run
// the simulation" (cmd/forecast calls internal/orchestrator directly and
// does not use this package), adapted from the teacher's
// executor.LocalExecutor, which dag_run_handler drove task execution
// through.
package runservice

import (
	"context"
	"fmt"
	"time"

	"github.com/forecastry/montecarlo/internal/circuitbreaker"
	"github.com/forecastry/montecarlo/internal/dag"
	"github.com/forecastry/montecarlo/internal/dlq"
	"github.com/forecastry/montecarlo/internal/errorhandling"
	"github.com/forecastry/montecarlo/internal/orchestrator"
	"github.com/forecastry/montecarlo/internal/retry"
	"github.com/forecastry/montecarlo/internal/serialize"
	"github.com/forecastry/montecarlo/internal/storage"
	"github.com/forecastry/montecarlo/pkg/models"
)

// Service executes simulation runs against the persisted Project and
// SimulationRun repositories.
type Service struct {
	projectRepo     storage.ProjectRepository
	runRepo         storage.SimulationRunRepository
	criticalityRepo storage.CriticalityRepository
	errHandler      *errorhandling.Handler

	// storageBreaker and storageRetry wrap every repository call this
	// service makes: a storage write retries with backoff on transient
	// failure, and repeated failures trip the breaker so a struggling
	// database stops being hammered mid-incident.
	storageBreaker *circuitbreaker.CircuitBreaker
	storageRetry   *retry.Executor

	// dlqManager parks a trial batch that aborted with a NumericOverflow
	// runtime error for operator inspection instead of letting it vanish
	// with the error (spec §7).
	dlqManager *dlq.Manager
}

// New creates a run service. errHandler may be nil, in which case
// HandleRunOutcome's callbacks are simply skipped.
func New(
	projectRepo storage.ProjectRepository,
	runRepo storage.SimulationRunRepository,
	criticalityRepo storage.CriticalityRepository,
	errHandler *errorhandling.Handler,
) *Service {
	if errHandler == nil {
		errHandler = errorhandling.New(&errorhandling.Config{})
	}
	return &Service{
		projectRepo:     projectRepo,
		runRepo:         runRepo,
		criticalityRepo: criticalityRepo,
		errHandler:      errHandler,
		storageBreaker:  circuitbreaker.New(circuitbreaker.DefaultConfig()),
		storageRetry:    retry.NewExecutor(retry.DefaultConfig()),
		dlqManager:      dlq.NewManager(dlq.NewMemoryQueue(), 0),
	}
}

// withStorage runs fn (a single repository call) through the retry
// executor's backoff and then the circuit breaker, so a transient
// storage failure is retried before the breaker ever sees it, and a
// persistently failing database trips the breaker instead of retrying
// forever.
func (s *Service) withStorage(ctx context.Context, fn func() error) error {
	return s.storageBreaker.Execute(ctx, func() error {
		return s.storageRetry.Execute(ctx, fn)
	})
}

// Execute runs run.ID's simulation to completion (or until ctx is
// cancelled, or until a fatal runtime error aborts it), persisting the
// outcome as it goes. It never returns a partial Result as an error:
// per spec §7, cancellation yields a Result with meta.partial=true, not
// an error.
func (s *Service) Execute(ctx context.Context, run *models.SimulationRun) (*serialize.Result, error) {
	var project *models.Project
	if err := s.withStorage(ctx, func() error {
		var getErr error
		project, getErr = s.projectRepo.Get(ctx, run.ProjectID)
		return getErr
	}); err != nil {
		return nil, s.fail(ctx, run, fmt.Errorf("failed to load project: %w", err))
	}

	d, err := dag.Build(project.Tasks)
	if err != nil {
		return nil, s.fail(ctx, run, err)
	}

	now := time.Now()
	run.StartDate = &now
	if err := s.withStorage(ctx, func() error {
		return s.runRepo.UpdateState(ctx, run.ID, models.StateQueued, models.StateRunning)
	}); err != nil {
		return nil, fmt.Errorf("failed to mark run running: %w", err)
	}
	run.State = models.StateRunning

	orchResult, err := orchestrator.Run(ctx, d, run.Config, func(workerIndex int, subSeed uint64, overflowErr error) {
		_ = s.dlqManager.AddFailedBatch(ctx, run.ID, run.ProjectID, workerIndex, subSeed, overflowErr)
	})
	if err != nil {
		return nil, s.fail(ctx, run, err)
	}

	result := serialize.FromOrchestratorResult(orchResult)

	if err := s.persistCriticality(ctx, run.ID, result); err != nil {
		return nil, fmt.Errorf("failed to persist criticality rows: %w", err)
	}

	endDate := time.Now()
	run.EndDate = &endDate
	run.TrialsRun = result.Meta.NTrialsCompleted

	if result.Meta.Partial {
		run.State = models.StatePartiallyCompleted
		if _, err := s.errHandler.HandleRunOutcome(ctx, run, true, nil); err != nil {
			return nil, err
		}
	} else {
		run.State = models.StateSucceeded
		if _, err := s.errHandler.HandleRunOutcome(ctx, run, false, nil); err != nil {
			return nil, err
		}
	}

	if err := s.withStorage(ctx, func() error {
		return s.runRepo.Update(ctx, run)
	}); err != nil {
		return nil, fmt.Errorf("failed to persist run outcome: %w", err)
	}

	return result, nil
}

// fail transitions run to Failed, records the error message, and routes
// the error through the error-handling taxonomy before returning it.
func (s *Service) fail(ctx context.Context, run *models.SimulationRun, cause error) error {
	run.ErrorMessage = cause.Error()
	endDate := time.Now()
	run.EndDate = &endDate
	run.State = models.StateFailed

	_, _ = s.errHandler.HandleRunOutcome(ctx, run, false, cause)

	if err := s.withStorage(ctx, func() error {
		return s.runRepo.Update(ctx, run)
	}); err != nil {
		return fmt.Errorf("run failed (%v) and could not be persisted: %w", cause, err)
	}
	return cause
}

// persistCriticality merges task_criticality[] and sensitivity[] by
// task ID into storage.TaskCriticalityRow and writes them in one batch.
func (s *Service) persistCriticality(ctx context.Context, runID string, result *serialize.Result) error {
	if s.criticalityRepo == nil {
		return nil
	}

	sensByID := make(map[string]serialize.Sensitivity, len(result.Sensitivity))
	for _, sv := range result.Sensitivity {
		sensByID[sv.ID] = sv
	}

	rows := make([]storage.TaskCriticalityRow, 0, len(result.TaskCriticality))
	for _, tc := range result.TaskCriticality {
		row := storage.TaskCriticalityRow{
			TaskID:         tc.ID,
			Name:           tc.Name,
			Category:       tc.Category,
			CriticalityPct: tc.CriticalityPct,
		}
		if sv, ok := sensByID[tc.ID]; ok {
			row.ImpactScore = sv.ImpactScore
			row.Correlation = sv.Correlation
			row.Variance = sv.Variance
		}
		rows = append(rows, row)
	}

	return s.withStorage(ctx, func() error {
		return s.criticalityRepo.CreateBatch(ctx, runID, rows)
	})
}
