package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/forecastry/montecarlo/internal/storage"
	"github.com/forecastry/montecarlo/pkg/models"
)

// ReforecastConfig holds configuration for historical backfill of missed
// re-forecast slots.
type ReforecastConfig struct {
	// MaxConcurrency is the maximum number of concurrent backfill runs.
	MaxConcurrency int

	// DryRun if true, will not create actual simulation runs.
	DryRun bool

	// ReprocessFailed if true, will recreate failed runs.
	ReprocessFailed bool

	// ReprocessSuccessful if true, will recreate succeeded runs.
	ReprocessSuccessful bool
}

// ReforecastEngine backfills simulation runs for missed or historical
// scheduled slots of a project, mirroring the teacher's DAG backfill
// engine against the SimulationRun/ScheduledAt model.
type ReforecastEngine struct {
	projectRepo   storage.ProjectRepository
	runRepo       storage.SimulationRunRepository
	cronScheduler *CronScheduler
	config        *ReforecastConfig
	ctx           context.Context
}

// NewReforecastEngine creates a new reforecast backfill engine.
func NewReforecastEngine(
	ctx context.Context,
	projectRepo storage.ProjectRepository,
	runRepo storage.SimulationRunRepository,
	cronScheduler *CronScheduler,
	config *ReforecastConfig,
) *ReforecastEngine {
	if config == nil {
		config = &ReforecastConfig{
			MaxConcurrency:      5,
			DryRun:              false,
			ReprocessFailed:     false,
			ReprocessSuccessful: false,
		}
	}

	return &ReforecastEngine{
		projectRepo:   projectRepo,
		runRepo:       runRepo,
		cronScheduler: cronScheduler,
		config:        config,
		ctx:           ctx,
	}
}

// ReforecastRequest represents a request to backfill simulation runs for
// a project over a date range.
type ReforecastRequest struct {
	ProjectID string
	StartDate time.Time
	EndDate   time.Time
}

// ReforecastResult represents the result of a backfill operation.
type ReforecastResult struct {
	ProjectID      string
	TotalSlots     int
	CreatedRuns    int
	SkippedRuns    int
	FailedRuns     int
	ScheduledSlots []time.Time
	Errors         []error
	Duration       time.Duration
}

// Backfill creates simulation runs for every scheduled slot a project
// missed between req.StartDate and req.EndDate.
func (re *ReforecastEngine) Backfill(req ReforecastRequest) (*ReforecastResult, error) {
	startTime := time.Now()

	log.Printf("starting reforecast backfill for project %s from %v to %v", req.ProjectID, req.StartDate, req.EndDate)

	project, err := re.projectRepo.Get(re.ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if project.Schedule == "" {
		return nil, fmt.Errorf("project %s has no schedule defined", project.Name)
	}

	slots, err := re.cronScheduler.MissedExecutions(project.Schedule, req.StartDate, req.EndDate, 1000)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate scheduled slots: %w", err)
	}

	if len(slots) == 0 {
		log.Printf("no scheduled slots found for backfill period")
		return &ReforecastResult{
			ProjectID:  req.ProjectID,
			TotalSlots: 0,
			Duration:   time.Since(startTime),
		}, nil
	}

	log.Printf("found %d scheduled slots for backfill", len(slots))

	result := &ReforecastResult{
		ProjectID:      req.ProjectID,
		TotalSlots:     len(slots),
		ScheduledSlots: slots,
	}

	if err := re.processBackfillWithConcurrency(project, slots, result); err != nil {
		return result, err
	}

	result.Duration = time.Since(startTime)
	log.Printf("reforecast backfill completed: created=%d, skipped=%d, failed=%d, duration=%v",
		result.CreatedRuns, result.SkippedRuns, result.FailedRuns, result.Duration)

	return result, nil
}

// processBackfillWithConcurrency creates backfill runs with bounded concurrency.
func (re *ReforecastEngine) processBackfillWithConcurrency(project *models.Project, slots []time.Time, result *ReforecastResult) error {
	sem := make(chan struct{}, re.config.MaxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for _, slot := range slots {
		wg.Add(1)
		sem <- struct{}{}

		go func(scheduledAt time.Time) {
			defer wg.Done()
			defer func() { <-sem }()

			created, err := re.createBackfillRun(project, scheduledAt)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				result.FailedRuns++
				result.Errors = append(result.Errors, err)
				errs = append(errs, err)
			} else if created {
				result.CreatedRuns++
			} else {
				result.SkippedRuns++
			}
		}(slot)
	}

	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("reforecast backfill completed with %d errors", len(errs))
	}

	return nil
}

// createBackfillRun creates a single backfill simulation run for a
// scheduled slot, reprocessing an existing run for that slot only when
// configured to do so.
func (re *ReforecastEngine) createBackfillRun(project *models.Project, scheduledAt time.Time) (bool, error) {
	existing, err := re.runRepo.GetByScheduledAt(re.ctx, project.ID, scheduledAt)
	if err != nil && err != storage.ErrNotFound {
		return false, fmt.Errorf("failed to check existing run: %w", err)
	}

	if existing != nil {
		shouldReprocess := false

		if existing.State == models.StateFailed && re.config.ReprocessFailed {
			shouldReprocess = true
		} else if (existing.State == models.StateSucceeded || existing.State == models.StatePartiallyCompleted) && re.config.ReprocessSuccessful {
			shouldReprocess = true
		}

		if !shouldReprocess {
			log.Printf("skipping existing run for %v (state: %s)", scheduledAt, existing.State)
			return false, nil
		}

		if err := re.runRepo.Delete(re.ctx, existing.ID); err != nil {
			return false, fmt.Errorf("failed to delete existing run: %w", err)
		}
		log.Printf("deleted existing run for reprocessing: %s", existing.ID)
	}

	if re.config.DryRun {
		log.Printf("[dry run] would create simulation run for %s at %v", project.Name, scheduledAt)
		return true, nil
	}

	run := &models.SimulationRun{
		ID:              uuid.New().String(),
		ProjectID:       project.ID,
		State:           models.StateQueued,
		Config:          models.DefaultConfig(),
		ScheduledAt:     &scheduledAt,
		ExternalTrigger: false, // backfill runs are not external triggers
	}

	if err := re.runRepo.Create(re.ctx, run); err != nil {
		return false, fmt.Errorf("failed to create simulation run: %w", err)
	}

	log.Printf("created backfill run: %s for scheduled slot %v", run.ID, scheduledAt)
	return true, nil
}

// ValidateReforecastRequest validates a backfill request.
func (re *ReforecastEngine) ValidateReforecastRequest(req ReforecastRequest) error {
	if req.ProjectID == "" {
		return fmt.Errorf("project ID is required")
	}

	if req.StartDate.IsZero() {
		return fmt.Errorf("start date is required")
	}

	if req.EndDate.IsZero() {
		return fmt.Errorf("end date is required")
	}

	if req.EndDate.Before(req.StartDate) {
		return fmt.Errorf("end date must be after start date")
	}

	project, err := re.projectRepo.Get(re.ctx, req.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to get project: %w", err)
	}

	if project.Schedule == "" {
		return fmt.Errorf("project has no schedule defined")
	}

	return nil
}
