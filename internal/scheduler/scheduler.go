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

// Config holds scheduler configuration.
type Config struct {
	// ScheduleInterval is how often the scheduler drains the priority queue.
	ScheduleInterval time.Duration

	// MaxConcurrentRuns is the global limit for concurrent simulation runs.
	MaxConcurrentRuns int

	// DefaultTimezone is the default timezone for cron schedules.
	DefaultTimezone string

	// EnableCatchup enables creating runs for cron slots missed while the
	// scheduler was down.
	EnableCatchup bool

	// MaxCatchupRuns is the maximum number of catchup runs to create per
	// project on startup.
	MaxCatchupRuns int
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		ScheduleInterval:  10 * time.Second,
		MaxConcurrentRuns: 100,
		DefaultTimezone:   "UTC",
		EnableCatchup:     true,
		MaxCatchupRuns:    50,
	}
}

// Scheduler manages cron-driven re-forecast scheduling and queued
// simulation run dispatch.
type Scheduler struct {
	config         *Config
	projectRepo    storage.ProjectRepository
	runRepo        storage.SimulationRunRepository
	cronScheduler  *CronScheduler
	concurrencyMgr *ConcurrencyManager
	priorityQueue  *PriorityQueue
	mu             sync.RWMutex
	running        bool
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

// New creates a new Scheduler instance.
func New(
	config *Config,
	projectRepo storage.ProjectRepository,
	runRepo storage.SimulationRunRepository,
	concurrencyMgr *ConcurrencyManager,
) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		config:         config,
		projectRepo:    projectRepo,
		runRepo:        runRepo,
		concurrencyMgr: concurrencyMgr,
		priorityQueue:  NewPriorityQueue(),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Start begins the scheduler's operation.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	log.Println("starting scheduler...")

	location, err := time.LoadLocation(s.config.DefaultTimezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone: %w", err)
	}

	s.cronScheduler = NewCronScheduler(location, s.createScheduledRun)

	if err := s.loadAndRegisterProjects(); err != nil {
		return fmt.Errorf("failed to load projects: %w", err)
	}

	s.running = true

	s.wg.Add(1)
	go s.schedulingLoop()

	log.Println("scheduler started successfully")
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return fmt.Errorf("scheduler is not running")
	}

	log.Println("stopping scheduler...")

	s.cancel()

	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
	}

	s.wg.Wait()

	s.running = false
	log.Println("scheduler stopped successfully")
	return nil
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// TriggerProject manually triggers a re-forecast for a project.
func (s *Scheduler) TriggerProject(projectID string, scheduledAt time.Time) (*models.SimulationRun, error) {
	project, err := s.projectRepo.Get(s.ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if project.IsPaused {
		return nil, fmt.Errorf("cannot trigger paused project: %s", project.Name)
	}

	run := &models.SimulationRun{
		ID:              uuid.New().String(),
		ProjectID:       projectID,
		State:           models.StateQueued,
		Config:          models.DefaultConfig(),
		ExternalTrigger: true,
	}

	if err := s.runRepo.Create(s.ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create simulation run: %w", err)
	}

	s.priorityQueue.Push(&PriorityQueueItem{
		SimulationRunID: run.ID,
		ProjectID:       run.ProjectID,
		ScheduledAt:     scheduledAt,
		Priority:        PriorityHigh, // external triggers get high priority
		EnqueuedAt:      time.Now(),
	})

	log.Printf("manually triggered simulation run: %s (project: %s)", run.ID, project.Name)
	return run, nil
}

// schedulingLoop is the main loop that drains the priority queue.
func (s *Scheduler) schedulingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ScheduleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.processScheduledRuns()
		}
	}
}

// processScheduledRuns dispatches pending simulation runs from the
// priority queue, honoring global and per-project concurrency limits.
func (s *Scheduler) processScheduledRuns() {
	if !s.concurrencyMgr.CanScheduleGlobal() {
		log.Println("global concurrency limit reached, skipping scheduling")
		return
	}

	for {
		item := s.priorityQueue.Pop()
		if item == nil {
			break
		}

		if !s.concurrencyMgr.CanScheduleDAG(item.ProjectID) {
			s.priorityQueue.Push(item)
			break
		}

		if err := s.submitRun(item); err != nil {
			log.Printf("failed to submit simulation run %s: %v", item.SimulationRunID, err)
			continue
		}

		s.concurrencyMgr.IncrementGlobal()
		s.concurrencyMgr.IncrementDAG(item.ProjectID)
	}
}

// submitRun transitions a queued simulation run to running. The actual
// Monte Carlo execution is driven by internal/orchestrator (and, in
// distributed mode, internal/distributed); the scheduler's job ends at
// handing off a run that is ready to execute.
func (s *Scheduler) submitRun(item *PriorityQueueItem) error {
	run, err := s.runRepo.Get(s.ctx, item.SimulationRunID)
	if err != nil {
		return fmt.Errorf("failed to get simulation run: %w", err)
	}

	if err := s.runRepo.UpdateState(s.ctx, run.ID, models.StateQueued, models.StateRunning); err != nil {
		return fmt.Errorf("failed to update simulation run state: %w", err)
	}

	log.Printf("submitted simulation run %s for execution", item.SimulationRunID)
	return nil
}

// loadAndRegisterProjects loads all non-paused, scheduled projects from
// the database and registers them with the cron scheduler.
func (s *Scheduler) loadAndRegisterProjects() error {
	projects, err := s.projectRepo.List(s.ctx, storage.ProjectFilters{})
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	for _, project := range projects {
		if project.IsPaused {
			log.Printf("skipping paused project: %s", project.Name)
			continue
		}

		if project.Schedule == "" {
			log.Printf("skipping project without schedule: %s", project.Name)
			continue
		}

		if err := s.cronScheduler.AddProject(project.ID, project.Schedule); err != nil {
			log.Printf("failed to register project %s with schedule %s: %v", project.Name, project.Schedule, err)
			continue
		}

		if s.config.EnableCatchup {
			if err := s.performCatchup(project); err != nil {
				log.Printf("failed to perform catchup for project %s: %v", project.Name, err)
			}
		}

		log.Printf("registered project %s with schedule: %s", project.Name, project.Schedule)
	}

	return nil
}

// performCatchup creates simulation runs for cron slots missed since the
// project's last run (or since the project was created, if it has never
// been run).
func (s *Scheduler) performCatchup(project *models.Project) error {
	lastRun, err := s.runRepo.GetLatestRun(s.ctx, project.ID)
	if err != nil && err != storage.ErrNotFound {
		return err
	}

	startTime := project.CreatedAt
	if lastRun != nil && lastRun.ScheduledAt != nil {
		startTime = *lastRun.ScheduledAt
	}

	missed, err := s.cronScheduler.MissedExecutions(project.Schedule, startTime, time.Now(), s.config.MaxCatchupRuns)
	if err != nil {
		return err
	}

	if len(missed) == 0 {
		return nil
	}

	log.Printf("creating %d catchup runs for project %s", len(missed), project.Name)

	for _, slot := range missed {
		if err := s.createScheduledRun(project.ID, slot); err != nil {
			log.Printf("failed to create catchup run for %s at %v: %v", project.Name, slot, err)
		}
	}

	return nil
}

// createScheduledRun creates a new simulation run for a scheduled slot,
// deduplicating against a run already created for that slot.
func (s *Scheduler) createScheduledRun(projectID string, scheduledAt time.Time) error {
	existing, err := s.runRepo.GetByScheduledAt(s.ctx, projectID, scheduledAt)
	if err == nil && existing != nil {
		log.Printf("simulation run already exists for project %s at %v", projectID, scheduledAt)
		return nil
	}

	run := &models.SimulationRun{
		ID:              uuid.New().String(),
		ProjectID:       projectID,
		State:           models.StateQueued,
		Config:          models.DefaultConfig(),
		ScheduledAt:     &scheduledAt,
		ExternalTrigger: false,
	}

	if err := s.runRepo.Create(s.ctx, run); err != nil {
		return fmt.Errorf("failed to create simulation run: %w", err)
	}

	s.priorityQueue.Push(&PriorityQueueItem{
		SimulationRunID: run.ID,
		ProjectID:       run.ProjectID,
		ScheduledAt:     scheduledAt,
		Priority:        PriorityMedium,
		EnqueuedAt:      time.Now(),
	})

	log.Printf("created scheduled simulation run: %s (scheduled at: %v)", run.ID, scheduledAt)
	return nil
}

// RegisterProject registers a new project with the scheduler.
func (s *Scheduler) RegisterProject(projectID, schedule string) error {
	if s.cronScheduler == nil {
		return fmt.Errorf("scheduler not started")
	}
	return s.cronScheduler.AddProject(projectID, schedule)
}

// UnregisterProject removes a project from the scheduler.
func (s *Scheduler) UnregisterProject(projectID string) error {
	if s.cronScheduler == nil {
		return fmt.Errorf("scheduler not started")
	}
	s.cronScheduler.RemoveProject(projectID)
	return nil
}
