package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RunCreator creates a new SimulationRun for a project at the given
// scheduled slot.
type RunCreator func(projectID string, scheduledAt time.Time) error

// CronScheduler manages cron-based re-forecast scheduling for Projects.
type CronScheduler struct {
	cron     *cron.Cron
	location *time.Location
	creator  RunCreator
	entries  map[string]cron.EntryID // projectID -> entryID
	mu       sync.RWMutex
}

// NewCronScheduler creates a new cron scheduler.
func NewCronScheduler(location *time.Location, creator RunCreator) *CronScheduler {
	return &CronScheduler{
		cron:     cron.New(cron.WithLocation(location), cron.WithSeconds()),
		location: location,
		creator:  creator,
		entries:  make(map[string]cron.EntryID),
	}
}

// Start starts the cron scheduler.
func (cs *CronScheduler) Start() {
	cs.cron.Start()
}

// Stop stops the cron scheduler.
func (cs *CronScheduler) Stop() {
	ctx := cs.cron.Stop()
	<-ctx.Done() // wait for all jobs to complete
}

// AddProject registers a project for recurring re-forecasting.
func (cs *CronScheduler) AddProject(projectID, schedule string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, exists := cs.entries[projectID]; exists {
		return fmt.Errorf("project %s is already registered", projectID)
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %s: %w", schedule, err)
	}

	entryID, err := cs.cron.AddFunc(schedule, func() {
		scheduledAt := time.Now().In(cs.location)
		if err := cs.creator(projectID, scheduledAt); err != nil {
			fmt.Printf("error creating scheduled simulation run for project %s: %v\n", projectID, err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	cs.entries[projectID] = entryID
	return nil
}

// RemoveProject removes a project from the cron scheduler.
func (cs *CronScheduler) RemoveProject(projectID string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if entryID, exists := cs.entries[projectID]; exists {
		cs.cron.Remove(entryID)
		delete(cs.entries, projectID)
	}
}

// ScheduledProjects returns all currently scheduled project IDs.
func (cs *CronScheduler) ScheduledProjects() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	ids := make([]string, 0, len(cs.entries))
	for id := range cs.entries {
		ids = append(ids, id)
	}
	return ids
}

// NextExecution returns the next scheduled re-forecast time for a project.
func (cs *CronScheduler) NextExecution(projectID string) (*time.Time, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entryID, exists := cs.entries[projectID]
	if !exists {
		return nil, fmt.Errorf("project %s is not registered", projectID)
	}

	entry := cs.cron.Entry(entryID)
	if entry.ID == 0 {
		return nil, fmt.Errorf("entry not found for project %s", projectID)
	}

	next := entry.Next
	return &next, nil
}

// MissedExecutions calculates scheduled slots that fell between start and
// end, for reforecast backfill.
func (cs *CronScheduler) MissedExecutions(schedule string, startTime, endTime time.Time, maxRuns int) ([]time.Time, error) {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	var executions []time.Time
	current := startTime
	for len(executions) < maxRuns {
		next := sched.Next(current)
		if next.After(endTime) {
			break
		}
		executions = append(executions, next)
		current = next
	}

	return executions, nil
}

// IsRegistered checks if a project is registered with the scheduler.
func (cs *CronScheduler) IsRegistered(projectID string) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	_, exists := cs.entries[projectID]
	return exists
}

// UpdateSchedule updates the cron schedule for a project.
func (cs *CronScheduler) UpdateSchedule(projectID, newSchedule string) error {
	cs.mu.Lock()
	if entryID, exists := cs.entries[projectID]; exists {
		cs.cron.Remove(entryID)
		delete(cs.entries, projectID)
	}
	cs.mu.Unlock() // unlock before calling AddProject to avoid deadlock

	return cs.AddProject(projectID, newSchedule)
}
