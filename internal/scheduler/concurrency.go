package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PoolConfig defines configuration for a named resource pool (e.g. a
// bounded set of distributed trial-worker slots).
type PoolConfig struct {
	Name  string
	Slots int
}

// ConcurrencyConfig holds concurrency control configuration.
type ConcurrencyConfig struct {
	// MaxGlobalConcurrency is the maximum number of concurrent simulation
	// runs across all projects.
	MaxGlobalConcurrency int

	// DefaultProjectConcurrency is the default maximum concurrent runs
	// per project.
	DefaultProjectConcurrency int

	// Pools defines named resource pools for worker-level concurrency.
	Pools map[string]int // pool name -> max slots

	// RedisClient for distributed locking (optional; used when the
	// scheduler is run alongside other scheduler replicas).
	RedisClient *redis.Client

	// LockTTL is the TTL for Redis locks.
	LockTTL time.Duration
}

// ConcurrencyManager manages concurrency limits at various levels.
type ConcurrencyManager struct {
	config        *ConcurrencyConfig
	globalCount   int
	projectCounts map[string]int // projectID -> current count
	projectLimits map[string]int // projectID -> max concurrent
	poolCounts    map[string]int // pool name -> current count
	mu            sync.RWMutex
	redis         *redis.Client
	ctx           context.Context
}

// NewConcurrencyManager creates a new concurrency manager.
func NewConcurrencyManager(ctx context.Context, config *ConcurrencyConfig) *ConcurrencyManager {
	if config == nil {
		config = &ConcurrencyConfig{
			MaxGlobalConcurrency:     100,
			DefaultProjectConcurrency: 16,
			Pools:                    make(map[string]int),
			LockTTL:                  30 * time.Second,
		}
	}

	return &ConcurrencyManager{
		config:        config,
		globalCount:   0,
		projectCounts: make(map[string]int),
		projectLimits: make(map[string]int),
		poolCounts:    make(map[string]int),
		redis:         config.RedisClient,
		ctx:           ctx,
	}
}

// CanScheduleGlobal checks if a new simulation run can be scheduled globally.
func (cm *ConcurrencyManager) CanScheduleGlobal() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.globalCount < cm.config.MaxGlobalConcurrency
}

// CanScheduleDAG checks if a new run can be scheduled for a specific
// project. Named to match the scheduler's generic dispatch path; "DAG"
// here just means "schedulable unit".
func (cm *ConcurrencyManager) CanScheduleDAG(projectID string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	currentCount := cm.projectCounts[projectID]
	limit := cm.getProjectLimit(projectID)
	return currentCount < limit
}

// CanAcquirePool checks if a slot is available in the specified pool.
func (cm *ConcurrencyManager) CanAcquirePool(poolName string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	maxSlots, exists := cm.config.Pools[poolName]
	if !exists {
		return true // if pool doesn't exist, allow unlimited
	}

	currentCount := cm.poolCounts[poolName]
	return currentCount < maxSlots
}

// IncrementGlobal increments the global concurrency counter.
func (cm *ConcurrencyManager) IncrementGlobal() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.globalCount++
}

// DecrementGlobal decrements the global concurrency counter.
func (cm *ConcurrencyManager) DecrementGlobal() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.globalCount > 0 {
		cm.globalCount--
	}
}

// IncrementDAG increments the concurrency counter for a specific project.
func (cm *ConcurrencyManager) IncrementDAG(projectID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.projectCounts[projectID]++
}

// DecrementDAG decrements the concurrency counter for a specific project.
func (cm *ConcurrencyManager) DecrementDAG(projectID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if count, exists := cm.projectCounts[projectID]; exists && count > 0 {
		cm.projectCounts[projectID]--
	}
}

// AcquirePool acquires a slot in the specified pool.
func (cm *ConcurrencyManager) AcquirePool(poolName string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	maxSlots, exists := cm.config.Pools[poolName]
	if !exists {
		return fmt.Errorf("pool %s does not exist", poolName)
	}

	currentCount := cm.poolCounts[poolName]
	if currentCount >= maxSlots {
		return fmt.Errorf("pool %s is full (%d/%d)", poolName, currentCount, maxSlots)
	}

	cm.poolCounts[poolName]++
	return nil
}

// ReleasePool releases a slot in the specified pool.
func (cm *ConcurrencyManager) ReleasePool(poolName string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if count, exists := cm.poolCounts[poolName]; exists && count > 0 {
		cm.poolCounts[poolName]--
	}
}

// SetDAGLimit sets the concurrency limit for a specific project.
func (cm *ConcurrencyManager) SetDAGLimit(projectID string, limit int) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.projectLimits[projectID] = limit
}

// GetDAGLimit returns the concurrency limit for a specific project.
func (cm *ConcurrencyManager) GetDAGLimit(projectID string) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.getProjectLimit(projectID)
}

// getProjectLimit is the internal (non-locking) version.
func (cm *ConcurrencyManager) getProjectLimit(projectID string) int {
	if limit, exists := cm.projectLimits[projectID]; exists {
		return limit
	}
	return cm.config.DefaultProjectConcurrency
}

// GetGlobalCount returns the current global concurrency count.
func (cm *ConcurrencyManager) GetGlobalCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.globalCount
}

// GetDAGCount returns the current concurrency count for a specific project.
func (cm *ConcurrencyManager) GetDAGCount(projectID string) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.projectCounts[projectID]
}

// GetPoolCount returns the current count for a specific pool.
func (cm *ConcurrencyManager) GetPoolCount(poolName string) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.poolCounts[poolName]
}

// CreatePool creates a new resource pool.
func (cm *ConcurrencyManager) CreatePool(poolName string, maxSlots int) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.config.Pools[poolName] = maxSlots
	cm.poolCounts[poolName] = 0
}

// DeletePool removes a resource pool.
func (cm *ConcurrencyManager) DeletePool(poolName string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.config.Pools, poolName)
	delete(cm.poolCounts, poolName)
}

// AcquireDistributedLock acquires a distributed lock using Redis (if configured).
func (cm *ConcurrencyManager) AcquireDistributedLock(key string) (bool, error) {
	if cm.redis == nil {
		return false, fmt.Errorf("redis client not configured")
	}

	result, err := cm.redis.SetNX(cm.ctx, key, "locked", cm.config.LockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	return result, nil
}

// ReleaseDistributedLock releases a distributed lock using Redis.
func (cm *ConcurrencyManager) ReleaseDistributedLock(key string) error {
	if cm.redis == nil {
		return fmt.Errorf("redis client not configured")
	}

	_, err := cm.redis.Del(cm.ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	return nil
}

// IncrementDistributedCounter increments a counter in Redis for
// distributed concurrency tracking across scheduler replicas.
func (cm *ConcurrencyManager) IncrementDistributedCounter(key string) (int64, error) {
	if cm.redis == nil {
		return 0, fmt.Errorf("redis client not configured")
	}

	val, err := cm.redis.Incr(cm.ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	cm.redis.Expire(cm.ctx, key, 24*time.Hour)

	return val, nil
}

// DecrementDistributedCounter decrements a counter in Redis.
func (cm *ConcurrencyManager) DecrementDistributedCounter(key string) (int64, error) {
	if cm.redis == nil {
		return 0, fmt.Errorf("redis client not configured")
	}

	val, err := cm.redis.Decr(cm.ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to decrement counter: %w", err)
	}

	return val, nil
}

// GetDistributedCounter gets the current value of a counter in Redis.
func (cm *ConcurrencyManager) GetDistributedCounter(key string) (int64, error) {
	if cm.redis == nil {
		return 0, fmt.Errorf("redis client not configured")
	}

	val, err := cm.redis.Get(cm.ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get counter: %w", err)
	}

	return val, nil
}

// Reset resets all concurrency counters.
func (cm *ConcurrencyManager) Reset() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.globalCount = 0
	cm.projectCounts = make(map[string]int)
	cm.poolCounts = make(map[string]int)
}
