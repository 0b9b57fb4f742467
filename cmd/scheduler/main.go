package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/forecastry/montecarlo/internal/scheduler"
	"github.com/forecastry/montecarlo/internal/state"
	"github.com/forecastry/montecarlo/internal/storage"
	"flag"
)

const version = "0.3.0"

var (
	dbHost     = flag.String("db-host", getEnv("DB_HOST", "localhost"), "Database host")
	dbPort     = flag.String("db-port", getEnv("DB_PORT", "5432"), "Database port")
	dbUser     = flag.String("db-user", getEnv("DB_USER", "forecastry"), "Database user")
	dbPassword = flag.String("db-password", getEnv("DB_PASSWORD", "forecastry_dev_password"), "Database password")
	dbName     = flag.String("db-name", getEnv("DB_NAME", "montecarlo"), "Database name")

	redisHost     = flag.String("redis-host", getEnv("REDIS_HOST", "localhost"), "Redis host")
	redisPort     = flag.String("redis-port", getEnv("REDIS_PORT", "6379"), "Redis port")
	redisPassword = flag.String("redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	redisDB       = flag.Int("redis-db", 0, "Redis database")

	scheduleInterval  = flag.Duration("schedule-interval", 10*time.Second, "Schedule check interval")
	maxConcurrentRuns = flag.Int("max-concurrent-runs", 100, "Maximum concurrent simulation runs")
	enableCatchup     = flag.Bool("enable-catchup", true, "Enable catchup for missed re-forecast schedules")
	maxCatchupRuns    = flag.Int("max-catchup-runs", 50, "Maximum number of catchup runs")
	timezone          = flag.String("timezone", "UTC", "Default timezone for schedules")

	reforecastMode        = flag.Bool("reforecast", false, "Run in one-shot reforecast backfill mode")
	reforecastProjectID   = flag.String("reforecast-project-id", "", "Project ID for reforecast backfill")
	reforecastStart       = flag.String("reforecast-start", "", "Reforecast backfill start date (RFC3339)")
	reforecastEnd         = flag.String("reforecast-end", "", "Reforecast backfill end date (RFC3339)")
	reforecastConcurrency = flag.Int("reforecast-concurrency", 5, "Reforecast backfill concurrency")
	reforecastDryRun      = flag.Bool("reforecast-dry-run", false, "Reforecast backfill dry run")
)

func main() {
	flag.Parse()

	log.Printf("Starting Monte Carlo re-forecast scheduler v%s", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := initDatabase()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Println("Database connection established")

	redisClient := initRedis()
	if redisClient != nil {
		log.Println("Redis connection established")
	}

	stateManager := state.NewManager(nil)
	projectRepo := storage.NewProjectRepository(db.DB)
	runRepo := storage.NewSimulationRunRepository(db.DB, stateManager)

	if *reforecastMode {
		runReforecast(ctx, projectRepo, runRepo)
		return
	}

	concurrencyConfig := &scheduler.ConcurrencyConfig{
		MaxGlobalConcurrency:      *maxConcurrentRuns,
		DefaultProjectConcurrency: 16,
		Pools:                     make(map[string]int),
		RedisClient:               redisClient,
		LockTTL:                   30 * time.Second,
	}
	concurrencyMgr := scheduler.NewConcurrencyManager(ctx, concurrencyConfig)

	schedulerConfig := &scheduler.Config{
		ScheduleInterval:  *scheduleInterval,
		MaxConcurrentRuns: *maxConcurrentRuns,
		DefaultTimezone:   *timezone,
		EnableCatchup:     *enableCatchup,
		MaxCatchupRuns:    *maxCatchupRuns,
	}

	sched := scheduler.New(schedulerConfig, projectRepo, runRepo, concurrencyMgr)

	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Println("Scheduler started successfully")
	log.Printf("Schedule interval: %v", *scheduleInterval)
	log.Printf("Max concurrent runs: %d", *maxConcurrentRuns)
	log.Printf("Catchup enabled: %v", *enableCatchup)
	log.Printf("Timezone: %s", *timezone)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	if err := sched.Stop(); err != nil {
		log.Printf("Error stopping scheduler: %v", err)
	}

	sqlDB, _ := db.DB.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	log.Println("Scheduler stopped gracefully")
}

func runReforecast(ctx context.Context, projectRepo storage.ProjectRepository, runRepo storage.SimulationRunRepository) {
	log.Println("Running in reforecast backfill mode")

	if *reforecastProjectID == "" {
		log.Fatal("--reforecast-project-id is required for reforecast mode")
	}
	if *reforecastStart == "" {
		log.Fatal("--reforecast-start is required for reforecast mode")
	}
	if *reforecastEnd == "" {
		log.Fatal("--reforecast-end is required for reforecast mode")
	}

	startDate, err := time.Parse(time.RFC3339, *reforecastStart)
	if err != nil {
		log.Fatalf("Invalid reforecast start date: %v", err)
	}

	endDate, err := time.Parse(time.RFC3339, *reforecastEnd)
	if err != nil {
		log.Fatalf("Invalid reforecast end date: %v", err)
	}

	location, err := time.LoadLocation(*timezone)
	if err != nil {
		log.Fatalf("Invalid timezone: %v", err)
	}

	cronScheduler := scheduler.NewCronScheduler(location, nil)
	reforecastConfig := &scheduler.ReforecastConfig{
		MaxConcurrency:      *reforecastConcurrency,
		DryRun:              *reforecastDryRun,
		ReprocessFailed:     false,
		ReprocessSuccessful: false,
	}

	engine := scheduler.NewReforecastEngine(ctx, projectRepo, runRepo, cronScheduler, reforecastConfig)

	req := scheduler.ReforecastRequest{
		ProjectID: *reforecastProjectID,
		StartDate: startDate,
		EndDate:   endDate,
	}

	log.Printf("Starting reforecast backfill for project %s from %v to %v", req.ProjectID, req.StartDate, req.EndDate)

	result, err := engine.Backfill(req)
	if err != nil {
		log.Printf("Reforecast backfill completed with errors: %v", err)
	}

	log.Printf("Reforecast backfill completed:")
	log.Printf("  Total slots: %d", result.TotalSlots)
	log.Printf("  Created: %d", result.CreatedRuns)
	log.Printf("  Skipped: %d", result.SkippedRuns)
	log.Printf("  Failed: %d", result.FailedRuns)
	log.Printf("  Duration: %v", result.Duration)

	if len(result.Errors) > 0 {
		log.Printf("  Errors encountered: %d", len(result.Errors))
		for i, err := range result.Errors {
			if i < 5 {
				log.Printf("    - %v", err)
			}
		}
	}
}

func initDatabase() (*storage.DB, error) {
	config := &storage.Config{
		Host:        *dbHost,
		Port:        *dbPort,
		User:        *dbUser,
		Password:    *dbPassword,
		DBName:      *dbName,
		SSLMode:     "disable",
		MaxConns:    25,
		MinConns:    5,
		MaxIdleTime: 5 * time.Minute,
		MaxLifetime: 30 * time.Minute,
	}

	db, err := storage.NewDB(config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	migrateConfig := &storage.MigrateConfig{
		Host:     *dbHost,
		Port:     *dbPort,
		User:     *dbUser,
		Password: *dbPassword,
		DBName:   *dbName,
		SSLMode:  "disable",
	}
	if err := storage.RunMigrations(migrateConfig, "./migrations"); err != nil {
		log.Printf("Warning: Failed to run migrations (migrations directory may not exist): %v", err)
	}

	return db, nil
}

func initRedis() *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", *redisHost, *redisPort),
		Password: *redisPassword,
		DB:       *redisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed: %v", err)
		return nil
	}

	return client
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
