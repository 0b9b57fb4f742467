package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/forecastry/montecarlo/internal/errorhandling"
	"github.com/forecastry/montecarlo/internal/runservice"
	"github.com/forecastry/montecarlo/internal/state"
	"github.com/forecastry/montecarlo/internal/storage"
	"github.com/forecastry/montecarlo/pkg/api/dto"
	"github.com/forecastry/montecarlo/pkg/api/handlers"
	"github.com/forecastry/montecarlo/pkg/api/middleware"
)

const version = "0.7.0"

func main() {
	log.Printf("Starting Monte Carlo Forecast API server v%s", version)

	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbCfg := &storage.Config{
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        getEnv("DB_PORT", "5432"),
		User:        getEnv("DB_USER", "forecastry"),
		Password:    getEnv("DB_PASSWORD", "forecastry_dev_password"),
		DBName:      getEnv("DB_NAME", "montecarlo"),
		SSLMode:     getEnv("DB_SSLMODE", "disable"),
		MaxConns:    25,
		MinConns:    5,
		MaxIdleTime: 5 * time.Minute,
		MaxLifetime: 30 * time.Minute,
	}

	db, err := storage.NewDB(dbCfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrateCfg := &storage.MigrateConfig{
		Host:     dbCfg.Host,
		Port:     dbCfg.Port,
		User:     dbCfg.User,
		Password: dbCfg.Password,
		DBName:   dbCfg.DBName,
		SSLMode:  dbCfg.SSLMode,
	}
	if err := storage.RunMigrations(migrateCfg, "./migrations"); err != nil {
		log.Printf("Warning: Failed to run migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", getEnv("REDIS_HOST", "localhost"), getEnv("REDIS_PORT", "6379")),
	})
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
	}

	redisPublisher := state.NewRedisPublisher(redisClient)
	historyPublisher := state.NewHistoryPublisher(db.DB)
	multiPublisher := state.NewMultiPublisher(redisPublisher, historyPublisher)
	stateManager := state.NewManager(multiPublisher)

	projectRepo := storage.NewProjectRepository(db.DB)
	runRepo := storage.NewSimulationRunRepository(db.DB, stateManager)
	criticalityRepo := storage.NewCriticalityRepository(db.DB)

	runner := runservice.New(projectRepo, runRepo, criticalityRepo, errorhandling.New(&errorhandling.Config{}))

	log.Printf("Database initialized successfully")
	log.Printf("Repositories initialized: Project, SimulationRun, Criticality")

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if env == "development" {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())

	projectHandler := handlers.NewProjectHandler(projectRepo)
	runHandler := handlers.NewSimulationRunHandler(projectRepo, runRepo, runner)
	criticalityHandler := handlers.NewCriticalityHandler(criticalityRepo)

	router.GET("/health", func(c *gin.Context) {
		dbHealthy := true
		if err := db.Health(c.Request.Context()); err != nil {
			dbHealthy = false
		}

		redisHealthy := true
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			redisHealthy = false
		}

		status := "healthy"
		services := map[string]string{
			"database": "healthy",
			"redis":    "healthy",
		}

		if !dbHealthy {
			status = "degraded"
			services["database"] = "unhealthy"
		}
		if !redisHealthy {
			status = "degraded"
			services["redis"] = "unhealthy"
		}

		c.JSON(200, dto.HealthResponse{Status: status, Services: services})
	})

	jwtConfig := middleware.DefaultJWTConfig()

	public := router.Group("/api/v1")
	{
		public.GET("/status", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok", "version": version})
		})
		public.GET("/health", func(c *gin.Context) {
			c.Redirect(301, "/health")
		})
	}

	api := router.Group("/api/v1")
	api.Use(middleware.OptionalAuth(jwtConfig))
	api.Use(middleware.GlobalRateLimiter.RateLimit())

	projects := api.Group("/projects")
	{
		projects.POST("", projectHandler.CreateProject)
		projects.GET("", projectHandler.ListProjects)
		projects.GET("/:id", projectHandler.GetProject)
		projects.PATCH("/:id", projectHandler.UpdateProject)
		projects.DELETE("/:id", projectHandler.DeleteProject)
		projects.POST("/:id/pause", projectHandler.PauseProject)
		projects.POST("/:id/unpause", projectHandler.UnpauseProject)
		projects.POST("/:id/trigger", runHandler.TriggerRun)
	}

	runs := api.Group("/runs")
	{
		runs.GET("", runHandler.ListRuns)
		runs.GET("/:id", runHandler.GetRun)
		runs.POST("/:id/cancel", runHandler.CancelRun)
		runs.GET("/:id/criticality", criticalityHandler.ListRunCriticality)
	}

	log.Printf("Server listening on port %s in %s mode", port, env)
	log.Printf("API documentation: http://localhost:%s/api/v1/status", port)

	if err := router.Run(fmt.Sprintf(":%s", port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
