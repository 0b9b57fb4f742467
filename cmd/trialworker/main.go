package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forecastry/montecarlo/internal/dag"
	"github.com/forecastry/montecarlo/internal/distributed"
	"github.com/forecastry/montecarlo/internal/storage"
)

const version = "0.4.0"

func main() {
	natsURL := flag.String("nats", os.Getenv("NATS_URL"), "NATS server URL")
	projectID := flag.String("project-id", "", "Project ID this worker runs trials for")
	dbHost := flag.String("db-host", getEnv("DB_HOST", "localhost"), "Database host")
	dbPort := flag.String("db-port", getEnv("DB_PORT", "5432"), "Database port")
	dbUser := flag.String("db-user", getEnv("DB_USER", "forecastry"), "Database user")
	dbPassword := flag.String("db-password", getEnv("DB_PASSWORD", "forecastry_dev_password"), "Database password")
	dbName := flag.String("db-name", getEnv("DB_NAME", "montecarlo"), "Database name")
	flag.Parse()

	if *natsURL == "" {
		*natsURL = "nats://localhost:4222"
	}
	if *projectID == "" {
		log.Fatal("--project-id is required")
	}

	log.Printf("Starting Monte Carlo trial worker v%s", version)
	log.Printf("NATS URL: %s", *natsURL)
	log.Printf("Project: %s", *projectID)

	db, err := storage.NewDB(&storage.Config{
		Host:        *dbHost,
		Port:        *dbPort,
		User:        *dbUser,
		Password:    *dbPassword,
		DBName:      *dbName,
		SSLMode:     "disable",
		MaxConns:    5,
		MinConns:    1,
		MaxIdleTime: 5 * time.Minute,
		MaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	projectRepo := storage.NewProjectRepository(db.DB)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	project, err := projectRepo.Get(ctx, *projectID)
	cancel()
	if err != nil {
		log.Fatalf("Failed to load project %s: %v", *projectID, err)
	}

	d, err := dag.Build(project.Tasks)
	if err != nil {
		log.Fatalf("Project %s failed DAG validation: %v", *projectID, err)
	}

	worker, err := distributed.NewWorker(*natsURL, d)
	if err != nil {
		log.Fatalf("Failed to create worker: %v", err)
	}

	if err := worker.Start(); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	log.Printf("Worker %s started and ready to run trial batches", worker.ID())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal %v, shutting down...", sig)

	worker.Stop()
	log.Println("Worker stopped successfully")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
