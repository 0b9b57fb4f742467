package storage

import (
	"fmt"
	"os"
	"testing"

	"github.com/forecastry/montecarlo/internal/state"
	"gorm.io/gorm"
)

// SetupTestDB creates a test database for integration tests
func SetupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	// Use environment variables if available, otherwise skip tests
	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "localhost"
	}

	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}

	user := os.Getenv("DB_USER")
	if user == "" {
		user = "forecastry"
	}

	password := os.Getenv("DB_PASSWORD")
	if password == "" {
		password = "forecastry_dev_password"
	}

	dbname := os.Getenv("DB_NAME")
	if dbname == "" {
		dbname = "forecastry"
	}

	cfg := &Config{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		DBName:   dbname,
		SSLMode:  "disable",
		MaxConns: 10,
		MinConns: 2,
	}

	db, err := NewDB(cfg)
	if err != nil {
		t.Skipf("Failed to connect to test database: %v. Set DB_HOST, DB_PORT, etc. to run integration tests", err)
	}

	// Run migrations
	migrateCfg := &MigrateConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		DBName:   cfg.DBName,
		SSLMode:  cfg.SSLMode,
	}

	if err := RunMigrations(migrateCfg, "./../../migrations"); err != nil {
		// Try relative path from different location
		if err := RunMigrations(migrateCfg, "../../../migrations"); err != nil {
			t.Logf("Warning: Failed to run migrations: %v", err)
		}
	}

	cleanup := func() {
		// Clean up test data
		db.Exec("TRUNCATE TABLE task_criticality CASCADE")
		db.Exec("TRUNCATE TABLE state_history CASCADE")
		db.Exec("TRUNCATE TABLE simulation_runs CASCADE")
		db.Exec("TRUNCATE TABLE projects CASCADE")
		db.Close()
	}

	return db, cleanup
}

// CreateTestRepositories creates test repositories with a shared state manager
func CreateTestRepositories(db *gorm.DB) (ProjectRepository, SimulationRunRepository, CriticalityRepository) {
	stateManager := state.NewManager(&state.NoOpPublisher{})

	projectRepo := NewProjectRepository(db)
	simulationRunRepo := NewSimulationRunRepository(db, stateManager)
	criticalityRepo := NewCriticalityRepository(db)

	return projectRepo, simulationRunRepo, criticalityRepo
}

// PrintTestDatabaseInfo prints information about connecting to the test database
func PrintTestDatabaseInfo() {
	fmt.Println("Integration tests require a PostgreSQL database.")
	fmt.Println("Set the following environment variables to configure:")
	fmt.Println("  DB_HOST (default: localhost)")
	fmt.Println("  DB_PORT (default: 5432)")
	fmt.Println("  DB_USER (default: forecastry)")
	fmt.Println("  DB_PASSWORD (default: forecastry_dev_password)")
	fmt.Println("  DB_NAME (default: forecastry)")
	fmt.Println("\nOr run: docker-compose up -d postgres")
}
