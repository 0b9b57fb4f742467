// Command forecast is the primary CLI surface of spec.md §6: given a task
// table, it runs the Monte Carlo simulation locally (no database, no
// distributed trial workers) and writes the resulting Result to a
// directory, mirroring the teacher's single-binary cmd/server entrypoint
// but built on cobra rather than gin, per the rest of the pack's CLI
// idiom (papapumpkin-quasar's cmd/root.go).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/forecastry/montecarlo/internal/dag"
	"github.com/forecastry/montecarlo/internal/errorhandling"
	"github.com/forecastry/montecarlo/internal/orchestrator"
	"github.com/forecastry/montecarlo/internal/serialize"
	"github.com/forecastry/montecarlo/pkg/models"
)

var (
	configPath  string
	outDir      string
	seedFlag    int64
	seedSet     bool
	runsFlag    int
	workersFlag int
)

var rootCmd = &cobra.Command{
	Use:   "forecast <task-table>",
	Short: "Run a Monte Carlo PERT timeline forecast over a task table",
	Long: `forecast reads a task table (CSV, one row per task with three-point
estimates), builds and validates its dependency graph, runs N randomized
trials, and writes the aggregated Result — duration distribution,
percentiles, buffers, per-task criticality, and sensitivity — to --out.`,
	Args: cobra.ExactArgs(1),
	RunE: runForecast,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML simulation config (overrides defaults)")
	rootCmd.Flags().StringVar(&outDir, "out", ".", "output directory for result files")
	rootCmd.Flags().Int64Var(&seedFlag, "seed", 0, "master RNG seed (nondeterministic if omitted)")
	rootCmd.Flags().IntVar(&runsFlag, "runs", 0, "number of trials (overrides config/default)")
	rootCmd.Flags().IntVar(&workersFlag, "workers", 0, "number of parallel workers (0 = CPU count)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		class := errorhandling.Classify(err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(class.ExitCode())
	}
}

func runForecast(cmd *cobra.Command, args []string) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{})

	seedSet = rootCmd.Flags().Changed("seed")

	taskTablePath := args[0]

	parser := dag.NewParser()
	tasks, err := parser.ParseCSVFile(taskTablePath)
	if err != nil {
		return fmt.Errorf("read task table: %w", err)
	}

	cfg := models.DefaultConfig()
	if configPath != "" {
		cfg, err = parser.ParseConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	if runsFlag > 0 {
		cfg.SimulationRuns = runsFlag
	}
	if workersFlag > 0 {
		cfg.Workers = workersFlag
	}
	if seedSet {
		cfg.Seed = &seedFlag
	}

	d, err := dag.Build(tasks)
	if err != nil {
		return fmt.Errorf("build task graph: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"tasks":   len(tasks),
		"runs":    cfg.SimulationRuns,
		"workers": cfg.Workers,
	}).Info("starting simulation")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warn("cancellation requested, winding down in-flight trials")
		cancel()
	}()

	result, err := orchestrator.Run(ctx, d, cfg, func(workerIndex int, subSeed uint64, overflowErr error) {
		logger.WithFields(logrus.Fields{
			"worker":   workerIndex,
			"sub_seed": subSeed,
		}).WithError(overflowErr).Error("trial batch aborted with numeric overflow; no DLQ in standalone mode, batch dropped")
	})
	if err != nil {
		return fmt.Errorf("run simulation: %w", err)
	}
	if result == nil {
		return fmt.Errorf("run simulation: cancelled before any trial completed: %w", ctx.Err())
	}

	out := serialize.FromOrchestratorResult(result)

	if result.Partial {
		logger.WithField("n_trials_completed", result.NTrialsCompleted).Warn("simulation cancelled, writing partial result")
	}

	if err := writeResult(outDir, out); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	logger.WithField("out", outDir).Info("forecast complete")

	if result.Partial {
		return context.Canceled
	}
	return nil
}

func writeResult(dir string, result *serialize.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	resultJSON, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "result.json"), resultJSON, 0o644); err != nil {
		return err
	}

	if err := writeCSVFile(filepath.Join(dir, "task_criticality.csv"), func(f *os.File) error {
		return serialize.WriteTaskCriticalityCSV(f, result.TaskCriticality)
	}); err != nil {
		return err
	}

	if err := writeCSVFile(filepath.Join(dir, "sensitivity.csv"), func(f *os.File) error {
		return serialize.WriteSensitivityCSV(f, result.Sensitivity)
	}); err != nil {
		return err
	}

	if err := writeCSVFile(filepath.Join(dir, "categories.csv"), func(f *os.File) error {
		return serialize.WriteCategoriesCSV(f, result.Categories)
	}); err != nil {
		return err
	}

	return writeCSVFile(filepath.Join(dir, "duration_distribution.csv"), func(f *os.File) error {
		return serialize.WriteDurationDistributionCSV(f, result.DurationDistribution)
	})
}

func writeCSVFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f)
}
