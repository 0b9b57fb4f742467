// Package errorhandling classifies the error taxonomy of spec §7 —
// input, structural, runtime, and cancellation — and maps it onto the
// exit codes and host-facing callbacks the CLI and API server need,
// adapted from the teacher's DAG failure-propagation handler.
package errorhandling

import (
	"context"
	"errors"
	"fmt"

	"github.com/forecastry/montecarlo/internal/dag"
	"github.com/forecastry/montecarlo/internal/trial"
	"github.com/forecastry/montecarlo/pkg/models"
)

// Class identifies which tier of the spec §7 error taxonomy an error
// belongs to.
type Class string

const (
	// ClassInput covers DuplicateId, UnknownPredecessor, InvalidEstimate,
	// Empty, MalformedRow — recoverable, reported before any trial runs.
	ClassInput Class = "input"

	// ClassStructural covers CyclicDependency — recoverable, reported
	// before any trial runs.
	ClassStructural Class = "structural"

	// ClassRuntime covers NumericOverflow — fatal per trial, aborts the
	// run with no partial Result.
	ClassRuntime Class = "runtime"

	// ClassCancellation is not an error: it yields a partial Result with
	// meta.partial = true.
	ClassCancellation Class = "cancellation"

	// ClassUnknown is any error this package doesn't recognize.
	ClassUnknown Class = "unknown"
)

// ExitCode returns the spec §6 CLI exit code for a Class: 0 success
// (never returned here), 1 input/structural validation error, 2 runtime
// error, 130 cancelled.
func (c Class) ExitCode() int {
	switch c {
	case ClassInput, ClassStructural:
		return 1
	case ClassRuntime:
		return 2
	case ClassCancellation:
		return 130
	default:
		return 2
	}
}

// Classify determines which tier of the error taxonomy err belongs to.
// A nil err or a context.Canceled/DeadlineExceeded is ClassCancellation;
// everything else is matched against the sentinel errors internal/dag
// and internal/trial define.
func Classify(err error) Class {
	if err == nil {
		return ClassCancellation
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassCancellation
	}

	switch {
	case errors.Is(err, dag.ErrDuplicateID),
		errors.Is(err, dag.ErrUnknownPredecessor),
		errors.Is(err, dag.ErrInvalidEstimate),
		errors.Is(err, dag.ErrEmpty):
		return ClassInput

	case errors.Is(err, dag.ErrCyclicDependency):
		return ClassStructural

	default:
		var numErr *trial.NumericOverflowError
		if errors.As(err, &numErr) {
			return ClassRuntime
		}
	}

	return ClassUnknown
}

// RunCallback is invoked when a SimulationRun transitions into a
// terminal state, mirroring the teacher's DAG-run failure callback.
type RunCallback func(ctx context.Context, run *models.SimulationRun, err error) error

// Config holds configuration for the propagation handler.
type Config struct {
	// OnRunFailure is called when a SimulationRun fails with a runtime
	// error (never called for cancellation, which is not a failure).
	OnRunFailure RunCallback

	// OnRunPartial is called when a SimulationRun completes with fewer
	// trials than requested because it was cancelled.
	OnRunPartial RunCallback
}

// Handler applies the spec §7 taxonomy to a run outcome and invokes the
// configured callbacks.
type Handler struct {
	config *Config
}

// New creates a new propagation Handler.
func New(config *Config) *Handler {
	if config == nil {
		config = &Config{}
	}
	return &Handler{config: config}
}

// HandleRunOutcome classifies err (which may be nil, meaning success)
// and invokes the callbacks configured for that outcome. It does not
// change run.State; the caller sets the terminal state. It returns the
// Class so a caller
// (CLI, API handler) can derive an exit code or HTTP status from it.
func (h *Handler) HandleRunOutcome(ctx context.Context, run *models.SimulationRun, partial bool, err error) (Class, error) {
	if err == nil && !partial {
		return ClassCancellation, nil // no-op: a clean success has no class of note
	}

	if err == nil && partial {
		if h.config.OnRunPartial != nil {
			if cbErr := h.config.OnRunPartial(ctx, run, nil); cbErr != nil {
				return ClassCancellation, fmt.Errorf("partial-run callback error: %w", cbErr)
			}
		}
		return ClassCancellation, nil
	}

	class := Classify(err)
	if class == ClassRuntime || class == ClassUnknown {
		if h.config.OnRunFailure != nil {
			if cbErr := h.config.OnRunFailure(ctx, run, err); cbErr != nil {
				return class, fmt.Errorf("run-failure callback error: %w", cbErr)
			}
		}
	}

	return class, err
}

// IsFatal reports whether err aborts the simulation run outright (no
// partial Result), as opposed to cancellation.
func IsFatal(err error) bool {
	class := Classify(err)
	return class == ClassInput || class == ClassStructural || class == ClassRuntime || class == ClassUnknown
}
