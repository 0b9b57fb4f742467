package errorhandling

import (
	"context"
	"errors"
	"testing"

	"github.com/forecastry/montecarlo/internal/dag"
	"github.com/forecastry/montecarlo/internal/trial"
	"github.com/forecastry/montecarlo/pkg/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Class
	}{
		{"nil is cancellation", nil, ClassCancellation},
		{"context canceled", context.Canceled, ClassCancellation},
		{"context deadline exceeded", context.DeadlineExceeded, ClassCancellation},
		{"duplicate id is input", &dag.DuplicateIDError{ID: "task1"}, ClassInput},
		{"unknown predecessor is input", &dag.UnknownPredecessorError{Task: "task1", Missing: "task2"}, ClassInput},
		{"invalid estimate is input", &dag.InvalidEstimateError{Task: "task1", Reason: "O>M"}, ClassInput},
		{"empty is input", &dag.EmptyError{}, ClassInput},
		{"cyclic dependency is structural", &dag.CyclicDependencyError{Involved: []string{"task1"}}, ClassStructural},
		{"numeric overflow is runtime", &trial.NumericOverflowError{TaskIndex: 2, Trial: 5, Reason: "non-finite"}, ClassRuntime},
		{"unrecognized error is unknown", errors.New("boom"), ClassUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.expected {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClass_ExitCode(t *testing.T) {
	tests := []struct {
		class    Class
		expected int
	}{
		{ClassInput, 1},
		{ClassStructural, 1},
		{ClassRuntime, 2},
		{ClassCancellation, 130},
		{ClassUnknown, 2},
	}

	for _, tt := range tests {
		if got := tt.class.ExitCode(); got != tt.expected {
			t.Errorf("%s.ExitCode() = %d, want %d", tt.class, got, tt.expected)
		}
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(nil) {
		t.Error("nil should not be fatal")
	}
	if IsFatal(context.Canceled) {
		t.Error("cancellation should not be fatal")
	}
	if !IsFatal(&trial.NumericOverflowError{TaskIndex: 0, Trial: 0, Reason: "x"}) {
		t.Error("numeric overflow should be fatal")
	}
	if !IsFatal(&dag.EmptyError{}) {
		t.Error("an empty task set should be fatal")
	}
}

func TestHandler_HandleRunOutcome_RuntimeFailureInvokesCallback(t *testing.T) {
	var gotErr error
	handler := New(&Config{
		OnRunFailure: func(ctx context.Context, run *models.SimulationRun, err error) error {
			gotErr = err
			return nil
		},
	})

	run := &models.SimulationRun{ID: "run1", State: models.StateRunning}
	numErr := &trial.NumericOverflowError{TaskIndex: 1, Trial: 3, Reason: "non-finite sample"}

	class, err := handler.HandleRunOutcome(context.Background(), run, false, numErr)
	if class != ClassRuntime {
		t.Errorf("expected ClassRuntime, got %v", class)
	}
	if !errors.Is(err, numErr) && err != numErr {
		t.Errorf("expected returned error to be the numeric overflow error, got %v", err)
	}
	if gotErr != numErr {
		t.Error("expected OnRunFailure callback to receive the original error")
	}
}

func TestHandler_HandleRunOutcome_PartialInvokesPartialCallback(t *testing.T) {
	called := false
	handler := New(&Config{
		OnRunPartial: func(ctx context.Context, run *models.SimulationRun, err error) error {
			called = true
			return nil
		},
	})

	run := &models.SimulationRun{ID: "run1", State: models.StateRunning}

	class, err := handler.HandleRunOutcome(context.Background(), run, true, nil)
	if class != ClassCancellation {
		t.Errorf("expected ClassCancellation, got %v", class)
	}
	if err != nil {
		t.Errorf("expected nil error for a partial-but-cancelled run, got %v", err)
	}
	if !called {
		t.Error("expected OnRunPartial callback to be called")
	}
}

func TestHandler_HandleRunOutcome_SuccessIsNoop(t *testing.T) {
	failureCalled := false
	partialCalled := false
	handler := New(&Config{
		OnRunFailure: func(ctx context.Context, run *models.SimulationRun, err error) error {
			failureCalled = true
			return nil
		},
		OnRunPartial: func(ctx context.Context, run *models.SimulationRun, err error) error {
			partialCalled = true
			return nil
		},
	})

	run := &models.SimulationRun{ID: "run1", State: models.StateRunning}

	if _, err := handler.HandleRunOutcome(context.Background(), run, false, nil); err != nil {
		t.Errorf("expected nil error for a clean success, got %v", err)
	}
	if failureCalled || partialCalled {
		t.Error("a clean success should not invoke either callback")
	}
}

func TestErrorClassifier_IsRetryable(t *testing.T) {
	classifier := NewErrorClassifier()

	tests := []struct {
		errorCode string
		expected  bool
	}{
		{"timeout", true},
		{"connection_refused", true},
		{"temporary", true},
		{"rate_limit", true},
		{"service_unavailable", true},
		{"network", true},
		{"validation_error", false},
		{"not_found", false},
		{"permission_denied", false},
	}

	for _, tt := range tests {
		t.Run(tt.errorCode, func(t *testing.T) {
			result := classifier.IsRetryable(tt.errorCode)
			if result != tt.expected {
				t.Errorf("IsRetryable(%s) = %v, want %v", tt.errorCode, result, tt.expected)
			}
		})
	}
}

func TestErrorClassifier_AddRemoveRetryableError(t *testing.T) {
	classifier := NewErrorClassifier()

	classifier.AddRetryableError("custom_error")
	if !classifier.IsRetryable("custom_error") {
		t.Error("added error code should be retryable")
	}

	classifier.RemoveRetryableError("custom_error")
	if classifier.IsRetryable("custom_error") {
		t.Error("removed error code should not be retryable")
	}
}
