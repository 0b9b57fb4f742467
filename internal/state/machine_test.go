package state

import (
	"testing"

	"github.com/forecastry/montecarlo/pkg/models"
)

func TestStateMachine_CanTransition(t *testing.T) {
	sm := NewStateMachine()

	tests := []struct {
		name     string
		from     models.State
		to       models.State
		expected bool
	}{
		// Valid transitions from Queued
		{"Queued to Running", models.StateQueued, models.StateRunning, true},
		{"Queued to Failed", models.StateQueued, models.StateFailed, true},

		// Valid transitions from Running
		{"Running to Succeeded", models.StateRunning, models.StateSucceeded, true},
		{"Running to PartiallyCompleted", models.StateRunning, models.StatePartiallyCompleted, true},
		{"Running to Failed", models.StateRunning, models.StateFailed, true},

		// Valid transitions from Failed
		{"Failed to Queued", models.StateFailed, models.StateQueued, true},

		// Idempotent transitions (same state)
		{"Queued to Queued", models.StateQueued, models.StateQueued, true},
		{"Running to Running", models.StateRunning, models.StateRunning, true},

		// Invalid transitions
		{"Succeeded to Running", models.StateSucceeded, models.StateRunning, false},
		{"Succeeded to Failed", models.StateSucceeded, models.StateFailed, false},
		{"PartiallyCompleted to Running", models.StatePartiallyCompleted, models.StateRunning, false},
		{"Queued to Succeeded", models.StateQueued, models.StateSucceeded, false},
		{"Running to Queued", models.StateRunning, models.StateQueued, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sm.CanTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestStateMachine_ValidateTransition(t *testing.T) {
	sm := NewStateMachine()

	tests := []struct {
		name      string
		from      models.State
		to        models.State
		wantError bool
	}{
		{"Valid: Queued to Running", models.StateQueued, models.StateRunning, false},
		{"Valid: Running to Succeeded", models.StateRunning, models.StateSucceeded, false},
		{"Invalid: Succeeded to Running", models.StateSucceeded, models.StateRunning, true},
		{"Invalid: Queued to Succeeded", models.StateQueued, models.StateSucceeded, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sm.ValidateTransition(tt.from, tt.to)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateTransition(%s, %s) error = %v, wantError %v", tt.from, tt.to, err, tt.wantError)
			}
			if err != nil && !tt.wantError {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestStateMachine_GetNextStates(t *testing.T) {
	sm := NewStateMachine()

	tests := []struct {
		name     string
		current  models.State
		expected int // number of valid next states
	}{
		{"Queued has 2 next states", models.StateQueued, 2},
		{"Running has 3 next states", models.StateRunning, 3},
		{"Failed has 1 next state", models.StateFailed, 1},
		{"Succeeded has 0 next states", models.StateSucceeded, 0},
		{"PartiallyCompleted has 0 next states", models.StatePartiallyCompleted, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			states := sm.GetNextStates(tt.current)
			if len(states) != tt.expected {
				t.Errorf("GetNextStates(%s) returned %d states, want %d", tt.current, len(states), tt.expected)
			}
		})
	}
}

func TestStateMachine_IsTerminalState(t *testing.T) {
	sm := NewStateMachine()

	tests := []struct {
		name     string
		state    models.State
		expected bool
	}{
		{"Succeeded is terminal", models.StateSucceeded, true},
		{"PartiallyCompleted is terminal", models.StatePartiallyCompleted, true},
		{"Failed is terminal", models.StateFailed, true},
		{"Queued is not terminal", models.StateQueued, false},
		{"Running is not terminal", models.StateRunning, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sm.IsTerminalState(tt.state)
			if result != tt.expected {
				t.Errorf("IsTerminalState(%s) = %v, want %v", tt.state, result, tt.expected)
			}
		})
	}
}

func TestManager_Transition(t *testing.T) {
	var publishedEvents []TransitionEvent
	mockPublisher := &mockPublisher{
		events: &publishedEvents,
	}

	manager := NewManager(mockPublisher)

	tests := []struct {
		name       string
		entityType string
		entityID   string
		from       models.State
		to         models.State
		metadata   map[string]interface{}
		wantError  bool
	}{
		{
			name:       "Valid transition publishes event",
			entityType: "simulation_run",
			entityID:   "123",
			from:       models.StateQueued,
			to:         models.StateRunning,
			metadata:   map[string]interface{}{"worker": "worker-1"},
			wantError:  false,
		},
		{
			name:       "Invalid transition returns error",
			entityType: "simulation_run",
			entityID:   "456",
			from:       models.StateSucceeded,
			to:         models.StateRunning,
			metadata:   nil,
			wantError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publishedEvents = []TransitionEvent{} // Reset

			err := manager.Transition(tt.entityType, tt.entityID, tt.from, tt.to, tt.metadata)
			if (err != nil) != tt.wantError {
				t.Errorf("Transition() error = %v, wantError %v", err, tt.wantError)
			}

			if !tt.wantError {
				if len(publishedEvents) != 1 {
					t.Errorf("Expected 1 event to be published, got %d", len(publishedEvents))
				} else {
					event := publishedEvents[0]
					if event.EntityType != tt.entityType {
						t.Errorf("Event EntityType = %s, want %s", event.EntityType, tt.entityType)
					}
					if event.EntityID != tt.entityID {
						t.Errorf("Event EntityID = %s, want %s", event.EntityID, tt.entityID)
					}
					if event.OldState != tt.from {
						t.Errorf("Event OldState = %s, want %s", event.OldState, tt.from)
					}
					if event.NewState != tt.to {
						t.Errorf("Event NewState = %s, want %s", event.NewState, tt.to)
					}
				}
			}
		})
	}
}

func TestNoOpPublisher(t *testing.T) {
	publisher := &NoOpPublisher{}
	event := TransitionEvent{
		EntityType: "test",
		EntityID:   "123",
		OldState:   models.StateQueued,
		NewState:   models.StateRunning,
	}

	err := publisher.Publish(event)
	if err != nil {
		t.Errorf("NoOpPublisher.Publish() should never return error, got %v", err)
	}
}

// Mock publisher for testing
type mockPublisher struct {
	events *[]TransitionEvent
}

func (m *mockPublisher) Publish(event TransitionEvent) error {
	*m.events = append(*m.events, event)
	return nil
}
