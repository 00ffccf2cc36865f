package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		name  string
		from  OrderState
		to    OrderState
		valid bool
	}{
		{"Received to PaymentVerified", StateReceived, StatePaymentVerified, true},
		{"Received to Error", StateReceived, StateError, true},
		{"Received to Publishing", StateReceived, StatePublishing, false},
		{"PaymentVerified to ContentGeneration", StatePaymentVerified, StateContentGeneration, true},
		{"ContentGeneration to ContentReview", StateContentGeneration, StateContentReview, true},
		{"ContentGeneration to PartialCompletion", StateContentGeneration, StatePartialCompletion, true},
		{"ContentReview to Publishing", StateContentReview, StatePublishing, true},
		{"Publishing to Completed", StatePublishing, StateCompleted, true},
		{"Publishing to PartialCompletion", StatePublishing, StatePartialCompletion, true},
		{"PartialCompletion resumes Publishing", StatePartialCompletion, StatePublishing, true},
		{"PartialCompletion to Error", StatePartialCompletion, StateError, true},
		{"Completed to Error", StateCompleted, StateError, true},
		{"Error is terminal", StateError, StateReceived, false},
		{"No skipping payment", StateReceived, StateContentGeneration, false},
		{"No going backwards", StateCompleted, StatePublishing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidTransition(tt.from, tt.to))
		})
	}
}

func TestStateTransitionsClosedOverKnownStates(t *testing.T) {
	allStates := []OrderState{
		StateReceived, StatePaymentVerified, StateContentGeneration,
		StateContentReview, StatePublishing, StatePartialCompletion,
		StateCompleted, StateError,
	}

	// Every state appears in the table and only targets known states.
	for _, state := range allStates {
		targets, ok := StateTransitions[state]
		assert.True(t, ok, "state %s missing from transition table", state)
		for _, target := range targets {
			assert.Contains(t, allStates, target)
		}
	}

	// ERROR has no way out.
	assert.Empty(t, StateTransitions[StateError])

	// Exhaustively: any pair not in the table is invalid.
	for _, from := range allStates {
		for _, to := range allStates {
			inTable := false
			for _, target := range StateTransitions[from] {
				if target == to {
					inTable = true
				}
			}
			assert.Equal(t, inTable, IsValidTransition(from, to), "%s -> %s", from, to)
		}
	}
}
