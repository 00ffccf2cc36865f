package models

import "time"

// OrderState represents a stage in the order lifecycle
type OrderState string

const (
	StateReceived          OrderState = "RECEIVED"
	StatePaymentVerified   OrderState = "PAYMENT_VERIFIED"
	StateContentGeneration OrderState = "CONTENT_GENERATION"
	StateContentReview     OrderState = "CONTENT_REVIEW"
	StatePublishing        OrderState = "PUBLISHING"
	StatePartialCompletion OrderState = "PARTIAL_COMPLETION"
	StateCompleted         OrderState = "COMPLETED"
	StateError             OrderState = "ERROR"
)

// StateTransitions is the full lifecycle transition table. Transition
// legality is checked against this table and nowhere else.
var StateTransitions = map[OrderState][]OrderState{
	StateReceived:          {StatePaymentVerified, StateError},
	StatePaymentVerified:   {StateContentGeneration, StateError},
	StateContentGeneration: {StateContentReview, StateError, StatePartialCompletion},
	StateContentReview:     {StatePublishing, StateError, StatePartialCompletion},
	StatePublishing:        {StateCompleted, StateError, StatePartialCompletion},
	StatePartialCompletion: {StatePublishing, StateError},
	StateCompleted:         {StateError},
	StateError:             {}, // Terminal state, no transitions out
}

// IsValidTransition reports whether the lifecycle table permits from -> to.
func IsValidTransition(from, to OrderState) bool {
	for _, allowed := range StateTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// StateChange is a single entry in an order's history
type StateChange struct {
	State     OrderState `json:"state"`
	Timestamp time.Time  `json:"timestamp"`
}
