package models

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryableClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"Format error", NewFormatError("bad command"), false},
		{"Payment error", NewPaymentError("insufficient balance"), false},
		{"Rate limit error", NewRateLimitError("0xabc"), false},
		{"Content rule violation", NewContentError("too short"), true},
		{"Content rejection", NewContentRejection("restricted term"), false},
		{"Publish failure", NewPublishError(errors.New("backend down")), true},
		{"Transient wrap", NewTransientError(CodePublishingFailed, errors.New("io")), true},
		{"Invalid transition", &InvalidTransitionError{OrderID: "ADS_1", From: StateReceived, To: StateCompleted}, false},
		{"Order not found", &OrderNotFoundError{OrderID: "ADS_1"}, false},
		{"Context cancel", context.Canceled, false},
		{"Unknown error counts as infra fault", errors.New("boom"), true},
		{"Wrapped format error", fmt.Errorf("stage: %w", NewFormatError("bad")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, Retryable(tt.err))
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsFormatError(NewFormatError("x")))
	assert.True(t, IsPaymentError(NewPaymentError("x")))
	assert.True(t, IsRateLimitError(NewRateLimitError("0xabc")))
	assert.True(t, IsStateError(&OrderNotFoundError{OrderID: "ADS_1"}))
	assert.True(t, IsStateError(&InvalidTransitionError{From: StateError, To: StateReceived}))
	assert.False(t, IsFormatError(NewPaymentError("x")))
}

func TestInvalidTransitionErrorNamesBothStates(t *testing.T) {
	err := &InvalidTransitionError{OrderID: "ADS_1", From: StateReceived, To: StateCompleted}
	assert.Contains(t, err.Error(), "RECEIVED")
	assert.Contains(t, err.Error(), "COMPLETED")
}

func TestAsErrorInfo(t *testing.T) {
	info := AsErrorInfo(NewPaymentError("insufficient balance"))
	assert.Equal(t, CodePaymentFailed, info.Code)

	info = AsErrorInfo(errors.New("unclassified"))
	assert.Equal(t, CodeInvalidFormat, info.Code)

	assert.Nil(t, AsErrorInfo(nil))
}
