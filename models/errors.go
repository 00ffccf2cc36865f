package models

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode identifies the protocol error category reported to the caller
type ErrorCode string

const (
	CodeInvalidFormat     ErrorCode = "E001"
	CodePaymentFailed     ErrorCode = "E002"
	CodeContentGeneration ErrorCode = "E003"
	CodePublishingFailed  ErrorCode = "E004"
	CodeRateLimited       ErrorCode = "E005"
)

// ErrorKind drives retry classification. Only transient failures are
// absorbed by the stage executor; every other kind propagates immediately.
type ErrorKind int

const (
	KindFormat ErrorKind = iota
	KindPayment
	KindTransient
	KindState
	KindRateLimit
)

// TaapError is the structured error used across the pipeline.
type TaapError struct {
	Code    ErrorCode
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *TaapError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *TaapError) Unwrap() error {
	return e.Err
}

// NewFormatError reports malformed input. Never retried.
func NewFormatError(format string, args ...any) *TaapError {
	return &TaapError{Code: CodeInvalidFormat, Kind: KindFormat, Message: fmt.Sprintf(format, args...)}
}

// NewPaymentError reports a definitive payment negative. Never retried.
func NewPaymentError(format string, args ...any) *TaapError {
	return &TaapError{Code: CodePaymentFailed, Kind: KindPayment, Message: fmt.Sprintf(format, args...)}
}

// NewContentError reports a content generation or review failure.
// Transient so the synthesis stage may retry with a fresh generation.
func NewContentError(format string, args ...any) *TaapError {
	return &TaapError{Code: CodeContentGeneration, Kind: KindTransient, Message: fmt.Sprintf(format, args...)}
}

// NewContentRejection reports content rejected outright, such as a
// restricted-term hit during review or a missing content cache. Never retried.
func NewContentRejection(format string, args ...any) *TaapError {
	return &TaapError{Code: CodeContentGeneration, Kind: KindFormat, Message: fmt.Sprintf(format, args...)}
}

// NewPublishError reports a publishing infrastructure failure, retried per
// the publishing stage policy.
func NewPublishError(err error) *TaapError {
	return &TaapError{Code: CodePublishingFailed, Kind: KindTransient, Message: "publishing failed", Err: err}
}

// NewRateLimitError reports an exhausted sender quota.
func NewRateLimitError(address string) *TaapError {
	return &TaapError{Code: CodeRateLimited, Kind: KindRateLimit, Message: fmt.Sprintf("rate limit exceeded for %s", address)}
}

// NewTransientError wraps an infrastructure failure eligible for retry.
func NewTransientError(code ErrorCode, err error) *TaapError {
	return &TaapError{Code: code, Kind: KindTransient, Message: "transient failure", Err: err}
}

// InvalidTransitionError reports an illegal lifecycle transition. It names
// both states so the integrity fault is diagnosable.
type InvalidTransitionError struct {
	OrderID string
	From    OrderState
	To      OrderState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s for order %s", e.From, e.To, e.OrderID)
}

// OrderNotFoundError reports a lookup of an unknown order id.
type OrderNotFoundError struct {
	OrderID string
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order not found: %s", e.OrderID)
}

// Retryable reports whether err may consume retry budget. Uses errors.As to
// handle wrapped errors; unclassified errors count as transient
// infrastructure faults.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *TaapError
	if errors.As(err, &te) {
		return te.Kind == KindTransient
	}
	var ite *InvalidTransitionError
	var onf *OrderNotFoundError
	if errors.As(err, &ite) || errors.As(err, &onf) {
		return false
	}
	return true
}

// IsFormatError returns true for malformed command or content input.
func IsFormatError(err error) bool {
	var te *TaapError
	return errors.As(err, &te) && te.Kind == KindFormat
}

// IsPaymentError returns true for a definitive payment failure.
func IsPaymentError(err error) bool {
	var te *TaapError
	return errors.As(err, &te) && te.Kind == KindPayment
}

// IsRateLimitError returns true when a sender exceeded its quota.
func IsRateLimitError(err error) bool {
	var te *TaapError
	return errors.As(err, &te) && te.Kind == KindRateLimit
}

// IsStateError returns true for lifecycle integrity faults.
func IsStateError(err error) bool {
	var ite *InvalidTransitionError
	var onf *OrderNotFoundError
	return errors.As(err, &ite) || errors.As(err, &onf)
}

// AsErrorInfo maps any pipeline error onto the externally reported
// code/message pair. Unclassified errors surface as invalid format, matching
// the protocol's catch-all.
func AsErrorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	var te *TaapError
	if errors.As(err, &te) {
		return &ErrorInfo{Code: te.Code, Message: te.Error()}
	}
	return &ErrorInfo{Code: CodeInvalidFormat, Message: err.Error()}
}
