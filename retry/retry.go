// Package retry runs pipeline stages under bounded-retry, bounded-duration
// policies with capped exponential backoff. It is the single place backoff
// and timeout policy is applied; stage business logic never duplicates it.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taap-agent-system/models"
)

// Stage names one retry-protected unit of pipeline work
type Stage string

const (
	StageOrderParse          Stage = "ORDER_PARSE"
	StagePaymentVerification Stage = "PAYMENT_VERIFICATION"
	StageContentGeneration   Stage = "CONTENT_GENERATION"
	StageContentReview       Stage = "CONTENT_REVIEW"
	StagePublishing          Stage = "PUBLISHING"
)

// Policy bounds a stage's execution: a maximum retry count and a wall-clock
// budget measured from the first attempt.
type Policy struct {
	MaxRetries int
	Timeout    time.Duration
}

// StagePolicies holds the fixed per-stage budgets.
var StagePolicies = map[Stage]Policy{
	StageOrderParse:          {MaxRetries: 0, Timeout: 30 * time.Second},
	StagePaymentVerification: {MaxRetries: 2, Timeout: 5 * time.Minute},
	StageContentGeneration:   {MaxRetries: 1, Timeout: 15 * time.Minute},
	StageContentReview:       {MaxRetries: 1, Timeout: 10 * time.Minute},
	StagePublishing:          {MaxRetries: 2, Timeout: 5 * time.Minute},
}

const (
	defaultBackoffUnit = time.Second
	defaultBackoffCap  = 30 * time.Second
)

// TimeoutError reports a stage that exhausted its wall-clock budget.
type TimeoutError struct {
	Stage   Stage
	Elapsed time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("stage %s timed out after %s: %v", e.Stage, e.Elapsed, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// IsTimeout returns true if the error is a stage timeout. Uses errors.As to
// handle wrapped errors.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Executor retries one stage's operation under its policy.
type Executor struct {
	stage       Stage
	policy      Policy
	backoffUnit time.Duration
	backoffCap  time.Duration
	attempts    int
}

// Option adjusts an Executor, primarily for tests.
type Option func(*Executor)

// WithPolicy overrides the stage's default policy.
func WithPolicy(p Policy) Option {
	return func(e *Executor) { e.policy = p }
}

// WithBackoff overrides the backoff unit and cap. The backoff formula stays
// min(2^attempt * unit, cap).
func WithBackoff(unit, cap time.Duration) Option {
	return func(e *Executor) {
		e.backoffUnit = unit
		e.backoffCap = cap
	}
}

// New builds an executor for the given stage using its fixed policy.
func New(stage Stage, opts ...Option) *Executor {
	e := &Executor{
		stage:       stage,
		policy:      StagePolicies[stage],
		backoffUnit: defaultBackoffUnit,
		backoffCap:  defaultBackoffCap,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Attempts returns the number of operation invocations of the last Execute.
func (e *Executor) Attempts() int {
	return e.attempts
}

// Execute runs op until it succeeds, its retry budget is exhausted, or the
// stage's wall-clock budget runs out. Only transient failures consume
// retries; every other error kind propagates immediately. A backoff sleep
// that would cross the timeout boundary is cut short and surfaced as a
// timeout rather than silently completing a late attempt.
func (e *Executor) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	start := time.Now()
	deadline := start.Add(e.policy.Timeout)
	e.attempts = 0

	var lastErr error
	for attempt := 0; ; attempt++ {
		e.attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !models.Retryable(err) {
			return err
		}
		if time.Since(start) > e.policy.Timeout {
			return &TimeoutError{Stage: e.stage, Elapsed: time.Since(start), Err: lastErr}
		}
		if attempt >= e.policy.MaxRetries {
			return lastErr
		}

		backoff := e.backoffFor(attempt + 1)
		if remaining := time.Until(deadline); backoff > remaining {
			// The full backoff would overrun the stage budget.
			if remaining > 0 {
				if err := sleep(ctx, remaining); err != nil {
					return err
				}
			}
			return &TimeoutError{Stage: e.stage, Elapsed: time.Since(start), Err: lastErr}
		}
		if err := sleep(ctx, backoff); err != nil {
			return err
		}
	}
}

// backoffFor computes min(2^attempt * unit, cap).
func (e *Executor) backoffFor(attempt int) time.Duration {
	if attempt > 30 {
		return e.backoffCap
	}
	backoff := time.Duration(1<<uint(attempt)) * e.backoffUnit
	if backoff > e.backoffCap || backoff <= 0 {
		return e.backoffCap
	}
	return backoff
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
