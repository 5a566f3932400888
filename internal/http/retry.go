package http

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/steeplehq/pco-go/internal/constants"
	"github.com/steeplehq/pco-go/pkg/pco"
)

// RetryExecutor runs an operation and retries it on retryable failures with
// exponential backoff and jitter. Classification decides retryability unless
// the policy pins an explicit status list.
type RetryExecutor struct {
	policy  pco.RetryPolicy
	onRetry func(err *pco.TypedError, attempt int)
	logger  pco.Logger

	// Injected for tests.
	sleep func(ctx context.Context, d time.Duration) error
	randf func() float64
}

// NewRetryExecutor creates a retry executor. onRetry and logger may be nil.
func NewRetryExecutor(policy pco.RetryPolicy, onRetry func(err *pco.TypedError, attempt int), logger pco.Logger) *RetryExecutor {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}

	if policy.BaseDelay <= 0 {
		policy.BaseDelay = constants.DefaultRetryBaseDelay
	}

	if policy.MaxDelay <= 0 {
		policy.MaxDelay = constants.DefaultRetryMaxDelay
	}

	if policy.BackoffFactor <= 0 {
		policy.BackoffFactor = constants.ExponentialBackoffBase
	}

	return &RetryExecutor{
		policy:  policy,
		onRetry: onRetry,
		logger:  logger,
		sleep:   sleepContext,
		randf:   rand.Float64,
	}
}

// Execute runs operation up to MaxRetries+1 times. A failure that is not
// retryable is returned immediately; when every attempt fails, the last
// error is returned, never swallowed.
func (e *RetryExecutor) Execute(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= e.policy.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt == e.policy.MaxRetries {
			break
		}

		typed := pco.Classify(err)
		if !e.shouldRetry(typed) {
			return err
		}

		delay := e.backoffDelay(attempt)

		if e.logger != nil {
			e.logger.Warn("Retrying request", map[string]interface{}{
				"attempt": attempt + 1,
				"delay":   delay.String(),
				"error":   typed.Message,
			})
		}

		err = e.sleep(ctx, delay)
		if err != nil {
			return fmt.Errorf("waiting to retry: %w", err)
		}

		e.invokeOnRetry(typed, attempt+1)
	}

	return lastErr
}

// shouldRetry applies the explicit status list when configured, otherwise
// the classifier's retryable flag.
func (e *RetryExecutor) shouldRetry(typed *pco.TypedError) bool {
	if len(e.policy.RetryableStatuses) > 0 && typed.Status > 0 {
		for _, status := range e.policy.RetryableStatuses {
			if status == typed.Status {
				return true
			}
		}

		return false
	}

	return typed.Retryable
}

// backoffDelay computes the sleep before retrying after the given 0-based
// attempt: base * factor^attempt plus up to 10% jitter, capped at MaxDelay.
func (e *RetryExecutor) backoffDelay(attempt int) time.Duration {
	exponential := float64(e.policy.BaseDelay) * math.Pow(e.policy.BackoffFactor, float64(attempt))
	jitter := e.randf() * constants.RetryJitterFraction * exponential

	delay := time.Duration(exponential + jitter)
	if delay > e.policy.MaxDelay {
		delay = e.policy.MaxDelay
	}

	return delay
}

// invokeOnRetry calls the per-attempt callback isolated from the retry flow.
func (e *RetryExecutor) invokeOnRetry(typed *pco.TypedError, attempt int) {
	if e.onRetry == nil {
		return
	}

	defer func() {
		if recovered := recover(); recovered != nil && e.logger != nil {
			e.logger.Error("Retry callback panicked", map[string]interface{}{
				"panic": fmt.Sprintf("%v", recovered),
			})
		}
	}()

	e.onRetry(typed, attempt)
}

// sleepContext sleeps for d unless ctx is done first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)

	select {
	case <-ctx.Done():
		timer.Stop()

		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
