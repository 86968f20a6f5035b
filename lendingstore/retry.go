package lendingstore

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3

	retryDelayMetric      = "lendingstore_retry_delay"
	retryAttemptsMetric   = "lendingstore_retries"
	maxRetriesMetric      = "lendingstore_max_retries_reached"
	labelOperation        = "operation"
	labelAttemptNumber    = "attempt_number"
	labelErrorType        = "error_type"
	labelFinalErrorType   = "final_error_type"
	errorTypeLockTimeout  = "lock_timeout"
	errorTypeCtxCanceled  = "context_canceled"
	errorTypeCtxDeadline  = "context_deadline_exceeded"
	errorTypeNone         = "none"
	errorTypeOther        = "other"
)

var (
	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// RetryableFunc represents a function that can be retried.
type RetryableFunc func(ctx context.Context) error

// retryConfig holds configuration for exponential backoff retry logic.
type retryConfig struct {
	maxAttempts      int
	baseDelay        time.Duration
	jitterFactor     float64
	metricsCollector MetricsCollector
	operation        string
}

// RetryWithExponentialBackoff executes the provided function with exponential backoff,
// retrying only on transient lock timeouts (ErrLockTimeout) up to maxAttempts times.
//
// Retry Schedule (default): 0 ms, 10 ms, 20 ms, 40 ms, 80 ms (with 30% jitter)
// Total Duration: ~ 200 ms worst case
// Use Case: contended borrow/return operations on the same title under high load
//
// All other errors fail fast. A context.DeadlineExceeded is NOT retried - retrying
// timeouts during overload creates cascade failures.
func RetryWithExponentialBackoff(
	ctx context.Context,
	fn RetryableFunc,
	options ...RetryOption,
) error {
	config := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return err
		}
	}

	var lastErr error

	for attempt := 0; attempt < config.maxAttempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff: baseDelay * 2^(attempt-1)
			delay := config.baseDelay * time.Duration(1<<(attempt-1))

			// Add jitter to prevent thundering herd
			jitter := rand.Float64() * float64(delay) * config.jitterFactor //nolint:gosec //math/rand is sufficient for jitter
			backoffDelay := delay + time.Duration(jitter)

			recordRetryDelayMetric(ctx, config, attempt, backoffDelay)

			select {
			case <-time.After(backoffDelay):
				// Continue with retry
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil // Success
		}

		if !isRetryableError(lastErr) {
			return lastErr // Permanent failure
		}

		recordRetryAttemptMetric(ctx, attempt, config, lastErr)
	}

	recordMaxRetriesReachedMetric(ctx, config, lastErr)

	return lastErr // Max attempts reached
}

// recordRetryDelayMetric records the actual backoff delay before each retry attempt.
func recordRetryDelayMetric(ctx context.Context, config *retryConfig, attempt int, backoffDelay time.Duration) {
	if config.metricsCollector != nil {
		delayLabels := map[string]string{
			labelOperation:     config.operation,
			labelAttemptNumber: fmt.Sprintf("%d", attempt),
		}

		if contextualCollector, ok := config.metricsCollector.(ContextualMetricsCollector); ok {
			contextualCollector.RecordDurationContext(ctx, retryDelayMetric, backoffDelay, delayLabels)
		} else {
			config.metricsCollector.RecordDuration(retryDelayMetric, backoffDelay, delayLabels)
		}
	}
}

// recordRetryAttemptMetric tracks retry attempts by operation, attempt number, and error type.
func recordRetryAttemptMetric(ctx context.Context, attempt int, config *retryConfig, lastErr error) {
	if attempt < config.maxAttempts-1 && config.metricsCollector != nil {
		retryLabels := map[string]string{
			labelOperation:     config.operation,
			labelAttemptNumber: fmt.Sprintf("%d", attempt+1),
			labelErrorType:     getErrorType(lastErr),
		}

		if contextualCollector, ok := config.metricsCollector.(ContextualMetricsCollector); ok {
			contextualCollector.IncrementCounterContext(ctx, retryAttemptsMetric, retryLabels)
		} else {
			config.metricsCollector.IncrementCounter(retryAttemptsMetric, retryLabels)
		}
	}
}

// recordMaxRetriesReachedMetric tracks when retry exhaustion occurs with the final error type.
func recordMaxRetriesReachedMetric(ctx context.Context, config *retryConfig, lastErr error) {
	if config.metricsCollector != nil {
		maxRetriesLabels := map[string]string{
			labelOperation:      config.operation,
			labelFinalErrorType: getErrorType(lastErr),
		}

		if contextualCollector, ok := config.metricsCollector.(ContextualMetricsCollector); ok {
			contextualCollector.IncrementCounterContext(ctx, maxRetriesMetric, maxRetriesLabels)
		} else {
			config.metricsCollector.IncrementCounter(maxRetriesMetric, maxRetriesLabels)
		}
	}
}

// isRetryableError determines if an error should be retried.
// Only transient lock timeouts are retryable - not-found and conflict failures are
// permanent answers, and retrying them verbatim cannot succeed.
func isRetryableError(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}

// getErrorType extracts a string representation of the error type for metrics labeling.
func getErrorType(err error) string {
	if err == nil {
		return errorTypeNone
	}
	if errors.Is(err, ErrLockTimeout) {
		return errorTypeLockTimeout
	}
	if errors.Is(err, context.Canceled) {
		return errorTypeCtxCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errorTypeCtxDeadline
	}

	return errorTypeOther
}

// RetryOption configures retry behavior using the functional options pattern.
type RetryOption func(*retryConfig) error

// WithMaxAttempts sets the maximum number of retry attempts.
func WithMaxAttempts(attempts int) RetryOption {
	return func(config *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		config.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
// Actual delays: baseDelay, baseDelay*2, baseDelay*4, baseDelay*8, etc.
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(config *retryConfig) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		config.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter factor applied to each backoff delay.
func WithJitterFactor(factor float64) RetryOption {
	return func(config *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		config.jitterFactor = factor

		return nil
	}
}

// WithRetryMetrics enables retry metrics, labeled with the given operation name.
func WithRetryMetrics(collector MetricsCollector, operation string) RetryOption {
	return func(config *retryConfig) error {
		config.metricsCollector = collector
		config.operation = operation

		return nil
	}
}
