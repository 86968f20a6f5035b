package lendingstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/askard/lendingstore-go/lendingstore"
)

func Test_RetryWithExponentialBackoff_When_FirstAttemptSucceeds(t *testing.T) {
	// setup
	attempts := 0

	// act
	err := lendingstore.RetryWithExponentialBackoff(context.Background(), func(_ context.Context) error {
		attempts++

		return nil
	})

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 1, attempts, "a successful call must not be retried")
}

func Test_RetryWithExponentialBackoff_When_LockTimeoutsAreTransient(t *testing.T) {
	// setup
	attempts := 0

	// act
	err := lendingstore.RetryWithExponentialBackoff(context.Background(), func(_ context.Context) error {
		attempts++
		if attempts < 3 {
			return lendingstore.ErrLockTimeout
		}

		return nil
	}, lendingstore.WithBaseDelay(time.Millisecond))

	// assert
	assert.NoError(t, err, "the call should eventually succeed")
	assert.Equal(t, 3, attempts)
}

func Test_RetryWithExponentialBackoff_When_LockTimeoutsPersist(t *testing.T) {
	// setup
	attempts := 0

	// act
	err := lendingstore.RetryWithExponentialBackoff(context.Background(), func(_ context.Context) error {
		attempts++

		return lendingstore.ErrLockTimeout
	}, lendingstore.WithMaxAttempts(3), lendingstore.WithBaseDelay(time.Millisecond))

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrLockTimeout)
	assert.Equal(t, 3, attempts, "retries must stop at the attempt limit")
}

func Test_RetryWithExponentialBackoff_When_ErrorIsPermanent(t *testing.T) {
	// setup
	attempts := 0

	// act
	err := lendingstore.RetryWithExponentialBackoff(context.Background(), func(_ context.Context) error {
		attempts++

		return lendingstore.ErrBookUnavailable
	})

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrBookUnavailable)
	assert.Equal(t, 1, attempts, "permanent errors must fail fast")
}

func Test_RetryWithExponentialBackoff_When_ContextIsCanceled(t *testing.T) {
	// setup
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// act
	err := lendingstore.RetryWithExponentialBackoff(ctx, func(_ context.Context) error {
		return lendingstore.ErrLockTimeout
	}, lendingstore.WithBaseDelay(10*time.Millisecond))

	// assert
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_RetryWithExponentialBackoff_When_OptionsAreInvalid(t *testing.T) {
	// setup
	noOp := func(_ context.Context) error { return nil }

	// act + assert
	err := lendingstore.RetryWithExponentialBackoff(context.Background(), noOp,
		lendingstore.WithMaxAttempts(0))
	assert.ErrorIs(t, err, lendingstore.ErrInvalidMaxAttempts)

	err = lendingstore.RetryWithExponentialBackoff(context.Background(), noOp,
		lendingstore.WithBaseDelay(-time.Millisecond))
	assert.ErrorIs(t, err, lendingstore.ErrNegativeBaseDelay)

	err = lendingstore.RetryWithExponentialBackoff(context.Background(), noOp,
		lendingstore.WithJitterFactor(1.5))
	assert.ErrorIs(t, err, lendingstore.ErrInvalidJitterFactor)
}

func Test_RetryWithExponentialBackoff_When_ErrorWrapsTheLockTimeout(t *testing.T) {
	// setup
	attempts := 0
	wrapped := errors.Join(lendingstore.ErrLockTimeout, errors.New("could not lock book row"))

	// act
	err := lendingstore.RetryWithExponentialBackoff(context.Background(), func(_ context.Context) error {
		attempts++
		if attempts < 2 {
			return wrapped
		}

		return nil
	}, lendingstore.WithBaseDelay(time.Millisecond))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 2, attempts, "wrapped lock timeouts must still be retried")
}
