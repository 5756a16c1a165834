package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_Delay(t *testing.T) {
	t.Parallel()

	rp := &RetryPolicy{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     300 * time.Millisecond,
		Backoff:      BackoffExponential,
	}

	assert.Equal(t, 100*time.Millisecond, rp.Delay(1))
	assert.Equal(t, 200*time.Millisecond, rp.Delay(2))
	// Capped at MaxDelay.
	assert.Equal(t, 300*time.Millisecond, rp.Delay(5))

	rp.Backoff = BackoffLinear
	assert.Equal(t, 200*time.Millisecond, rp.Delay(2))

	rp.Backoff = BackoffConstant
	assert.Equal(t, 100*time.Millisecond, rp.Delay(3))

	assert.Equal(t, time.Duration(0), rp.Delay(0))
}

func TestRetryPolicy_Retryable(t *testing.T) {
	t.Parallel()

	rp := &RetryPolicy{RetryOn: []string{"timeout", "503"}}

	assert.False(t, rp.Retryable(nil))
	assert.True(t, rp.Retryable(errors.New("request timeout")))
	assert.False(t, rp.Retryable(errors.New("bad request")))

	// A NodeError decides for itself regardless of RetryOn.
	assert.True(t, rp.Retryable(&NodeError{Message: "bad request", Retryable: true}))
	assert.False(t, rp.Retryable(&NodeError{Message: "timeout", Retryable: false}))

	// An empty RetryOn retries every plain error.
	assert.True(t, (&RetryPolicy{}).Retryable(errors.New("anything")))
}

func TestRetryPolicy_DoRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	rp := &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Backoff:      BackoffConstant,
	}

	var retried []int
	rp.OnRetry = func(attempt int, err error) {
		retried = append(retried, attempt)
	}

	calls := 0
	err := rp.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetryPolicy_DoGivesUp(t *testing.T) {
	t.Parallel()

	rp := &RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond}

	calls := 0
	err := rp.Do(context.Background(), func() error {
		calls++
		return &NodeError{Message: "still down", Retryable: true}
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)

	var ne *NodeError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "still down", ne.Message)
}

func TestRetryPolicy_DoStopsOnNonRetryable(t *testing.T) {
	t.Parallel()

	rp := &RetryPolicy{MaxAttempts: 5, InitialDelay: time.Millisecond}

	calls := 0
	err := rp.Do(context.Background(), func() error {
		calls++
		return &NodeError{Message: "fatal", Retryable: false}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_DoCancellation(t *testing.T) {
	t.Parallel()

	rp := &RetryPolicy{MaxAttempts: 10, InitialDelay: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := rp.Do(ctx, func() error {
		return &NodeError{Message: "keep trying", Retryable: true}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNoRetry_SingleCall(t *testing.T) {
	t.Parallel()

	calls := 0
	err := NoRetry().Do(context.Background(), func() error {
		calls++
		return &NodeError{Message: "down", Retryable: true}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
