package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Backoff names a delay growth curve between retry attempts.
type Backoff string

const (
	// BackoffConstant waits InitialDelay before every retry.
	BackoffConstant Backoff = "constant"

	// BackoffLinear grows the delay by InitialDelay per attempt.
	BackoffLinear Backoff = "linear"

	// BackoffExponential doubles the delay per attempt.
	BackoffExponential Backoff = "exponential"
)

// RetryPolicy drives handler-side retries. The orchestrator never retries a
// node on its own; handlers that own transient failures (the http and llm
// handlers do) wrap the failing call in Do.
//
// Whether an error retries is decided by Retryable: a *NodeError is
// consulted through its own Retryable flag, anything else is matched
// against the RetryOn substrings (an empty RetryOn retries every error).
type RetryPolicy struct {
	// MaxAttempts counts the first call too; 1 (or less) disables retries.
	MaxAttempts int

	InitialDelay time.Duration
	MaxDelay     time.Duration
	Backoff      Backoff

	// RetryOn holds substrings matched against non-NodeError messages.
	RetryOn []string

	// OnRetry fires before each sleep, with the attempt that just failed.
	OnRetry func(attempt int, err error)
}

// DefaultRetryPolicy is the policy the built-in network handlers start
// with: three attempts, exponential backoff from half a second.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Backoff:      BackoffExponential,
	}
}

// NoRetry disables retries; Do calls the function exactly once.
func NoRetry() *RetryPolicy {
	return &RetryPolicy{MaxAttempts: 1}
}

// Retryable reports whether the policy would retry the given error.
func (rp *RetryPolicy) Retryable(err error) bool {
	if err == nil {
		return false
	}

	var ne *NodeError
	if errors.As(err, &ne) {
		return ne.Retryable
	}

	if len(rp.RetryOn) == 0 {
		return true
	}
	msg := err.Error()
	for _, pattern := range rp.RetryOn {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// Delay returns the sleep before the retry following the given attempt.
func (rp *RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 || rp.InitialDelay <= 0 {
		return 0
	}

	delay := rp.InitialDelay
	switch rp.Backoff {
	case BackoffLinear:
		delay = rp.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		for i := 1; i < attempt; i++ {
			delay *= 2
			if rp.MaxDelay > 0 && delay >= rp.MaxDelay {
				break
			}
		}
	}

	if rp.MaxDelay > 0 && delay > rp.MaxDelay {
		delay = rp.MaxDelay
	}
	return delay
}

// Do runs fn, retrying retryable failures until it succeeds, attempts run
// out, or ctx ends. The last error is returned as-is so callers keep their
// *NodeError.
func (rp *RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := rp.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("retry aborted: %w", ctxErr)
		}

		err := fn()
		if err == nil || attempt == attempts || !rp.Retryable(err) {
			return err
		}

		if rp.OnRetry != nil {
			rp.OnRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		case <-time.After(rp.Delay(attempt)):
		}
	}
}
