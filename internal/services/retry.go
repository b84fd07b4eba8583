package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	defaultRetryMaxRetries = 3
	defaultRetryBaseDelay  = 1 * time.Second
	defaultRetryMaxDelay   = 30 * time.Second
)

// RetryPolicy describes how a fallible operation is repeated.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the wait before the first retry; it doubles per retry.
	BaseDelay time.Duration
	// MaxDelay caps a single wait.
	MaxDelay time.Duration
	// Jitter randomizes each wait within [delay/2, delay].
	Jitter bool
	// Sleep overrides how waits are performed (useful for tests).
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is invoked before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryPolicy returns three retries starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: defaultRetryMaxRetries,
		BaseDelay:  defaultRetryBaseDelay,
		MaxDelay:   defaultRetryMaxDelay,
	}
}

// Attempts returns the total number of calls the policy allows.
func (p RetryPolicy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Delay returns the wait before retry number n (1-based).
func (p RetryPolicy) Delay(n int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		return 0
	}
	if n <= 0 {
		n = 1
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}

	// retry 1 -> base, retry 2 -> base*2, retry 3 -> base*4, ...
	delay := base
	for i := 1; i < n; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	if p.Jitter && delay > 1 {
		half := delay / 2
		delay = half + time.Duration(rand.Int64N(int64(half)+1))
	}
	return delay
}

// Retry runs op until it succeeds, returns an error the retryable predicate
// rejects, or the policy runs out of attempts. A nil predicate uses IsRetryable.
func Retry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) error, retryable func(error) bool) error {
	if op == nil {
		return errors.New("retry: nil operation")
	}
	if retryable == nil {
		retryable = IsRetryable
	}
	attempts := policy.Attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == attempts || !retryable(err) {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delay := policy.Delay(attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, delay, err)
		}
		if err := policy.sleep(ctx, delay); err != nil {
			return err
		}
	}
	if attempts > 1 && retryable(lastErr) {
		return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
	}
	return lastErr
}

func (p RetryPolicy) sleep(ctx context.Context, delay time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, delay)
	}
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
