package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
)

// Strategy is one way of producing a result, e.g. one model
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// RetryPolicy bounds retries of a single strategy
type RetryPolicy struct {
	MaxAttempts int
	// Backoff is multiplied by the attempt number before each retry
	Backoff   time.Duration
	Retryable func(error) bool
}

// DefaultRetryPolicy retries transient provider errors three times
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	Backoff:     2 * time.Second,
	Retryable:   IsTransient,
}

// IsTransient reports whether err is a retryable provider failure
func IsTransient(err error) bool {
	var te *domain.TransientProviderError
	return errors.As(err, &te)
}

// Attempt runs strategies in order until one succeeds. A strategy failing
// with a retryable error is retried with linear backoff up to MaxAttempts;
// any other error moves on to the next strategy immediately.
func Attempt[T any](ctx context.Context, strategies []Strategy[T], policy RetryPolicy) (T, error) {
	var zero T
	if len(strategies) == 0 {
		return zero, errors.New("no strategies configured")
	}
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for _, s := range strategies {
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			v, err := s.Run(ctx)
			if err == nil {
				return v, nil
			}
			lastErr = fmt.Errorf("%s: %w", s.Name, err)

			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			if policy.Retryable == nil || !policy.Retryable(err) || attempt == maxAttempts {
				fmt.Printf("[Attempt] %s failed (attempt %d/%d), giving up on it: %v\n", s.Name, attempt, maxAttempts, err)
				break
			}

			wait := policy.Backoff * time.Duration(attempt)
			fmt.Printf("[Attempt] %s failed (attempt %d/%d), retrying in %s: %v\n", s.Name, attempt, maxAttempts, wait, err)
			if err := sleep(ctx, wait); err != nil {
				return zero, err
			}
		}
	}
	return zero, fmt.Errorf("all %d strategies failed, last: %w", len(strategies), lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
