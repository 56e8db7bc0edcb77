package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func countingStrategy(name string, results ...error) (*int, Strategy[string]) {
	calls := 0
	return &calls, Strategy[string]{
		Name: name,
		Run: func(ctx context.Context) (string, error) {
			i := calls
			calls++
			if i < len(results) && results[i] != nil {
				return "", results[i]
			}
			return name, nil
		},
	}
}

func TestAttempt_FirstStrategySucceeds(t *testing.T) {
	calls, s := countingStrategy("primary")
	_, fallback := countingStrategy("fallback")

	got, err := Attempt(context.Background(), []Strategy[string]{s, fallback}, RetryPolicy{MaxAttempts: 3, Retryable: IsTransient})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "primary" || *calls != 1 {
		t.Errorf("Expected primary after 1 call, got %q after %d", got, *calls)
	}
}

func TestAttempt_RetriesTransient(t *testing.T) {
	calls, s := countingStrategy("primary", transient("a"), transient("a"))

	got, err := Attempt(context.Background(), []Strategy[string]{s}, RetryPolicy{MaxAttempts: 3, Retryable: IsTransient})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "primary" || *calls != 3 {
		t.Errorf("Expected success on third attempt, got %q after %d", got, *calls)
	}
}

func TestAttempt_NonTransientMovesOn(t *testing.T) {
	primaryCalls, primary := countingStrategy("primary", errors.New("bad request"))
	fallbackCalls, fallback := countingStrategy("fallback")

	got, err := Attempt(context.Background(), []Strategy[string]{primary, fallback}, RetryPolicy{MaxAttempts: 3, Retryable: IsTransient})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "fallback" {
		t.Errorf("Expected fallback, got %q", got)
	}
	if *primaryCalls != 1 || *fallbackCalls != 1 {
		t.Errorf("Expected 1 call each, got %d and %d", *primaryCalls, *fallbackCalls)
	}
}

func TestAttempt_AllFail(t *testing.T) {
	_, a := countingStrategy("a", transient("a"), transient("a"))
	_, b := countingStrategy("b", errors.New("boom"))

	_, err := Attempt(context.Background(), []Strategy[string]{a, b}, RetryPolicy{MaxAttempts: 2, Retryable: IsTransient})
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "b: boom") {
		t.Errorf("Expected last error to be reported, got %v", err)
	}
}

func TestAttempt_NoStrategies(t *testing.T) {
	if _, err := Attempt[string](context.Background(), nil, DefaultRetryPolicy); err == nil {
		t.Error("Expected error for empty strategy list")
	}
}

func TestAttempt_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, s := countingStrategy("a", transient("a"))

	_, err := Attempt(ctx, []Strategy[string]{s}, DefaultRetryPolicy)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
