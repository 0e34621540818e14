package infra_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"avr-control/internal/infra"
)

func fastRetry() infra.RetryConfig {
	return infra.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetry(), func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	cause := errors.New("bad request")
	err := infra.WithRetry(context.Background(), fastRetry(), func() error {
		calls++
		return &infra.PermanentError{Err: cause}
	})
	if !errors.Is(err, cause) {
		t.Errorf("error: got %v, want %v", err, cause)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestForever_RunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs, failures atomic.Int32

	done := make(chan struct{})
	go func() {
		infra.Forever(ctx, time.Millisecond, func(context.Context) error {
			if runs.Add(1) >= 3 {
				cancel()
			}
			return errors.New("connection refused")
		}, func(error) {
			failures.Add(1)
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Forever did not return after cancel")
	}

	if runs.Load() < 3 {
		t.Errorf("runs: got %d, want at least 3", runs.Load())
	}
	if failures.Load() != 2 {
		t.Errorf("failures reported: got %d, want 2", failures.Load())
	}
}
