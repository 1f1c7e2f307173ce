// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package backoff retries operations with exponential backoff and jitter.
package backoff

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	// DefaultInitialDelay is the delay before the second attempt.
	DefaultInitialDelay = 500 * time.Millisecond
	// DefaultMaxDelay caps the delay between attempts.
	DefaultMaxDelay = 10 * time.Second
)

// Policy configures Retry.
type Policy struct {
	// MaxAttempts is the total number of attempts. Values below 1 mean a single attempt.
	MaxAttempts int
	// InitialDelay is the delay before the second attempt. Zero uses DefaultInitialDelay.
	InitialDelay time.Duration
	// MaxDelay caps the delay between attempts. Zero uses DefaultMaxDelay.
	MaxDelay time.Duration
}

// Retry calls f until it succeeds, returns a non-retryable error, or
// MaxAttempts is reached.
//
// f returns the result, whether its error is retryable, and the error. The
// delay doubles after every attempt and is jittered to between half and all of
// its value.
func Retry[T any](
	ctx context.Context,
	policy Policy,
	f func(ctx context.Context, attempt int) (T, bool, error),
) (T, error) {
	var zero T
	maxAttempts := max(policy.MaxAttempts, 1)
	delay := policy.InitialDelay
	if delay <= 0 {
		delay = DefaultInitialDelay
	}
	maxDelay := policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	for attempt := range maxAttempts {
		result, retryable, err := f(ctx, attempt)
		if err == nil {
			return result, nil
		}
		if !retryable || maxAttempts == 1 {
			return zero, err
		}
		if attempt == maxAttempts-1 {
			return zero, fmt.Errorf("failed after %d attempts: %w", maxAttempts, err)
		}
		jitteredDelay := delay/2 + time.Duration(rand.Int64N(int64(delay/2+1)))
		timer := time.NewTimer(jitteredDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxDelay)
	}
	return zero, fmt.Errorf("failed after %d attempts", maxAttempts)
}
