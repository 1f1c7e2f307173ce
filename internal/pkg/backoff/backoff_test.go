// Copyright 2026 Peter Edge
//
// All rights reserved.

package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsAfterRetryableErrors(t *testing.T) {
	t.Parallel()
	var attempts []int
	result, err := Retry(
		context.Background(),
		Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
		func(_ context.Context, attempt int) (string, bool, error) {
			attempts = append(attempts, attempt)
			if attempt < 2 {
				return "", true, errors.New("unavailable")
			}
			return "ok", false, nil
		},
	)
	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, []int{0, 1, 2}, attempts)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	t.Parallel()
	calls := 0
	wantErr := errors.New("bad request")
	_, err := Retry(
		context.Background(),
		Policy{MaxAttempts: 5, InitialDelay: time.Millisecond},
		func(context.Context, int) (int, bool, error) {
			calls++
			return 0, false, wantErr
		},
	)
	require.ErrorIs(t, err, wantErr)
	require.Equal(t, 1, calls)
}

func TestRetryExhausted(t *testing.T) {
	t.Parallel()
	calls := 0
	wantErr := errors.New("unavailable")
	_, err := Retry(
		context.Background(),
		Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		func(context.Context, int) (int, bool, error) {
			calls++
			return 0, true, wantErr
		},
	)
	require.ErrorIs(t, err, wantErr)
	require.ErrorContains(t, err, "failed after 3 attempts")
	require.Equal(t, 3, calls)
}

func TestRetrySingleAttempt(t *testing.T) {
	t.Parallel()
	wantErr := errors.New("unavailable")
	_, err := Retry(
		context.Background(),
		Policy{},
		func(context.Context, int) (int, bool, error) {
			return 0, true, wantErr
		},
	)
	require.Equal(t, wantErr, err)
}

func TestRetryContextCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	_, err := Retry(
		ctx,
		Policy{MaxAttempts: 3, InitialDelay: time.Hour},
		func(context.Context, int) (int, bool, error) {
			cancel()
			return 0, true, errors.New("unavailable")
		},
	)
	require.ErrorIs(t, err, context.Canceled)
}
