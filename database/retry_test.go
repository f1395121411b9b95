package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetry(clk *fakeclock.FakeClock, retries int) RetryConfig {
	return RetryConfig{
		MaxRetries:   retries,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2,
		Clock:        clk,
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	clk := fakeclock.NewFakeClock(time.Unix(0, 0))
	attempts := 0

	done := make(chan error, 1)
	go func() {
		done <- Retry(context.Background(), testRetry(clk, 3), func(context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("dial tcp: connection refused")
			}
			return nil
		})
	}()

	clk.WaitForWatcherAndIncrement(100 * time.Millisecond)
	clk.WaitForWatcherAndIncrement(200 * time.Millisecond)

	require.NoError(t, <-done)
	assert.Equal(t, 3, attempts)
}

func TestRetry_GivesUp(t *testing.T) {
	clk := fakeclock.NewFakeClock(time.Unix(0, 0))

	done := make(chan error, 1)
	go func() {
		done <- Retry(context.Background(), testRetry(clk, 1), func(context.Context) error {
			return errors.New("i/o timeout")
		})
	}()

	clk.WaitForWatcherAndIncrement(100 * time.Millisecond)

	err := <-done
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries (1) exceeded")
}

func TestRetry_PermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"server error", fmt.Errorf("connect: %w", &pgconn.PgError{Code: "28P01", Message: "password authentication failed"})},
		{"cancelled", context.Canceled},
		{"deadline", context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := fakeclock.NewFakeClock(time.Unix(0, 0))
			attempts := 0

			err := Retry(context.Background(), testRetry(clk, 3), func(context.Context) error {
				attempts++
				return tt.err
			})

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, attempts)
		})
	}
}

func TestRetry_ContextCancelledWhileWaiting(t *testing.T) {
	clk := fakeclock.NewFakeClock(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Retry(ctx, testRetry(clk, 3), func(context.Context) error {
			return errors.New("connection reset")
		})
	}()

	require.Eventually(t, func() bool { return clk.WatcherCount() > 0 }, time.Second, time.Millisecond)
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, backoff(cfg, 0))
	assert.Equal(t, 400*time.Millisecond, backoff(cfg, 2))
	assert.Equal(t, time.Second, backoff(cfg, 10), "capped at MaxDelay")

	cfg.Jitter = 0.2
	for i := 0; i < 50; i++ {
		d := backoff(cfg, 0)
		assert.GreaterOrEqual(t, d, 80*time.Millisecond)
		assert.LessOrEqual(t, d, 120*time.Millisecond)
	}
}
