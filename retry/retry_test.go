package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 3, Delay: time.Millisecond}, "page", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("net::ERR_CONNECTION_RESET")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ReturnsLastError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 2, Delay: time.Millisecond}, "https://example.test/x", func(context.Context) error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "https://example.test/x")
	assert.Equal(t, 2, calls)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), Policy{}, "x", func(context.Context) error {
		calls++
		return errors.New("fail")
	})
	assert.Equal(t, 1, calls)
}

func TestDo_NoDelayAfterLastAttempt(t *testing.T) {
	start := time.Now()
	_ = Do(context.Background(), Policy{Attempts: 1, Delay: time.Hour}, "x", func(context.Context) error {
		return errors.New("fail")
	})
	assert.Less(t, time.Since(start), time.Second)
}

func TestDo_CancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{Attempts: 5, Delay: time.Hour}, "x", func(context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, Sleep(ctx, 0), context.Canceled)
}
