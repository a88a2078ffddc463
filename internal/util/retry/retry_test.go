package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithExponentialBackoff_FirstAttemptSucceeds(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithExponentialBackoff_SucceedsAfterFailures(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("port not ready")
		}
		return nil
	}, WithInitialDelay(5*time.Millisecond))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithExponentialBackoff_Exhausted(t *testing.T) {
	t.Parallel()
	attempts := 0
	cause := errors.New("persistent")

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return cause
	}, WithMaxRetries(3), WithInitialDelay(time.Millisecond))

	require.Error(t, err)
	assert.Equal(t, 4, attempts, "one attempt plus three retries")
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, cause)
}

func TestWithExponentialBackoff_FatalStopsImmediately(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return Fatal(errors.New("invalid input"))
	}, WithInitialDelay(time.Millisecond))

	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.False(t, errors.Is(err, ErrExhausted))
	assert.Equal(t, 1, attempts)
}

func TestWithExponentialBackoff_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts := 0

	err := WithExponentialBackoff(ctx, func() error {
		attempts++
		return errors.New("error")
	}, WithInitialDelay(10*time.Millisecond))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestWithExponentialBackoff_OnRetry(t *testing.T) {
	t.Parallel()
	var seen []int

	err := WithExponentialBackoff(context.Background(), func() error {
		return errors.New("nope")
	},
		WithMaxRetries(2),
		WithConstantDelay(time.Millisecond),
		WithOnRetry(func(attempt int, _ error) { seen = append(seen, attempt) }),
	)

	require.Error(t, err)
	// The final failure is not retried, so the hook fires once per retry.
	assert.Equal(t, []int{1, 2}, seen)
}

func TestWithConstantDelay(t *testing.T) {
	t.Parallel()
	cfg := defaultConfig()
	WithConstantDelay(20 * time.Millisecond)(cfg)

	b := cfg.Backoff
	b.Steps = 10
	for i := 0; i < 3; i++ {
		assert.Equal(t, 20*time.Millisecond, b.Step())
	}
}

func TestWithJitter(t *testing.T) {
	t.Parallel()
	cfg := defaultConfig()
	WithInitialDelay(10 * time.Millisecond)(cfg)
	WithJitter(0.5)(cfg)

	b := cfg.Backoff
	d := b.Step()
	assert.GreaterOrEqual(t, d, 10*time.Millisecond)
	assert.LessOrEqual(t, d, 15*time.Millisecond)
}

func TestWithExponentialBackoff_DelayGrowsAndCaps(t *testing.T) {
	t.Parallel()
	var stamps []time.Time

	err := WithExponentialBackoff(context.Background(), func() error {
		stamps = append(stamps, time.Now())
		if len(stamps) < 4 {
			return errors.New("again")
		}
		return nil
	}, WithInitialDelay(20*time.Millisecond), WithMaxDelay(40*time.Millisecond))

	require.NoError(t, err)
	require.Len(t, stamps, 4)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 40*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[3].Sub(stamps[2]), 40*time.Millisecond)
}

func TestFatal(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Fatal(nil))

	base := errors.New("base")
	err := Fatal(base)
	assert.True(t, IsFatal(err))
	assert.Equal(t, "base", err.Error())
	assert.ErrorIs(t, err, base)
	assert.True(t, IsFatal(fmt.Errorf("context: %w", err)))
	assert.True(t, IsFatal(errors.Join(err, errors.New("more"))))
	assert.False(t, IsFatal(base))
}
