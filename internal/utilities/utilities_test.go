package utilities

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	t.Parallel()

	d, err := Parse("5")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)

	d, err = Parse(" 250ms ")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	d, err = Parse("2.5")
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, d)

	_, err = Parse("")
	assert.Error(t, err)

	_, err = Parse("NaN")
	assert.Error(t, err)

	_, err = Parse("soon")
	assert.Error(t, err)

	d, err = ParseOrDefault("", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)
}

func TestRetryWithBackoffSucceeds(t *testing.T) {
	t.Parallel()

	calls := 0
	var waits []time.Duration
	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, 0, time.Millisecond, 3*time.Millisecond, func(_ int, _ error, wait time.Duration) {
		waits = append(waits, wait)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestRetryWithBackoffGivesUp(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	calls := 0
	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		return boom
	}, 2, time.Millisecond, time.Millisecond, nil)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestRetryWithBackoffStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryWithBackoff(ctx, func() error { return errors.New("down") }, 0, time.Hour, time.Hour, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPtrHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, *Ptr(3))
	assert.Equal(t, "x", Deref[string](nil, "x"))
	assert.Equal(t, "y", Deref(Ptr("y"), "x"))
}
