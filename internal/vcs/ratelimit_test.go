// internal/vcs/ratelimit_test.go
package vcs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateTrackerWaitFreshToken(t *testing.T) {
	tr := NewRateTracker(0)
	start := time.Now()
	require.NoError(t, tr.Wait(context.Background(), "tok"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestRateTrackerRefillsAfterReset(t *testing.T) {
	tr := NewRateTracker(0)
	tr.Update("tok", 0, time.Now().Add(-time.Second))

	start := time.Now()
	require.NoError(t, tr.Wait(context.Background(), "tok"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestRateTrackerBlocksUntilReset(t *testing.T) {
	tr := NewRateTracker(0)
	tr.Update("tok", 0, time.Now().Add(60*time.Millisecond))

	start := time.Now()
	require.NoError(t, tr.Wait(context.Background(), "tok"))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRateTrackerMinDelay(t *testing.T) {
	tr := NewRateTracker(40 * time.Millisecond)
	ctx := context.Background()
	require.NoError(t, tr.Wait(ctx, "tok"))

	start := time.Now()
	require.NoError(t, tr.Wait(ctx, "tok"))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRateTrackerTokensAreIndependent(t *testing.T) {
	tr := NewRateTracker(0)
	tr.Update("exhausted", 0, time.Now().Add(time.Hour))

	start := time.Now()
	require.NoError(t, tr.Wait(context.Background(), "other"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestRateTrackerWaitHonorsContext(t *testing.T) {
	tr := NewRateTracker(0)
	tr.Update("tok", 0, time.Now().Add(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := tr.Wait(ctx, "tok")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
