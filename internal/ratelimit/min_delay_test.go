package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMinDelaySpacer_EnforcesMinimumGap(t *testing.T) {
	s := NewMinDelaySpacer(40 * time.Millisecond)

	require.NoError(t, s.Take(context.Background()))
	start := time.Now()
	require.NoError(t, s.Take(context.Background()))
	elapsed := time.Since(start)

	// Jitter is ±delay/4, so the floor is delay - delay/4.
	require.GreaterOrEqual(t, elapsed, 25*time.Millisecond)
}

func TestMinDelaySpacer_FirstCallNeverWaits(t *testing.T) {
	s := NewMinDelaySpacer(time.Hour)
	start := time.Now()
	require.NoError(t, s.Take(context.Background()))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}
