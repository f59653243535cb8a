package pending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest/pkg/platform/sentinel"
)

func TestMemoryTrackerSerializesPerCredential(t *testing.T) {
	tracker := NewMemory(time.Minute)
	ctx := context.Background()

	require.NoError(t, tracker.Begin(ctx, "55", "TX1"))

	err := tracker.Begin(ctx, "55", "TX2")
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	// A different credential is unaffected.
	require.NoError(t, tracker.Begin(ctx, "56", "TX3"))

	txID, err := tracker.InFlight(ctx, "55")
	require.NoError(t, err)
	assert.Equal(t, "TX1", txID)

	require.NoError(t, tracker.End(ctx, "55"))
	require.NoError(t, tracker.Begin(ctx, "55", "TX4"))
}

func TestMemoryTrackerEndIsIdempotent(t *testing.T) {
	tracker := NewMemory(time.Minute)
	ctx := context.Background()

	assert.NoError(t, tracker.End(ctx, "never-started"))
}

func TestMemoryTrackerExpiry(t *testing.T) {
	tracker := NewMemory(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, tracker.Begin(ctx, "55", "TX1"))
	time.Sleep(20 * time.Millisecond)

	// A crashed operation must not wedge the credential forever.
	assert.NoError(t, tracker.Begin(ctx, "55", "TX2"))

	txID, err := tracker.InFlight(ctx, "55")
	require.NoError(t, err)
	assert.Equal(t, "TX2", txID)
}
