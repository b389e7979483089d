package nonce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umagate/umagate/internal/clock"
	"github.com/umagate/umagate/internal/protocol"
)

func TestMemoryValidatorRejectsReplay(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	v := NewMemoryValidator(clk, DefaultRetention)
	ctx := context.Background()

	ts := clk.Now()
	require.NoError(t, v.CheckAndSave(ctx, "vasp1.example", "n1", ts))
	assert.ErrorIs(t, v.CheckAndSave(ctx, "vasp1.example", "n1", ts), protocol.ErrReplayedNonce)
}

func TestMemoryValidatorScopesByDomain(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	v := NewMemoryValidator(clk, DefaultRetention)
	ctx := context.Background()

	ts := clk.Now()
	require.NoError(t, v.CheckAndSave(ctx, "vasp1.example", "n1", ts))
	assert.NoError(t, v.CheckAndSave(ctx, "vasp2.example", "n1", ts))
}

func TestMemoryValidatorRejectsStaleTimestamps(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	v := NewMemoryValidator(clk, DefaultRetention)

	stale := clk.Now().Add(-DefaultRetention - time.Hour)
	assert.ErrorIs(t, v.CheckAndSave(context.Background(), "vasp1.example", "n1", stale), protocol.ErrReplayedNonce)
}

func TestMemoryValidatorPrunesExpiredEntries(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	v := NewMemoryValidator(clk, time.Hour)
	ctx := context.Background()

	require.NoError(t, v.CheckAndSave(ctx, "vasp1.example", "n1", clk.Now()))

	clk.Advance(2 * time.Hour)
	// The pair has aged out, and its timestamp is now outside the window,
	// so a replay attempt still fails on staleness.
	assert.Error(t, v.CheckAndSave(ctx, "vasp1.example", "n1", clk.Now().Add(-2*time.Hour)))
	// A fresh nonce from the same domain is admitted.
	assert.NoError(t, v.CheckAndSave(ctx, "vasp1.example", "n2", clk.Now()))
}
