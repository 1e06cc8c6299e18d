package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopularFiltersByMinRatings(t *testing.T) {
	e, _, _ := newTestEngine(t, true)

	items, err := e.Popular(context.Background(), 10, 50)
	require.NoError(t, err)

	// m3 has only 5 observations and is dropped.
	require.Len(t, items, 4)
	assert.Equal(t, "m2", items[0].ID)
	assert.InDelta(t, 4.5, items[0].Score, 1e-9)
	assert.Equal(t, "m1", items[1].ID)
	assert.InDelta(t, 4.2, items[1].Score, 1e-9)
}

func TestPopularLowThresholdIncludesEverything(t *testing.T) {
	e, _, _ := newTestEngine(t, true)

	items, err := e.Popular(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.Len(t, items, 5)
}

func TestPopularTruncates(t *testing.T) {
	e, _, _ := newTestEngine(t, true)

	items, err := e.Popular(context.Background(), 2, 50)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "m2", items[0].ID)
	assert.Equal(t, "m1", items[1].ID)
}

func TestPopularIgnoresLiveLedger(t *testing.T) {
	e, _, ratings := newTestEngine(t, true)
	ctx := context.Background()

	before, err := e.Popular(ctx, 10, 50)
	require.NoError(t, err)

	// Live submissions only count after the next retrain.
	for i := 0; i < 10; i++ {
		_, err := ratings.Upsert(ctx, "u", "m3", 5.0, time.Now())
		require.NoError(t, err)
	}

	after, err := e.Popular(ctx, 10, 50)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPopularValidation(t *testing.T) {
	e, _, _ := newTestEngine(t, true)
	ctx := context.Background()

	_, err := e.Popular(ctx, 0, 50)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = e.Popular(ctx, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPopularNotReady(t *testing.T) {
	e, _, _ := newTestEngine(t, false)
	_, err := e.Popular(context.Background(), 10, 50)
	assert.ErrorIs(t, err, ErrNotReady)
}
