package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarItemsRanksByCosine(t *testing.T) {
	e, _, _ := newTestEngine(t, true)

	items, err := e.SimilarItems(context.Background(), "m1", 10, nil)
	require.NoError(t, err)

	// m2 is nearly parallel to m1, m4 diagonal, m3 orthogonal; the
	// zero-vector m5 and m1 itself never appear.
	require.Len(t, items, 3)
	assert.Equal(t, "m2", items[0].ID)
	assert.Equal(t, "m4", items[1].ID)
	assert.Equal(t, "m3", items[2].ID)

	assert.InDelta(t, 0.9939, items[0].Score, 1e-3)
	assert.InDelta(t, 0.7071, items[1].Score, 1e-3)
	assert.InDelta(t, 0.0, items[2].Score, 1e-9)
}

func TestSimilarItemsExcludesSelf(t *testing.T) {
	e, _, _ := newTestEngine(t, true)

	items, err := e.SimilarItems(context.Background(), "m1", 10, nil)
	require.NoError(t, err)
	for _, item := range items {
		assert.NotEqual(t, "m1", item.ID)
	}
}

func TestSimilarItemsUnknownMovieIsEmpty(t *testing.T) {
	e, _, _ := newTestEngine(t, true)

	items, err := e.SimilarItems(context.Background(), "m404", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSimilarItemsZeroVectorQueryIsEmpty(t *testing.T) {
	e, _, _ := newTestEngine(t, true)

	items, err := e.SimilarItems(context.Background(), "m5", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSimilarItemsRespectsExcludeSet(t *testing.T) {
	e, _, _ := newTestEngine(t, true)

	exclude := map[string]struct{}{"m2": {}}
	items, err := e.SimilarItems(context.Background(), "m1", 10, exclude)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "m4", items[0].ID)
	assert.Equal(t, "m3", items[1].ID)
}

func TestSimilarItemsTruncatesToN(t *testing.T) {
	e, _, _ := newTestEngine(t, true)

	items, err := e.SimilarItems(context.Background(), "m1", 1, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "m2", items[0].ID)
}

func TestSimilarItemsInvalidCount(t *testing.T) {
	e, _, _ := newTestEngine(t, true)

	_, err := e.SimilarItems(context.Background(), "m1", 0, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSimilarItemsNotReady(t *testing.T) {
	e, _, _ := newTestEngine(t, false)

	_, err := e.SimilarItems(context.Background(), "m1", 10, nil)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestSimilarItemsDeterministic(t *testing.T) {
	e, _, _ := newTestEngine(t, true)

	first, err := e.SimilarItems(context.Background(), "m1", 10, nil)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.SimilarItems(context.Background(), "m1", 10, nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
