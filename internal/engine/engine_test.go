package engine

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/cinerec/cinerec/internal/catalog"
	"github.com/cinerec/cinerec/internal/config"
	"github.com/cinerec/cinerec/internal/factors"
	"github.com/cinerec/cinerec/internal/ledger"
)

// fixtureModel builds a small hand-checkable snapshot: two known users,
// five items with two latent factors. m5 has a degenerate zero vector and
// m1/m2 point nearly the same way, so similarity orderings are predictable
// by inspection.
func fixtureModel() *factors.Model {
	meta := factors.Meta{
		Version:   "fixture-1",
		TrainedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Factors:   2,
		Epochs:    1,
	}
	return factors.New(meta, 3.5,
		[]string{"alice", "bob"},
		[]string{"m1", "m2", "m3", "m4", "m5"},
		mat.NewDense(2, 2, []float64{
			1, 0, // alice: aligned with m1/m2
			0, 1, // bob: aligned with m3
		}),
		mat.NewDense(5, 2, []float64{
			1, 0, // m1
			0.9, 0.1, // m2
			0, 1, // m3
			0.5, 0.5, // m4
			0, 0, // m5: zero vector
		}),
		[]float64{0.2, -0.1},
		[]float64{0.1, 0.0, -0.2, 0.05, 0.0},
		[]factors.ItemStat{
			{Count: 100, Sum: 420}, // m1: mean 4.2
			{Count: 60, Sum: 270},  // m2: mean 4.5
			{Count: 5, Sum: 15},    // m3: mean 3.0, below default threshold
			{Count: 80, Sum: 280},  // m4: mean 3.5
			{Count: 200, Sum: 600}, // m5: mean 3.0
		},
	)
}

func testConfig() *config.RecommendConfig {
	return &config.RecommendConfig{
		DefaultCount:      10,
		MaxCount:          50,
		LikedThreshold:    4.0,
		SimilarFanout:     20,
		PopularMinRatings: 50,
	}
}

func newTestEngine(t *testing.T, loaded bool) (*Engine, *factors.Store, *ledger.Memory) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	store := factors.NewStore()
	if loaded {
		store.Swap(fixtureModel())
	}
	ratings := ledger.NewMemory()
	e := New(store, ratings, catalog.Empty(), testConfig(), nil, logger)
	return e, store, ratings
}

func TestReady(t *testing.T) {
	e, store, _ := newTestEngine(t, false)
	assert.False(t, e.Ready())

	store.Swap(fixtureModel())
	assert.True(t, e.Ready())
}

func TestKnownItem(t *testing.T) {
	e, _, _ := newTestEngine(t, true)

	known, err := e.KnownItem("m1")
	require.NoError(t, err)
	assert.True(t, known)

	known, err = e.KnownItem("m404")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestKnownItemNotReady(t *testing.T) {
	e, _, _ := newTestEngine(t, false)
	_, err := e.KnownItem("m1")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(0.3))
	assert.Equal(t, 5.0, Clamp(6.7))
	assert.Equal(t, 3.2, Clamp(3.2))
}

func TestSortScoredDeterministicTieBreak(t *testing.T) {
	items := []ScoredItem{
		{ID: "m9", Score: 4.0},
		{ID: "m2", Score: 4.0},
		{ID: "m5", Score: 4.5},
		{ID: "m1", Score: 4.0},
	}
	sortScored(items)

	assert.Equal(t, "m5", items[0].ID)
	// Equal scores fall back to ascending id.
	assert.Equal(t, "m1", items[1].ID)
	assert.Equal(t, "m2", items[2].ID)
	assert.Equal(t, "m9", items[3].ID)
}
