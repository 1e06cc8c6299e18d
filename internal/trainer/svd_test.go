package trainer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockCorpus builds a rank-one rating structure: users and items split
// into two taste groups, matching groups rate 5, mismatched rate 1. Any
// factorization with at least one latent dimension can fit it well.
func blockCorpus(users, items int) []Observation {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var obs []Observation
	for u := 0; u < users; u++ {
		for i := 0; i < items; i++ {
			score := 1.0
			if (u%2 == 0) == (i%2 == 0) {
				score = 5.0
			}
			obs = append(obs, Observation{
				UserID:    fmt.Sprintf("u%d", u),
				MovieID:   fmt.Sprintf("i%d", i),
				Score:     score,
				Timestamp: ts,
			})
		}
	}
	return obs
}

func TestFitLearnsStructure(t *testing.T) {
	obs := blockCorpus(20, 12)
	hp := Hyperparams{
		Factors:        4,
		Epochs:         100,
		LearningRate:   0.05,
		Regularization: 0.02,
		Seed:           42,
	}

	m, err := Fit(context.Background(), obs, hp, "test-v1")
	require.NoError(t, err)

	assert.Equal(t, 20, m.NumUsers())
	assert.Equal(t, 12, m.NumItems())
	assert.InDelta(t, 3.0, m.GlobalMean(), 1e-9)

	// The block structure is rank one; the fit should land far below the
	// global-mean baseline RMSE of 2.0 on its own training data.
	rmse, mae := Evaluate(m, obs)
	assert.Less(t, rmse, 1.0)
	assert.Less(t, mae, rmse+1e-9)
}

func TestFitIsDeterministicForSeed(t *testing.T) {
	obs := blockCorpus(8, 6)
	hp := Hyperparams{Factors: 3, Epochs: 10, LearningRate: 0.01, Regularization: 0.02, Seed: 7}

	a, err := Fit(context.Background(), obs, hp, "va")
	require.NoError(t, err)
	b, err := Fit(context.Background(), obs, hp, "vb")
	require.NoError(t, err)

	for _, o := range obs[:10] {
		rowA, ok := a.UserRow(o.UserID)
		require.True(t, ok)
		rowB, ok := b.UserRow(o.UserID)
		require.True(t, ok)
		assert.Equal(t, rowA, rowB)
	}
}

func TestFitBuildsItemStats(t *testing.T) {
	obs := []Observation{
		{UserID: "u1", MovieID: "m1", Score: 4.0},
		{UserID: "u2", MovieID: "m1", Score: 5.0},
		{UserID: "u1", MovieID: "m2", Score: 2.0},
	}
	hp := Hyperparams{Factors: 2, Epochs: 1, LearningRate: 0.005, Regularization: 0.02, Seed: 1}

	m, err := Fit(context.Background(), obs, hp, "v")
	require.NoError(t, err)

	stat, ok := m.ItemStatFor("m1")
	require.True(t, ok)
	assert.Equal(t, 2, stat.Count)
	assert.InDelta(t, 4.5, stat.Mean(), 1e-9)
}

func TestFitRejectsEmptyCorpus(t *testing.T) {
	hp := Hyperparams{Factors: 2, Epochs: 1, LearningRate: 0.005, Regularization: 0.02}
	_, err := Fit(context.Background(), nil, hp, "v")
	assert.Error(t, err)
}

func TestFitHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hp := Hyperparams{Factors: 2, Epochs: 5, LearningRate: 0.005, Regularization: 0.02}
	_, err := Fit(ctx, blockCorpus(4, 4), hp, "v")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHoldoutSplit(t *testing.T) {
	obs := blockCorpus(10, 10)

	train, test := holdoutSplit(obs, 0.2, 42)
	assert.Len(t, train, 80)
	assert.Len(t, test, 20)

	// Same seed, same split.
	train2, test2 := holdoutSplit(obs, 0.2, 42)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	// Every observation lands on exactly one side.
	seen := make(map[string]int)
	for _, o := range append(append([]Observation{}, train...), test...) {
		seen[o.UserID+"/"+o.MovieID]++
	}
	assert.Len(t, seen, 100)
	for _, n := range seen {
		assert.Equal(t, 1, n)
	}
}

func TestHoldoutSplitKeepsAtLeastOneTrainRow(t *testing.T) {
	obs := blockCorpus(1, 2)
	train, test := holdoutSplit(obs, 0.99, 1)
	assert.NotEmpty(t, train)
	assert.Len(t, test, len(obs)-len(train))
}

func TestEvaluateEmptyTestSet(t *testing.T) {
	m, err := Fit(context.Background(), blockCorpus(4, 4), Hyperparams{
		Factors: 2, Epochs: 1, LearningRate: 0.005, Regularization: 0.02,
	}, "v")
	require.NoError(t, err)

	rmse, mae := Evaluate(m, nil)
	assert.Zero(t, rmse)
	assert.Zero(t, mae)
}
