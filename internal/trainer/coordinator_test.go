package trainer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinerec/cinerec/internal/config"
	"github.com/cinerec/cinerec/internal/factors"
	"github.com/cinerec/cinerec/internal/ledger"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *factors.Store, *ledger.Memory, string) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	store := factors.NewStore()
	ratings := ledger.NewMemory()
	artifact := filepath.Join(t.TempDir(), "models", "svd_model.gob")

	cfg := &config.RetrainConfig{
		Factors:       4,
		Epochs:        20,
		LearningRate:  0.05,
		Regularize:    0.02,
		HoldoutFrac:   0.2,
		MinNewRatings: 5,
	}
	modelCfg := &config.ModelConfig{
		ArtifactPath: artifact,
		CorpusPath:   "", // ledger-only training
	}

	return NewCoordinator(store, ratings, cfg, modelCfg, logger), store, ratings, artifact
}

func seedLedger(t *testing.T, ratings *ledger.Memory, n int) {
	t.Helper()
	ctx := context.Background()
	for _, o := range blockCorpus(6, 6)[:n] {
		_, err := ratings.Upsert(ctx, o.UserID, o.MovieID, o.Score, time.Now().UTC())
		require.NoError(t, err)
	}
}

func TestRunNotNeededBelowThreshold(t *testing.T) {
	c, store, ratings, _ := newTestCoordinator(t)
	seedLedger(t, ratings, 3) // below min_new_ratings 5

	result, err := c.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.False(t, result.Needed)
	assert.Equal(t, 3, result.NewRatings)
	assert.Nil(t, store.Active())
}

func TestRunTrainsValidatesAndSwaps(t *testing.T) {
	c, store, ratings, artifact := newTestCoordinator(t)
	seedLedger(t, ratings, 36)

	result, err := c.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.True(t, result.Needed)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.Version)
	assert.Equal(t, 36, result.LedgerRatings)
	assert.Greater(t, result.RMSE, 0.0)

	// The new generation is both active and persisted.
	m := store.Active()
	require.NotNil(t, m)
	assert.Equal(t, result.Version, m.Meta().Version)

	loaded, err := factors.LoadArtifact(artifact)
	require.NoError(t, err)
	assert.Equal(t, result.Version, loaded.Meta().Version)
}

func TestRunForceSkipsAdmissionCheck(t *testing.T) {
	c, store, ratings, _ := newTestCoordinator(t)
	seedLedger(t, ratings, 3)

	result, err := c.Run(context.Background(), Options{Force: true})
	require.NoError(t, err)
	assert.True(t, result.Needed)
	assert.True(t, result.Success)
	assert.NotNil(t, store.Active())
}

func TestRunOptionOverrides(t *testing.T) {
	c, store, ratings, _ := newTestCoordinator(t)
	seedLedger(t, ratings, 36)

	result, err := c.Run(context.Background(), Options{Factors: 2, Epochs: 3})
	require.NoError(t, err)
	require.True(t, result.Success)

	m := store.Active()
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Meta().Factors)
	assert.Equal(t, 3, m.Meta().Epochs)
}

func TestRunEmptyLedgerFails(t *testing.T) {
	c, store, _, _ := newTestCoordinator(t)

	_, err := c.Run(context.Background(), Options{Force: true})
	assert.Error(t, err)
	assert.Nil(t, store.Active())
}

func TestRunSingleFlight(t *testing.T) {
	c, _, ratings, _ := newTestCoordinator(t)
	seedLedger(t, ratings, 36)

	// Simulate a cycle in progress.
	c.mu.Lock()
	_, err := c.Run(context.Background(), Options{Force: true})
	assert.ErrorIs(t, err, ErrRetrainInProgress)
	c.mu.Unlock()

	// Once the first cycle finishes the next trigger proceeds.
	result, err := c.Run(context.Background(), Options{Force: true})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestRunFailureKeepsActiveModel(t *testing.T) {
	c, store, _, _ := newTestCoordinator(t)

	previous := testFixtureModel("previous")
	store.Swap(previous)

	// Ledger is empty and there is no corpus: the cycle fails, but the
	// previous generation keeps serving.
	_, err := c.Run(context.Background(), Options{Force: true})
	assert.Error(t, err)
	assert.Same(t, previous, store.Active())
}

func TestRunCountsSinceActiveModel(t *testing.T) {
	c, store, ratings, _ := newTestCoordinator(t)

	store.Swap(testFixtureModel("current"))
	seedLedger(t, ratings, 10) // all newer than the fixture's TrainedAt

	result, err := c.Run(context.Background(), Options{MinNewRatings: 100})
	require.NoError(t, err)
	assert.False(t, result.Needed)
	assert.Equal(t, 10, result.NewRatings)
}

func TestLoadOriginalCorpusMissingFileIsLedgerOnly(t *testing.T) {
	c, _, ratings, _ := newTestCoordinator(t)
	c.corpus = filepath.Join(t.TempDir(), "absent.dat")
	seedLedger(t, ratings, 36)

	result, err := c.Run(context.Background(), Options{Force: true})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestLoadOriginalCorpusMergesWithLedger(t *testing.T) {
	c, store, ratings, _ := newTestCoordinator(t)

	dir := t.TempDir()
	corpus := filepath.Join(dir, "ratings.dat")
	var content string
	for _, o := range blockCorpus(6, 6) {
		content += o.UserID + "::" + o.MovieID + "::" +
			formatScore(o.Score) + "::978300000\n"
	}
	require.NoError(t, os.WriteFile(corpus, []byte(content), 0o644))
	c.corpus = corpus

	seedLedger(t, ratings, 5)

	result, err := c.Run(context.Background(), Options{Force: true})
	require.NoError(t, err)
	require.True(t, result.Success)

	m := store.Active()
	require.NotNil(t, m)
	assert.Equal(t, 6, m.NumUsers())
	assert.Equal(t, 6, m.NumItems())
}

func formatScore(s float64) string {
	if s == 5.0 {
		return "5"
	}
	return "1"
}

func testFixtureModel(version string) *factors.Model {
	obs := blockCorpus(4, 4)
	hp := Hyperparams{Factors: 2, Epochs: 1, LearningRate: 0.005, Regularization: 0.02, Seed: 1}
	m, err := Fit(context.Background(), obs, hp, version)
	if err != nil {
		panic(err)
	}
	return m
}
