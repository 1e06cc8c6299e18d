package factors

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testModel(version string) *Model {
	meta := Meta{
		Version:   version,
		TrainedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Factors:   2,
		Epochs:    5,
	}
	return New(meta, 3.6,
		[]string{"u1", "u2"},
		[]string{"m1", "m2", "m3"},
		mat.NewDense(2, 2, []float64{0.1, 0.2, -0.3, 0.4}),
		mat.NewDense(3, 2, []float64{0.5, -0.6, 0.7, 0.8, 0, 0}),
		[]float64{0.05, -0.1},
		[]float64{0.2, -0.15, 0.0},
		[]ItemStat{{Count: 10, Sum: 42}, {Count: 3, Sum: 9}, {Count: 0, Sum: 0}},
	)
}

func TestArtifactRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "svd_model.gob")

	original := testModel("v-test-1")
	require.NoError(t, SaveArtifact(path, original))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)

	assert.Equal(t, original.Meta(), loaded.Meta())
	assert.Equal(t, original.GlobalMean(), loaded.GlobalMean())
	assert.Equal(t, original.NumUsers(), loaded.NumUsers())
	assert.Equal(t, original.NumItems(), loaded.NumItems())

	origRow, ok := original.UserRow("u2")
	require.True(t, ok)
	loadedRow, ok := loaded.UserRow("u2")
	require.True(t, ok)
	assert.Equal(t, origRow, loadedRow)

	assert.Equal(t, original.UserBias("u1"), loaded.UserBias("u1"))
	assert.Equal(t, original.ItemBias("m2"), loaded.ItemBias("m2"))

	stat, ok := loaded.ItemStatFor("m1")
	require.True(t, ok)
	assert.Equal(t, 10, stat.Count)
	assert.InDelta(t, 4.2, stat.Mean(), 1e-9)
}

func TestSaveArtifactBacksUpPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "svd_model.gob")

	require.NoError(t, SaveArtifact(path, testModel("v1")))
	require.NoError(t, SaveArtifact(path, testModel("v2")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var backups int
	for _, e := range entries {
		if e.Name() != "svd_model.gob" {
			backups++
			assert.Contains(t, e.Name(), "svd_model_backup_")
		}
	}
	assert.Equal(t, 1, backups)

	// The live artifact is the newest generation.
	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, "v2", loaded.Meta().Version)
}

func TestLoadArtifactRejectsCorruptData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.gob")
	require.NoError(t, os.WriteFile(path, []byte("not a gob artifact"), 0o644))

	_, err := LoadArtifact(path)
	assert.Error(t, err)
}

func TestLoadArtifactMissingFile(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "absent.gob"))
	assert.Error(t, err)
}
