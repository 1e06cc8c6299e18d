package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDatFormat(t *testing.T) {
	path := writeTempFile(t, "movies.dat",
		"1::Toy Story (1995)::Animation|Children's|Comedy\n"+
			"2::Jumanji (1995)::Adventure|Children's|Fantasy\n"+
			"\n"+
			"3::Grumpier Old Men (1995)::Comedy|Romance\n")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	m, ok := c.Get("1")
	require.True(t, ok)
	assert.Equal(t, "Toy Story (1995)", m.Title)
	assert.Equal(t, []string{"Animation", "Children's", "Comedy"}, m.Genres)
}

func TestLoadDatLatin1Titles(t *testing.T) {
	// "Misérables" with a latin-1 encoded é (0xE9).
	path := writeTempFile(t, "movies.dat",
		"73::Mis\xe9rables, Les (1995)::Drama|Musical\n")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Misérables, Les (1995)", c.Title("73"))
}

func TestLoadCSVFormat(t *testing.T) {
	path := writeTempFile(t, "movies.csv",
		"movieId,title,genres\n"+
			"10,GoldenEye (1995),Action|Adventure|Thriller\n"+
			"11,\"American President, The (1995)\",Comedy|Drama|Romance\n")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "American President, The (1995)", c.Title("11"))
	assert.True(t, c.HasGenre("10", "action"))
}

func TestLoadCSVMissingColumns(t *testing.T) {
	path := writeTempFile(t, "movies.csv", "id,name\n1,whatever\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestTitleFallback(t *testing.T) {
	c := Empty()
	assert.Equal(t, "Movie 42", c.Title("42"))
}

func TestHasGenre(t *testing.T) {
	path := writeTempFile(t, "movies.dat", "1::Heat (1995)::Action|Crime|Thriller\n")
	c, err := Load(path)
	require.NoError(t, err)

	assert.True(t, c.HasGenre("1", "Crime"))
	assert.True(t, c.HasGenre("1", "CRIME"))
	assert.False(t, c.HasGenre("1", "Comedy"))
	assert.False(t, c.HasGenre("999", "Action"))
}
