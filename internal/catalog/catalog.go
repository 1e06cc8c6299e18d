// Package catalog maps movie identifiers to display metadata. The mapping
// is loaded once at startup and read-only afterwards; identifiers absent
// from the catalog are valid but titleless.
package catalog

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

type Movie struct {
	ID     string
	Title  string
	Genres []string
}

type Catalog struct {
	movies map[string]Movie
}

// Empty returns a catalog with no entries; every lookup falls back to the
// placeholder title.
func Empty() *Catalog {
	return &Catalog{movies: make(map[string]Movie)}
}

// Load reads movie metadata from a MovieLens-style file. The format is
// chosen by extension: ".dat" is the 1M "MovieID::Title::Genres" layout
// (latin-1 encoded), ".tsv" and ".csv" are delimited files with a header
// row containing movieId/MovieID and title columns.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".dat":
		return parseDat(f)
	case ".tsv":
		return parseDelimited(f, '\t')
	default:
		return parseDelimited(f, ',')
	}
}

// Title returns the display title for an id, or a placeholder when the
// id is unknown to the catalog.
func (c *Catalog) Title(id string) string {
	if m, ok := c.movies[id]; ok {
		return m.Title
	}
	return "Movie " + id
}

func (c *Catalog) Get(id string) (Movie, bool) {
	m, ok := c.movies[id]
	return m, ok
}

func (c *Catalog) Len() int { return len(c.movies) }

// HasGenre reports whether the movie is tagged with the genre,
// case-insensitively. Unknown movies have no genres.
func (c *Catalog) HasGenre(id, genre string) bool {
	m, ok := c.movies[id]
	if !ok {
		return false
	}
	for _, g := range m.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

func parseDat(r io.Reader) (*Catalog, error) {
	// MovieLens 1M ships latin-1 titles; decode before splitting.
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))
	c := Empty()
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "::", 3)
		if len(parts) < 2 {
			continue
		}
		m := Movie{ID: parts[0], Title: parts[1]}
		if len(parts) == 3 && parts[2] != "" {
			m.Genres = strings.Split(parts[2], "|")
		}
		c.movies[m.ID] = m
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return c, nil
}

func parseDelimited(r io.Reader, sep rune) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.Comma = sep
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading catalog header: %w", err)
	}

	idCol, titleCol, genresCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "movieid":
			idCol = i
		case "title":
			titleCol = i
		case "genres":
			genresCol = i
		}
	}
	if idCol < 0 || titleCol < 0 {
		return nil, fmt.Errorf("catalog header missing movieId/title columns")
	}

	c := Empty()
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading catalog row: %w", err)
		}
		if idCol >= len(record) || titleCol >= len(record) {
			continue
		}
		m := Movie{ID: strings.TrimSpace(record[idCol]), Title: record[titleCol]}
		if m.ID == "" {
			continue
		}
		if genresCol >= 0 && genresCol < len(record) && record[genresCol] != "" {
			m.Genres = strings.Split(record[genresCol], "|")
		}
		c.movies[m.ID] = m
	}
	return c, nil
}
