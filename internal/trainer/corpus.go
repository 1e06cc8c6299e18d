package trainer

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cinerec/cinerec/pkg/models"
)

// Observation is one training example: a (user, movie, score) triple with
// the time it was recorded.
type Observation struct {
	UserID    string
	MovieID   string
	Score     float64
	Timestamp time.Time
}

// LoadCorpus reads the original training corpus. ".dat" is the MovieLens
// 1M "UserID::MovieID::Rating::Timestamp" layout; ".csv"/".tsv" carry a
// header row with userId, movieId, rating and timestamp columns.
func LoadCorpus(path string) ([]Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".dat":
		return parseDatCorpus(f)
	case ".tsv":
		return parseDelimitedCorpus(f, '\t')
	default:
		return parseDelimitedCorpus(f, ',')
	}
}

func parseDatCorpus(r io.Reader) ([]Observation, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var out []Observation
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "::", 4)
		if len(parts) < 3 {
			continue
		}
		score, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			continue
		}
		obs := Observation{UserID: parts[0], MovieID: parts[1], Score: score}
		if len(parts) == 4 {
			if unix, err := strconv.ParseInt(parts[3], 10, 64); err == nil {
				obs.Timestamp = time.Unix(unix, 0)
			}
		}
		out = append(out, obs)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	return out, nil
}

func parseDelimitedCorpus(r io.Reader, sep rune) ([]Observation, error) {
	reader := csv.NewReader(r)
	reader.Comma = sep
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading corpus header: %w", err)
	}
	userCol, movieCol, ratingCol, tsCol := -1, -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "userid":
			userCol = i
		case "movieid":
			movieCol = i
		case "rating":
			ratingCol = i
		case "timestamp":
			tsCol = i
		}
	}
	if userCol < 0 || movieCol < 0 || ratingCol < 0 {
		return nil, fmt.Errorf("corpus header missing userId/movieId/rating columns")
	}

	var out []Observation
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading corpus row: %w", err)
		}
		if ratingCol >= len(record) {
			continue
		}
		score, err := strconv.ParseFloat(record[ratingCol], 64)
		if err != nil {
			continue
		}
		obs := Observation{UserID: record[userCol], MovieID: record[movieCol], Score: score}
		if tsCol >= 0 && tsCol < len(record) {
			if unix, err := strconv.ParseInt(record[tsCol], 10, 64); err == nil {
				obs.Timestamp = time.Unix(unix, 0)
			}
		}
		out = append(out, obs)
	}
	return out, nil
}

// mergeCorpus folds ledger ratings into the original corpus. On an
// overlapping (user, movie) key the later timestamp wins, with ledger
// entries taking precedence on ties. Output order is deterministic:
// original corpus order, then new ledger keys in ledger order.
func mergeCorpus(original []Observation, live []models.Rating) []Observation {
	type key struct{ user, movie string }

	index := make(map[key]int, len(original))
	merged := make([]Observation, 0, len(original)+len(live))
	for _, obs := range original {
		k := key{obs.UserID, obs.MovieID}
		if i, ok := index[k]; ok {
			if !obs.Timestamp.Before(merged[i].Timestamp) {
				merged[i] = obs
			}
			continue
		}
		index[k] = len(merged)
		merged = append(merged, obs)
	}

	for _, r := range live {
		obs := Observation{UserID: r.UserID, MovieID: r.MovieID, Score: r.Score, Timestamp: r.Timestamp}
		k := key{r.UserID, r.MovieID}
		if i, ok := index[k]; ok {
			if !obs.Timestamp.Before(merged[i].Timestamp) {
				merged[i] = obs
			}
			continue
		}
		index[k] = len(merged)
		merged = append(merged, obs)
	}
	return merged
}
