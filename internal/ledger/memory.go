package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/cinerec/cinerec/pkg/models"
)

// Memory is the in-process Store used for standalone deployments and
// tests. A single RWMutex guards both indexes; the serving path is
// read-heavy so readers share the lock.
type Memory struct {
	mu      sync.RWMutex
	entries []*models.Rating            // insertion order
	byUser  map[string]map[string]*models.Rating
}

func NewMemory() *Memory {
	return &Memory{
		byUser: make(map[string]map[string]*models.Rating),
	}
}

func (m *Memory) Upsert(_ context.Context, userID, movieID string, score float64, ts time.Time) (models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byUser[userID][movieID]; ok {
		existing.Score = score
		existing.Timestamp = ts
		return *existing, nil
	}

	r := &models.Rating{UserID: userID, MovieID: movieID, Score: score, Timestamp: ts}
	m.entries = append(m.entries, r)
	if m.byUser[userID] == nil {
		m.byUser[userID] = make(map[string]*models.Rating)
	}
	m.byUser[userID][movieID] = r
	return *r, nil
}

func (m *Memory) History(_ context.Context, userID string) ([]models.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Rating
	for _, r := range m.entries {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *Memory) UserRatings(_ context.Context, userID string) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]float64, len(m.byUser[userID]))
	for movieID, r := range m.byUser[userID] {
		out[movieID] = r.Score
	}
	return out, nil
}

func (m *Memory) Remove(_ context.Context, userID, movieID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.byUser[userID][movieID]
	if !ok {
		return false, nil
	}
	delete(m.byUser[userID], movieID)
	if len(m.byUser[userID]) == 0 {
		delete(m.byUser, userID)
	}
	for i, r := range m.entries {
		if r == target {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *Memory) CountForUser(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[userID]), nil
}

func (m *Memory) All(_ context.Context) ([]models.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Rating, 0, len(m.entries))
	for _, r := range m.entries {
		out = append(out, *r)
	}
	return out, nil
}

func (m *Memory) CountSince(_ context.Context, t time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, r := range m.entries {
		if r.Timestamp.After(t) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) Stats(_ context.Context) (models.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make(map[string]struct{})
	for _, r := range m.entries {
		items[r.MovieID] = struct{}{}
	}
	return models.Stats{
		TotalRatings:  len(m.entries),
		DistinctUsers: len(m.byUser),
		DistinctItems: len(items),
	}, nil
}

func (m *Memory) Close() {}
