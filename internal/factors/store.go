package factors

import "sync/atomic"

// Store publishes the active model snapshot. Readers take whatever
// generation is current at call time; the retrain coordinator replaces it
// with a single pointer swap, so a reader never observes a half-updated
// model. Active returns nil until the first snapshot is loaded.
type Store struct {
	active atomic.Pointer[Model]
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Active() *Model {
	return s.active.Load()
}

func (s *Store) Swap(m *Model) {
	s.active.Store(m)
}
