// Package state holds the current answer state for request handlers.
package state

import (
	"sync"

	"github.com/ssamantle/ssamantle/internal/models"
)

// Store is a single-slot holder for the most recently published AnswerState.
// The refresh pipeline writes it at most once per day; request handlers read
// it concurrently. Readers see either no state at all or a fully formed state;
// states are replaced wholesale, never mutated in place.
type Store struct {
	mu    sync.RWMutex
	state models.AnswerState
	set   bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current state. ok is false when no state has been published.
func (s *Store) Get() (models.AnswerState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.set
}

// Set replaces the current state. The vector is copied so later mutation of
// the caller's slice cannot alias into published state.
func (s *Store) Set(st models.AnswerState) {
	if st.Vector != nil {
		vec := make([]float32, len(st.Vector))
		copy(vec, st.Vector)
		st.Vector = vec
	}
	s.mu.Lock()
	s.state = st
	s.set = true
	s.mu.Unlock()
}
