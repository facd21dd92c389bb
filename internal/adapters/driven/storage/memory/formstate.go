package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driven"
)

// Ensure FormStateStore implements the interface.
var _ driven.FormStateStore = (*FormStateStore)(nil)

// FormStateStore is an in-memory implementation of driven.FormStateStore.
type FormStateStore struct {
	mu    sync.RWMutex
	state *domain.FormState
	saves int
}

// NewFormStateStore creates a new in-memory form state store.
func NewFormStateStore() *FormStateStore {
	return &FormStateStore{}
}

// Load returns the saved form.
func (s *FormStateStore) Load(_ context.Context) (*domain.FormState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, domain.ErrNotFound
	}
	st := s.state.Clone()
	return &st, nil
}

// Save stores the form.
func (s *FormStateStore) Save(_ context.Context, state domain.FormState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := state.Clone()
	s.state = &st
	s.saves++
	return nil
}

// Delete removes the saved form.
func (s *FormStateStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = nil
	return nil
}

// Saves returns how many times Save was called.
func (s *FormStateStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
