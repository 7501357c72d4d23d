package session

import (
	"sync"

	"datalens/domain/dataset"
	"datalens/internal/errors"
)

// Store holds the currently loaded dataset descriptor. Set replaces the held
// descriptor wholesale; partial mutation is not possible through this API,
// which keeps column lists and row counts from ever disagreeing.
type Store struct {
	mu      sync.RWMutex
	current *dataset.Descriptor
}

// NewStore creates an empty session store
func NewStore() *Store {
	return &Store{}
}

// Get returns the current descriptor, or nil when none is loaded
func (s *Store) Get() *dataset.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Require returns the current descriptor or a NoDatasetLoaded error. Callers
// performing analysis operations check this before any network call.
func (s *Store) Require() (*dataset.Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, errors.NoDatasetLoaded()
	}
	return s.current, nil
}

// Set replaces the held descriptor wholesale
func (s *Store) Set(d *dataset.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = d
}

// Clear drops the held descriptor
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}
