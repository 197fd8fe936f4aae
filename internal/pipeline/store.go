package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/terralens/prospect-fusion/internal/domain"
)

// ResultStore holds the latest completed fusion result for the HTTP
// surface. The service is not ready until a first run has landed.
type ResultStore struct {
	mu     sync.RWMutex
	result *domain.FusionResult
}

// NewResultStore creates an empty store.
func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// Set publishes a completed result.
func (s *ResultStore) Set(result *domain.FusionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
}

// Latest returns the most recent result, or false when no run has
// completed yet.
func (s *ResultStore) Latest() (*domain.FusionResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return nil, false
	}
	return s.result, true
}

// CheckReadiness returns nil once a fusion run has completed, or an error
// describing why the service is not yet ready.
func (s *ResultStore) CheckReadiness(_ context.Context) error {
	if _, ok := s.Latest(); !ok {
		return errors.New("no fusion run has completed yet")
	}
	return nil
}
