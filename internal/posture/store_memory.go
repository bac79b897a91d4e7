package posture

import (
	"context"
	"sync"
)

// InMemoryStore holds the posture in process memory. Used by tests and by
// single-instance deployments without a shared cache.
type InMemoryStore struct {
	mu      sync.RWMutex
	current Posture
	// fail simulates an unreachable store in tests.
	fail error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{current: Green}
}

func (s *InMemoryStore) Get(ctx context.Context) (Posture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return "", s.fail
	}
	return s.current, nil
}

func (s *InMemoryStore) Set(ctx context.Context, p Posture) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.current = p
	return nil
}

// FailWith makes subsequent operations return err; nil restores service.
func (s *InMemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}
