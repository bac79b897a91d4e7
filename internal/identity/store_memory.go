package identity

import (
	"context"
	"sync"

	"veritas/internal/rank"
	"veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// InMemoryStore keeps identities in process memory. Used by tests and by
// deployments that have not wired Postgres yet.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[domain.CitizenID]rank.Identity
	byHash map[string]domain.CitizenID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[domain.CitizenID]rank.Identity),
		byHash: make(map[string]domain.CitizenID),
	}
}

func (s *InMemoryStore) Get(ctx context.Context, id domain.CitizenID) (rank.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.byID[id]
	if !ok {
		return rank.Identity{}, dErrors.New(dErrors.CodeNotFound, "citizen not found")
	}
	return identity, nil
}

func (s *InMemoryStore) Save(ctx context.Context, identity rank.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byID[identity.ID]; ok && prev.NationalIDHash != "" && prev.NationalIDHash != identity.NationalIDHash {
		delete(s.byHash, prev.NationalIDHash)
	}
	s.byID[identity.ID] = identity
	if identity.NationalIDHash != "" {
		s.byHash[identity.NationalIDHash] = identity.ID
	}
	return nil
}

func (s *InMemoryStore) FindByNationalHash(ctx context.Context, hash string) (rank.Identity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHash[hash]
	if !ok {
		return rank.Identity{}, false, nil
	}
	return s.byID[id], true, nil
}

func (s *InMemoryStore) List(ctx context.Context) ([]rank.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]rank.Identity, 0, len(s.byID))
	for _, identity := range s.byID {
		out = append(out, identity)
	}
	return out, nil
}
