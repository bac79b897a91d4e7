package ballot

import (
	"context"
	"sync"

	"veritas/internal/reputation"
	"veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// InMemoryStore keeps targets and ballots in process memory. Each target
// owns its own lock, so casts on different targets proceed in parallel
// while the read-modify-write on one target stays serialized.
type InMemoryStore struct {
	mu     sync.RWMutex
	shards map[domain.TargetID]*targetShard
}

type targetShard struct {
	mu        sync.Mutex
	target    Target
	ballots   map[domain.CitizenID]Ballot
	aggregate Aggregate
	published reputation.Score
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{shards: make(map[domain.TargetID]*targetShard)}
}

func (s *InMemoryStore) CreateTarget(ctx context.Context, t Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shards[t.ID]; ok {
		return dErrors.New(dErrors.CodeConflict, "target already exists")
	}
	s.shards[t.ID] = &targetShard{
		target:  t,
		ballots: make(map[domain.CitizenID]Ballot),
	}
	return nil
}

func (s *InMemoryStore) GetTarget(ctx context.Context, id domain.TargetID) (Target, error) {
	shard, err := s.shard(id)
	if err != nil {
		return Target{}, err
	}
	shard.mu.Lock()
	defer shard.mu.Unlock()
	return shard.target, nil
}

func (s *InMemoryStore) ListTargetIDs(ctx context.Context) ([]domain.TargetID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TargetID, 0, len(s.shards))
	for id := range s.shards {
		out = append(out, id)
	}
	return out, nil
}

func (s *InMemoryStore) UpsertBallot(ctx context.Context, b Ballot, score ScoreFunc) (UpsertResult, error) {
	shard, err := s.shard(b.TargetID)
	if err != nil {
		return UpsertResult{}, err
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()

	var prev *Ballot
	if existing, ok := shard.ballots[b.VoterID]; ok {
		prev = &existing
		b.ID = existing.ID
		b.CastAt = existing.CastAt
	}

	dc, ds, dw := aggregateDelta(prev, b)
	shard.aggregate.VoteCount += dc
	shard.aggregate.WeightedSum += ds
	shard.aggregate.TotalWeight += dw
	shard.ballots[b.VoterID] = b

	result := UpsertResult{Ballot: b, Previous: prev, Aggregate: shard.aggregate}
	if score != nil {
		// Published under the shard lock so a slower concurrent cast
		// cannot overwrite this score with a staler one.
		shard.published = score(shard.aggregate)
		result.Score = shard.published
	}
	return result, nil
}

func (s *InMemoryStore) Aggregate(ctx context.Context, id domain.TargetID) (Aggregate, error) {
	shard, err := s.shard(id)
	if err != nil {
		return Aggregate{}, err
	}
	shard.mu.Lock()
	defer shard.mu.Unlock()
	return shard.aggregate, nil
}

func (s *InMemoryStore) BallotsByTarget(ctx context.Context, id domain.TargetID) ([]Ballot, error) {
	shard, err := s.shard(id)
	if err != nil {
		return nil, err
	}
	shard.mu.Lock()
	defer shard.mu.Unlock()
	out := make([]Ballot, 0, len(shard.ballots))
	for _, b := range shard.ballots {
		out = append(out, b)
	}
	return out, nil
}

func (s *InMemoryStore) PublishScore(ctx context.Context, id domain.TargetID, score reputation.Score) error {
	shard, err := s.shard(id)
	if err != nil {
		return err
	}
	shard.mu.Lock()
	defer shard.mu.Unlock()
	shard.published = score
	return nil
}

func (s *InMemoryStore) PublishedScore(ctx context.Context, id domain.TargetID) (reputation.Score, error) {
	shard, err := s.shard(id)
	if err != nil {
		return reputation.Score{}, err
	}
	shard.mu.Lock()
	defer shard.mu.Unlock()
	return shard.published, nil
}

func (s *InMemoryStore) shard(id domain.TargetID) (*targetShard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shard, ok := s.shards[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "target not found")
	}
	return shard, nil
}
