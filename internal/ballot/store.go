package ballot

import (
	"context"

	"veritas/internal/reputation"
	"veritas/pkg/domain"
)

// UpsertResult is what the store reports after committing one ballot.
type UpsertResult struct {
	Ballot Ballot
	// Previous is the replaced ballot, nil on first cast.
	Previous *Ballot
	// Aggregate is the accumulator state after the commit.
	Aggregate Aggregate
	// Score is the published score recomputed at commit.
	Score reputation.Score
}

// ScoreFunc derives the published score from a post-commit aggregate.
// It must be pure: stores call it while holding the target's lock.
type ScoreFunc func(Aggregate) reputation.Score

// Store persists targets, ballots, and published scores.
//
// UpsertBallot is the commit point of a vote: the ballot write, the
// aggregate adjustment, and the score publication must be indivisible
// per target, so concurrent casts can never publish out of commit
// order. Concurrent upserts on different targets must not serialize
// against each other.
type Store interface {
	CreateTarget(ctx context.Context, t Target) error
	GetTarget(ctx context.Context, id domain.TargetID) (Target, error)
	ListTargetIDs(ctx context.Context) ([]domain.TargetID, error)

	UpsertBallot(ctx context.Context, b Ballot, score ScoreFunc) (UpsertResult, error)
	Aggregate(ctx context.Context, id domain.TargetID) (Aggregate, error)
	BallotsByTarget(ctx context.Context, id domain.TargetID) ([]Ballot, error)

	PublishScore(ctx context.Context, id domain.TargetID, score reputation.Score) error
	PublishedScore(ctx context.Context, id domain.TargetID) (reputation.Score, error)
}

// aggregateDelta computes how the accumulator moves when prev is replaced
// by next. Uncounted ballots contribute nothing in either direction.
func aggregateDelta(prev *Ballot, next Ballot) (count int, sum, weight float64) {
	if prev != nil && prev.Counted {
		count--
		sum -= prev.Weight * prev.Value
		weight -= prev.Weight
	}
	if next.Counted {
		count++
		sum += next.Weight * next.Value
		weight += next.Weight
	}
	return count, sum, weight
}
