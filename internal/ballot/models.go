// Package ballot is the concurrency-critical ingestion path: one effective
// ballot per (voter, target), atomic per-target aggregates, silent exclusion
// of restricted and displaced contributions.
package ballot

import (
	"time"

	"veritas/internal/reputation"
	"veritas/pkg/domain"
)

// Target is a rateable entity and its raw accumulator state.
type Target struct {
	ID   domain.TargetID
	Type domain.TargetType
	Name string
	// Jurisdiction scopes the territorial bonus. Empty means no locality
	// context; only person targets carry one.
	Jurisdiction string
	CreatedAt    time.Time
}

// Ballot is one voter's effective contribution to one target. Resubmission
// replaces the value in place; the pair (voter, target) never produces two
// rows.
type Ballot struct {
	ID       domain.BallotID
	VoterID  domain.CitizenID
	TargetID domain.TargetID
	Value    float64
	// Weight is the voter's effective weight at cast time: tier weight
	// times the territorial bonus when it applies.
	Weight float64
	// Counted is false for shadow-restricted voters and displaced
	// classifications. The ballot is stored identically either way; only
	// the public aggregate excludes it.
	Counted   bool
	CastAt    time.Time
	UpdatedAt time.Time
}

// Aggregate is a target's raw accumulator over counted ballots.
type Aggregate struct {
	VoteCount   int
	WeightedSum float64
	TotalWeight float64
}

// VoteOutcome is the internal result of a cast. Handlers shape it into a
// response that does not distinguish counted from uncounted ballots.
type VoteOutcome struct {
	BallotID domain.BallotID
	TargetID domain.TargetID
	// Updated is true when the cast replaced an earlier ballot.
	Updated bool
	Counted bool
	Weight  float64
	Local   bool
	Score   reputation.Score
}
