// Package domain holds shared value types used across feature packages.
//
// Typed IDs prevent accidental cross-assignment between citizen, target, and
// ballot identifiers. Construct them via the ParseX helpers at trust
// boundaries; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "veritas/pkg/domain-errors"
)

// CitizenID identifies a registered citizen.
type CitizenID uuid.UUID

// TargetID identifies a rateable target (person, company, event, poll).
type TargetID uuid.UUID

// BallotID identifies a single effective ballot.
type BallotID uuid.UUID

// NewCitizenID generates a random citizen ID.
func NewCitizenID() CitizenID { return CitizenID(uuid.New()) }

// NewTargetID generates a random target ID.
func NewTargetID() TargetID { return TargetID(uuid.New()) }

// NewBallotID generates a random ballot ID.
func NewBallotID() BallotID { return BallotID(uuid.New()) }

// ParseCitizenID constructs a CitizenID from external input.
func ParseCitizenID(s string) (CitizenID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return CitizenID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid citizen id")
	}
	return CitizenID(u), nil
}

// ParseBallotID constructs a BallotID from external input.
func ParseBallotID(s string) (BallotID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return BallotID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid ballot id")
	}
	return BallotID(u), nil
}

// ParseTargetID constructs a TargetID from external input.
func ParseTargetID(s string) (TargetID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return TargetID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid target id")
	}
	return TargetID(u), nil
}

func (id CitizenID) String() string { return uuid.UUID(id).String() }
func (id TargetID) String() string  { return uuid.UUID(id).String() }
func (id BallotID) String() string  { return uuid.UUID(id).String() }

func (id CitizenID) IsZero() bool { return id == CitizenID{} }
func (id TargetID) IsZero() bool  { return id == TargetID{} }
