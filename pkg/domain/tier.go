package domain

import dErrors "veritas/pkg/domain-errors"

// Tier is the meritocratic rank of a citizen. It is derived state: only the
// rank engine assigns it, from verification level and integrity score.
type Tier string

const (
	TierBronze  Tier = "BRONZE"
	TierSilver  Tier = "SILVER"
	TierGold    Tier = "GOLD"
	TierDiamond Tier = "DIAMOND"
)

// tierOrder is the single source of truth for tier ordering.
var tierOrder = map[Tier]int{
	TierBronze:  0,
	TierSilver:  1,
	TierGold:    2,
	TierDiamond: 3,
}

// ParseTier constructs a Tier from external input.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid tier")
	}
	return t, nil
}

// IsValid checks if the tier is one of the supported enum values.
func (t Tier) IsValid() bool {
	_, ok := tierOrder[t]
	return ok
}

// AtLeast reports whether t ranks at or above other.
func (t Tier) AtLeast(other Tier) bool {
	return tierOrder[t] >= tierOrder[other]
}

// String returns the string representation of the tier.
func (t Tier) String() string { return string(t) }

// VerificationLevel captures how strongly a citizen's identity is attested.
type VerificationLevel int

const (
	// VerificationEmail: only an email address has been confirmed.
	VerificationEmail VerificationLevel = 1
	// VerificationDocument: a national identity document checksum was
	// validated and its hash stored.
	VerificationDocument VerificationLevel = 2
	// VerificationOperator: an operator confirmed the identity manually.
	VerificationOperator VerificationLevel = 3
)

// IsValid checks if the verification level is a supported value.
func (v VerificationLevel) IsValid() bool {
	return v >= VerificationEmail && v <= VerificationOperator
}

// TargetType discriminates the kinds of rateable targets. Aggregation is
// strictly partitioned by target identity; the type only selects contextual
// rules such as the territorial bonus.
type TargetType string

const (
	TargetPerson  TargetType = "PERSON"
	TargetCompany TargetType = "COMPANY"
	TargetEvent   TargetType = "EVENT"
	TargetPoll    TargetType = "POLL"
)

var validTargetTypes = map[TargetType]bool{
	TargetPerson:  true,
	TargetCompany: true,
	TargetEvent:   true,
	TargetPoll:    true,
}

// ParseTargetType constructs a TargetType from external input.
func ParseTargetType(s string) (TargetType, error) {
	t := TargetType(s)
	if !validTargetTypes[t] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid target type")
	}
	return t, nil
}

// Jurisdictional reports whether targets of this type carry a jurisdiction
// against which the territorial bonus can apply.
func (t TargetType) Jurisdictional() bool { return t == TargetPerson }

func (t TargetType) String() string { return string(t) }
