// Package rank owns the meritocratic ladder. Tiers are derived state: the
// transitions in this package are the only code that assigns them.
package rank

import (
	"time"

	"veritas/pkg/domain"
)

// Identity is the rank-relevant view of a citizen.
type Identity struct {
	ID                domain.CitizenID
	NationalIDHash    string
	VerificationLevel domain.VerificationLevel
	Tier              domain.Tier
	IntegrityScore    float64
	Active            bool
	ShadowRestricted  bool

	// Optional profile fields. Each completed field nudges integrity up
	// and feeds the asset valuation data bonus.
	Commune  string
	Region   string
	AgeRange string

	RegisteredAt time.Time
	// VerifiedAt is zero until a document is verified. GOLD tenure is
	// measured from here.
	VerifiedAt time.Time
}

// Verified reports whether the identity holds at least document-level
// attestation.
func (i Identity) Verified() bool {
	return i.VerificationLevel >= domain.VerificationDocument
}

// ProfileFields counts the completed optional profile fields.
func (i Identity) ProfileFields() int {
	n := 0
	for _, f := range []string{i.Commune, i.Region, i.AgeRange} {
		if f != "" {
			n++
		}
	}
	return n
}

// EventKind discriminates rank transition events.
type EventKind string

const (
	// EventDocumentVerified: a national document checksum validated and its
	// hash proved unique.
	EventDocumentVerified EventKind = "document_verified"
	// EventProfileUpdated: the citizen completed or changed profile fields.
	EventProfileUpdated EventKind = "profile_updated"
	// EventOperatorConfirmed: an operator manually attested the identity.
	EventOperatorConfirmed EventKind = "operator_confirmed"
	// EventIntegrityAdjusted: behavioral feedback moved the integrity score.
	EventIntegrityAdjusted EventKind = "integrity_adjusted"
	// EventTenureReview: periodic review of tenure-gated promotions.
	EventTenureReview EventKind = "tenure_review"
)

// Event is one input to the transition function.
type Event struct {
	Kind EventKind

	// Profile fields for EventProfileUpdated. Empty strings leave the
	// current value untouched.
	Commune  string
	Region   string
	AgeRange string

	// IntegrityDelta for EventIntegrityAdjusted.
	IntegrityDelta float64
}

// Change records one observable consequence of a transition, in a shape the
// audit trail can carry verbatim.
type Change struct {
	Field string
	From  string
	To    string
}
