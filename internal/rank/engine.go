package rank

import (
	"fmt"
	"time"

	"veritas/internal/platform/config"
	"veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// NewIdentity returns the starting state for a registered citizen: BRONZE,
// neutral integrity, email-level attestation only.
func NewIdentity(id domain.CitizenID, t *config.Tunables, now time.Time) Identity {
	return Identity{
		ID:                id,
		VerificationLevel: domain.VerificationEmail,
		Tier:              domain.TierBronze,
		IntegrityScore:    t.BaselineIntegrity,
		Active:            true,
		RegisteredAt:      now,
	}
}

// Apply runs one event through the transition function. It is pure: the
// input identity is never mutated, and the same inputs always produce the
// same outputs. Returned changes describe every field that moved.
func Apply(id Identity, ev Event, t *config.Tunables, now time.Time) (Identity, []Change, error) {
	var changes []Change

	switch ev.Kind {
	case EventDocumentVerified:
		if id.VerificationLevel < domain.VerificationDocument {
			changes = append(changes, levelChange(id.VerificationLevel, domain.VerificationDocument))
			id.VerificationLevel = domain.VerificationDocument
		}
		if id.VerifiedAt.IsZero() {
			id.VerifiedAt = now
		}
		if id.IntegrityScore < t.VerifiedIntegrity {
			changes = append(changes, integrityChange(id.IntegrityScore, t.VerifiedIntegrity))
			id.IntegrityScore = t.VerifiedIntegrity
		}

	case EventProfileUpdated:
		before := id.ProfileFields()
		if ev.Commune != "" {
			id.Commune = ev.Commune
		}
		if ev.Region != "" {
			id.Region = ev.Region
		}
		if ev.AgeRange != "" {
			id.AgeRange = ev.AgeRange
		}
		if gained := id.ProfileFields() - before; gained > 0 {
			next := clamp01(id.IntegrityScore + float64(gained)*t.ProfileFieldBonus)
			changes = append(changes, integrityChange(id.IntegrityScore, next))
			id.IntegrityScore = next
		}

	case EventOperatorConfirmed:
		if id.VerificationLevel < domain.VerificationOperator {
			changes = append(changes, levelChange(id.VerificationLevel, domain.VerificationOperator))
			id.VerificationLevel = domain.VerificationOperator
		}
		if id.VerifiedAt.IsZero() {
			id.VerifiedAt = now
		}
		if id.Tier != domain.TierDiamond {
			changes = append(changes, tierChange(id.Tier, domain.TierDiamond))
			id.Tier = domain.TierDiamond
		}

	case EventIntegrityAdjusted:
		next := clamp01(id.IntegrityScore + ev.IntegrityDelta)
		if next != id.IntegrityScore {
			changes = append(changes, integrityChange(id.IntegrityScore, next))
			id.IntegrityScore = next
		}

	case EventTenureReview:
		// No direct effect; promotion and demotion below do the work.

	default:
		return id, nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown rank event %q", ev.Kind))
	}

	id, changes = settle(id, changes, t, now)
	return id, changes, nil
}

// settle applies the ladder rules that hold after every event: promotion to
// SILVER on verification, tenure-gated GOLD, integrity-driven demotion and
// shadow restriction.
func settle(id Identity, changes []Change, t *config.Tunables, now time.Time) (Identity, []Change) {
	// Verified identities sit at SILVER or above. DIAMOND is only ever
	// assigned through operator confirmation.
	if id.Verified() && !id.Tier.AtLeast(domain.TierSilver) {
		changes = append(changes, tierChange(id.Tier, domain.TierSilver))
		id.Tier = domain.TierSilver
	}

	if id.Tier == domain.TierSilver &&
		id.IntegrityScore >= t.GoldIntegrityFloor &&
		!id.VerifiedAt.IsZero() &&
		now.Sub(id.VerifiedAt) >= t.GoldTenure {
		changes = append(changes, tierChange(id.Tier, domain.TierGold))
		id.Tier = domain.TierGold
	}

	if id.IntegrityScore < t.DemotionIntegrityFloor && id.Tier.AtLeast(domain.TierSilver) {
		// Decayed integrity walks the citizen back down one tier at a
		// time; DIAMOND is not exempt.
		to := demote(id.Tier)
		changes = append(changes, tierChange(id.Tier, to))
		id.Tier = to
	}

	if restricted := id.IntegrityScore < t.ShadowBanThreshold; restricted != id.ShadowRestricted {
		changes = append(changes, Change{
			Field: "shadow_restricted",
			From:  fmt.Sprintf("%t", id.ShadowRestricted),
			To:    fmt.Sprintf("%t", restricted),
		})
		id.ShadowRestricted = restricted
	}

	return id, changes
}

func demote(t domain.Tier) domain.Tier {
	switch t {
	case domain.TierDiamond:
		return domain.TierGold
	case domain.TierGold:
		return domain.TierSilver
	default:
		return domain.TierBronze
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func tierChange(from, to domain.Tier) Change {
	return Change{Field: "tier", From: from.String(), To: to.String()}
}

func levelChange(from, to domain.VerificationLevel) Change {
	return Change{Field: "verification_level", From: fmt.Sprintf("%d", from), To: fmt.Sprintf("%d", to)}
}

func integrityChange(from, to float64) Change {
	return Change{Field: "integrity_score", From: fmt.Sprintf("%.2f", from), To: fmt.Sprintf("%.2f", to)}
}
