package scanner

import (
	"time"

	"veritas/internal/fingerprint"
	"veritas/internal/platform/config"
	"veritas/internal/posture"
	"veritas/internal/scanner/metrics"
)

// Scanner scores fingerprints against the current tunables and posture.
// Scoring is deterministic: the same fingerprint, tunables snapshot and
// posture always yield the same classification.
type Scanner struct {
	tunables *config.Store
	metrics  *metrics.Metrics
}

func New(tunables *config.Store, m *metrics.Metrics) *Scanner {
	return &Scanner{tunables: tunables, metrics: m}
}

// Classify scores a fingerprint. The score starts at 100 and each detection
// subtracts its penalty; it never drops below 0. The automation flag is
// saturating and forces the score to 0 outright.
func (s *Scanner) Classify(fp fingerprint.Fingerprint, p posture.Posture) Classification {
	t := s.tunables.Load()

	score := 100
	var alerts []Alert

	if fp.AutomationFlag {
		score = 0
		alerts = append(alerts, AlertAutomationFlag)
	} else {
		if fp.FillDuration > 0 {
			switch {
			case fp.FillDuration < secondsToDuration(t.ImpossibleFillSeconds):
				score -= t.PenaltyImpossibleSpeed
				alerts = append(alerts, AlertImpossibleSpeed)
			case fp.FillDuration < secondsToDuration(t.FastFillSeconds):
				score -= t.PenaltyFastSubmission
				alerts = append(alerts, AlertFastSubmission)
			}
		}
		if fp.BotSignature {
			score -= t.PenaltyBotSignature
			alerts = append(alerts, AlertBotSignature)
		}
		if fp.GenericIdentity {
			score -= t.PenaltyGenericIdentity
			alerts = append(alerts, AlertGenericIdentity)
		}
		if fp.Origin == fingerprint.OriginDatacenter {
			score -= t.PenaltyDatacenter
			alerts = append(alerts, AlertDatacenter)
		}
		if score < 0 {
			score = 0
		}
	}

	c := Classification{
		Score:  score,
		Class:  classify(score, t, p),
		Alerts: alerts,
	}
	c.RequireChallenge, c.ChallengeKind = challengePolicy(c, t, p)

	if s.metrics != nil {
		s.metrics.Classifications.WithLabelValues(string(c.Class)).Inc()
		if c.RequireChallenge {
			s.metrics.Challenges.WithLabelValues(string(c.ChallengeKind)).Inc()
		}
	}
	return c
}

// classify maps a score to a class. Posture moves the displaced boundary:
// GREEN relaxes it, RED tightens it, YELLOW uses the configured value.
func classify(score int, t *config.Tunables, p posture.Posture) Class {
	displaced := t.DisplacedBoundary
	switch p {
	case posture.Green:
		displaced -= t.PostureBoundaryShift
	case posture.Red:
		displaced += t.PostureBoundaryShift
	}

	switch {
	case score > t.HumanBoundary:
		return ClassHuman
	case score > displaced:
		return ClassSuspicious
	default:
		return ClassDisplaced
	}
}

// challengePolicy decides whether the caller is interrupted. This is the
// only classification effect a caller can observe.
//
//	GREEN:  challenge DISPLACED only.
//	YELLOW: challenge everyone below the human boundary.
//	RED:    challenge everyone; hard challenge below half the boundary.
func challengePolicy(c Classification, t *config.Tunables, p posture.Posture) (bool, ChallengeKind) {
	switch p {
	case posture.Red:
		if c.Score < t.HumanBoundary-t.PostureBoundaryShift*2 {
			return true, ChallengeHard
		}
		return true, ChallengeSoft
	case posture.Yellow:
		if c.Score <= t.HumanBoundary {
			return true, ChallengeSoft
		}
	default:
		if c.Class == ClassDisplaced {
			return true, ChallengeSoft
		}
	}
	return false, ChallengeNone
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
