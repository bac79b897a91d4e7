// Package scanner scores request fingerprints into a trust value and a
// discrete classification. Classification gates influence silently: a
// DISPLACED caller receives the same apparent success as a HUMAN one.
package scanner

// Class is the discrete outcome of scoring a fingerprint.
type Class string

const (
	ClassHuman      Class = "HUMAN"
	ClassSuspicious Class = "SUSPICIOUS"
	ClassDisplaced  Class = "DISPLACED"
)

// ChallengeKind selects the interactive challenge presented to a caller.
type ChallengeKind string

const (
	ChallengeNone ChallengeKind = ""
	ChallengeSoft ChallengeKind = "soft"
	ChallengeHard ChallengeKind = "hard"
)

// Alert names a detection that contributed to the score. Alerts feed the
// audit trail and are never disclosed to the caller.
type Alert string

const (
	AlertImpossibleSpeed Alert = "IMPOSSIBLE_SUBMISSION_SPEED"
	AlertFastSubmission  Alert = "UNUSUALLY_FAST_SUBMISSION"
	AlertBotSignature    Alert = "AUTOMATION_SIGNATURE"
	AlertGenericIdentity Alert = "GENERIC_OR_MISSING_IDENTITY"
	AlertAutomationFlag  Alert = "AUTOMATION_FLAG"
	AlertDatacenter      Alert = "DATACENTER_ORIGIN"
)

// Classification is the scored verdict attached to the request context.
// Only the challenge decision is ever visible to the caller.
type Classification struct {
	Score  int
	Class  Class
	Alerts []Alert

	// RequireChallenge and ChallengeKind implement the posture-driven
	// challenge policy. They are the only externally visible effect.
	RequireChallenge bool
	ChallengeKind    ChallengeKind
}

// Human reports whether the verdict is fully trusted.
func (c Classification) Human() bool { return c.Class == ClassHuman }

// Counted reports whether a ballot cast under this verdict should reach the
// public aggregate.
func (c Classification) Counted() bool { return c.Class != ClassDisplaced }
