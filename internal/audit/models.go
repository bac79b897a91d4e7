// Package audit is the append-only forensic trail. Once an event enters the
// log there is no update or delete path for it.
package audit

import "time"

// Category classifies audit events by their primary purpose. It selects
// retention and routing, not storage shape.
type Category string

const (
	// CategoryCompliance covers events with legal significance: identity
	// verification outcomes, tier changes.
	CategoryCompliance Category = "compliance"
	// CategorySecurity covers events that feed monitoring and forensics:
	// posture changes, shadow restrictions, displaced traffic.
	CategorySecurity Category = "security"
	// CategoryOperations covers routine visibility: accepted votes,
	// config reloads.
	CategoryOperations Category = "operations"
)

// Action names the recorded occurrence.
type Action string

const (
	ActionCitizenRegistered Action = "citizen_registered"
	ActionDocumentVerified  Action = "document_verified"
	ActionDocumentRejected  Action = "document_rejected"
	ActionDuplicateDocument Action = "duplicate_document_attempt"
	ActionTierChanged       Action = "tier_changed"
	ActionProfileUpdated    Action = "profile_updated"
	ActionShadowApplied     Action = "shadow_restriction_applied"
	ActionShadowLifted      Action = "shadow_restriction_lifted"
	ActionVoteAccepted      Action = "vote_accepted"
	ActionVoteShadowed      Action = "vote_shadow_filtered"
	ActionVoteRejected      Action = "vote_rejected"
	ActionPostureChanged    Action = "posture_changed"
	ActionConfigReloaded    Action = "config_reloaded"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   Category
	Timestamp  time.Time
	Actor      string
	Action     Action
	EntityType string
	EntityID   string
	Reason     string
	// Detail carries structured context. Values must already be free of
	// raw PII; identity documents appear only as hashes.
	Detail map[string]string
}
