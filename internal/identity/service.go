package identity

import (
	"context"
	"log/slog"

	"veritas/internal/audit"
	"veritas/internal/identity/metrics"
	"veritas/internal/platform/config"
	"veritas/internal/rank"
	"veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/requestcontext"
)

// AuditPublisher is the slice of the audit publisher the service needs.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service owns the citizen lifecycle: registration, document verification,
// profile updates, and the rank transitions they trigger. All tier movement
// goes through the rank engine; the service only persists and audits it.
type Service struct {
	store    Store
	tunables *config.Store
	salt     string
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditor  AuditPublisher
}

func NewService(store Store, tunables *config.Store, salt string, logger *slog.Logger, m *metrics.Metrics, auditor AuditPublisher) *Service {
	return &Service{
		store:    store,
		tunables: tunables,
		salt:     salt,
		logger:   logger,
		metrics:  m,
		auditor:  auditor,
	}
}

// Register creates a citizen at the entry rank.
func (s *Service) Register(ctx context.Context) (rank.Identity, error) {
	identity := rank.NewIdentity(domain.NewCitizenID(), s.tunables.Load(), requestcontext.Now(ctx))
	if err := s.store.Save(ctx, identity); err != nil {
		return rank.Identity{}, dErrors.Wrap(dErrors.CodeInternal, "register citizen", err)
	}

	if s.metrics != nil {
		s.metrics.Registrations.Inc()
	}
	s.auditor.Emit(ctx, audit.Event{
		Category:   audit.CategoryCompliance,
		Actor:      identity.ID.String(),
		Action:     audit.ActionCitizenRegistered,
		EntityType: "CITIZEN",
		EntityID:   identity.ID.String(),
	})
	return identity, nil
}

// VerifyDocument validates a national identity document, proves it unclaimed,
// and promotes the citizen through the rank engine. The plaintext document
// exists only for the duration of this call.
func (s *Service) VerifyDocument(ctx context.Context, citizenID domain.CitizenID, nationalID string) (rank.Identity, error) {
	identity, err := s.store.Get(ctx, citizenID)
	if err != nil {
		return rank.Identity{}, err
	}

	if err := rank.ValidateNationalID(nationalID); err != nil {
		s.auditor.Emit(ctx, audit.Event{
			Category:   audit.CategoryCompliance,
			Actor:      citizenID.String(),
			Action:     audit.ActionDocumentRejected,
			EntityType: "CITIZEN",
			EntityID:   citizenID.String(),
			Reason:     "checksum validation failed",
		})
		return rank.Identity{}, err
	}

	hash := rank.HashNationalID(nationalID, s.salt)
	if owner, found, err := s.store.FindByNationalHash(ctx, hash); err != nil {
		return rank.Identity{}, dErrors.Wrap(dErrors.CodeInternal, "duplicate check", err)
	} else if found && owner.ID != citizenID {
		if s.metrics != nil {
			s.metrics.DuplicateDocuments.Inc()
		}
		s.auditor.Emit(ctx, audit.Event{
			Category:   audit.CategorySecurity,
			Actor:      citizenID.String(),
			Action:     audit.ActionDuplicateDocument,
			EntityType: "CITIZEN",
			EntityID:   citizenID.String(),
			Detail:     map[string]string{"national_id_hash": hash},
		})
		// Same bland rejection as a bad checksum: the caller learns
		// nothing about which document is already claimed.
		return rank.Identity{}, dErrors.New(dErrors.CodeInvalidInput, "document verification failed")
	}

	identity.NationalIDHash = hash
	updated, changes, err := rank.Apply(identity, rank.Event{Kind: rank.EventDocumentVerified}, s.tunables.Load(), requestcontext.Now(ctx))
	if err != nil {
		return rank.Identity{}, err
	}
	if err := s.store.Save(ctx, updated); err != nil {
		return rank.Identity{}, dErrors.Wrap(dErrors.CodeInternal, "save verified citizen", err)
	}

	s.auditor.Emit(ctx, audit.Event{
		Category:   audit.CategoryCompliance,
		Actor:      citizenID.String(),
		Action:     audit.ActionDocumentVerified,
		EntityType: "CITIZEN",
		EntityID:   citizenID.String(),
		Detail:     map[string]string{"national_id_hash": hash},
	})
	s.auditChanges(ctx, citizenID, changes, citizenID.String())
	return updated, nil
}

// UpdateProfile applies optional profile fields and the integrity nudges
// they earn.
func (s *Service) UpdateProfile(ctx context.Context, citizenID domain.CitizenID, commune, region, ageRange string) (rank.Identity, error) {
	identity, err := s.store.Get(ctx, citizenID)
	if err != nil {
		return rank.Identity{}, err
	}

	updated, changes, err := rank.Apply(identity, rank.Event{
		Kind:     rank.EventProfileUpdated,
		Commune:  commune,
		Region:   region,
		AgeRange: ageRange,
	}, s.tunables.Load(), requestcontext.Now(ctx))
	if err != nil {
		return rank.Identity{}, err
	}
	if err := s.store.Save(ctx, updated); err != nil {
		return rank.Identity{}, dErrors.Wrap(dErrors.CodeInternal, "save profile", err)
	}

	s.auditor.Emit(ctx, audit.Event{
		Category:   audit.CategoryOperations,
		Actor:      citizenID.String(),
		Action:     audit.ActionProfileUpdated,
		EntityType: "CITIZEN",
		EntityID:   citizenID.String(),
	})
	s.auditChanges(ctx, citizenID, changes, citizenID.String())
	return updated, nil
}

// OperatorConfirm records a manual identity attestation. Actor is the
// operator identity from the admin surface, not the citizen.
func (s *Service) OperatorConfirm(ctx context.Context, citizenID domain.CitizenID, actor string) (rank.Identity, error) {
	return s.apply(ctx, citizenID, rank.Event{Kind: rank.EventOperatorConfirmed}, actor)
}

// AdjustIntegrity moves a citizen's integrity score by delta. Demotion and
// shadow restriction fall out of the rank engine.
func (s *Service) AdjustIntegrity(ctx context.Context, citizenID domain.CitizenID, delta float64, actor string) (rank.Identity, error) {
	return s.apply(ctx, citizenID, rank.Event{Kind: rank.EventIntegrityAdjusted, IntegrityDelta: delta}, actor)
}

// ReviewTenures walks every citizen applying tenure-gated promotions.
// Intended for a periodic sweep, not the request path.
func (s *Service) ReviewTenures(ctx context.Context) error {
	identities, err := s.store.List(ctx)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "list citizens", err)
	}
	for _, identity := range identities {
		if _, err := s.apply(ctx, identity.ID, rank.Event{Kind: rank.EventTenureReview}, "system"); err != nil {
			s.logger.WarnContext(ctx, "tenure review failed",
				"citizen_id", identity.ID,
				"error", err,
			)
		}
	}
	return nil
}

// Deactivate flips the active flag. Deactivated citizens keep their record
// but lose all influence.
func (s *Service) Deactivate(ctx context.Context, citizenID domain.CitizenID, actor, reason string) error {
	identity, err := s.store.Get(ctx, citizenID)
	if err != nil {
		return err
	}
	identity.Active = false
	if err := s.store.Save(ctx, identity); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "deactivate citizen", err)
	}

	s.auditor.Emit(ctx, audit.Event{
		Category:   audit.CategoryCompliance,
		Actor:      actor,
		Action:     audit.ActionTierChanged,
		EntityType: "CITIZEN",
		EntityID:   citizenID.String(),
		Reason:     reason,
		Detail:     map[string]string{"active": "false"},
	})
	return nil
}

// Get returns one identity.
func (s *Service) Get(ctx context.Context, citizenID domain.CitizenID) (rank.Identity, error) {
	return s.store.Get(ctx, citizenID)
}

// List returns every identity, for the operator valuation rollup.
func (s *Service) List(ctx context.Context) ([]rank.Identity, error) {
	return s.store.List(ctx)
}

func (s *Service) apply(ctx context.Context, citizenID domain.CitizenID, ev rank.Event, actor string) (rank.Identity, error) {
	identity, err := s.store.Get(ctx, citizenID)
	if err != nil {
		return rank.Identity{}, err
	}

	updated, changes, err := rank.Apply(identity, ev, s.tunables.Load(), requestcontext.Now(ctx))
	if err != nil {
		return rank.Identity{}, err
	}
	if err := s.store.Save(ctx, updated); err != nil {
		return rank.Identity{}, dErrors.Wrap(dErrors.CodeInternal, "save citizen", err)
	}
	s.auditChanges(ctx, citizenID, changes, actor)
	return updated, nil
}

// auditChanges emits one event per observable rank transition.
func (s *Service) auditChanges(ctx context.Context, citizenID domain.CitizenID, changes []rank.Change, acting string) {
	for _, ch := range changes {
		switch ch.Field {
		case "tier":
			if s.metrics != nil {
				s.metrics.TierChanges.WithLabelValues(ch.To).Inc()
			}
			s.auditor.Emit(ctx, audit.Event{
				Category:   audit.CategoryCompliance,
				Actor:      acting,
				Action:     audit.ActionTierChanged,
				EntityType: "CITIZEN",
				EntityID:   citizenID.String(),
				Detail:     map[string]string{"from": ch.From, "to": ch.To},
			})
		case "shadow_restricted":
			action := audit.ActionShadowApplied
			if ch.To == "false" {
				action = audit.ActionShadowLifted
			}
			s.auditor.Emit(ctx, audit.Event{
				Category:   audit.CategorySecurity,
				Actor:      acting,
				Action:     action,
				EntityType: "CITIZEN",
				EntityID:   citizenID.String(),
			})
		}
	}
}
