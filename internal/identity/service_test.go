package identity

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"veritas/internal/audit"
	"veritas/internal/platform/config"
	"veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// capturingAuditor records emitted events for assertions.
type capturingAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *capturingAuditor) Emit(_ context.Context, event audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *capturingAuditor) actions() []audit.Action {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]audit.Action, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Action)
	}
	return out
}

type ServiceSuite struct {
	suite.Suite

	store   *InMemoryStore
	auditor *capturingAuditor
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.auditor = &capturingAuditor{}
	s.service = NewService(
		s.store,
		config.NewStore(config.Defaults()),
		"test-salt",
		slog.Default(),
		nil,
		s.auditor,
	)
}

func (s *ServiceSuite) TestRegisterStartsAtBronze() {
	identity, err := s.service.Register(context.Background())
	s.Require().NoError(err)

	s.Equal(domain.TierBronze, identity.Tier)
	s.True(identity.Active)
	s.Contains(s.auditor.actions(), audit.ActionCitizenRegistered)

	stored, err := s.store.Get(context.Background(), identity.ID)
	s.Require().NoError(err)
	s.Equal(identity, stored)
}

func (s *ServiceSuite) TestVerifyDocumentPromotes() {
	identity, err := s.service.Register(context.Background())
	s.Require().NoError(err)

	verified, err := s.service.VerifyDocument(context.Background(), identity.ID, "12.345.678-5")
	s.Require().NoError(err)

	s.Equal(domain.TierSilver, verified.Tier)
	s.Equal(domain.VerificationDocument, verified.VerificationLevel)
	s.NotEmpty(verified.NationalIDHash)
	s.NotContains(verified.NationalIDHash, "12345678")

	actions := s.auditor.actions()
	s.Contains(actions, audit.ActionDocumentVerified)
	s.Contains(actions, audit.ActionTierChanged)
}

func (s *ServiceSuite) TestVerifyDocumentRejectsBadChecksum() {
	identity, err := s.service.Register(context.Background())
	s.Require().NoError(err)

	_, err = s.service.VerifyDocument(context.Background(), identity.ID, "12.345.678-9")
	s.Require().Error(err)
	s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	s.Contains(s.auditor.actions(), audit.ActionDocumentRejected)
}

func (s *ServiceSuite) TestDuplicateDocumentGetsBlandRejection() {
	first, err := s.service.Register(context.Background())
	s.Require().NoError(err)
	second, err := s.service.Register(context.Background())
	s.Require().NoError(err)

	_, err = s.service.VerifyDocument(context.Background(), first.ID, "12.345.678-5")
	s.Require().NoError(err)

	_, err = s.service.VerifyDocument(context.Background(), second.ID, "12345678-5")
	s.Require().Error(err)
	// Indistinguishable from a checksum failure on the wire.
	s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	s.Contains(s.auditor.actions(), audit.ActionDuplicateDocument)

	stored, err := s.store.Get(context.Background(), second.ID)
	s.Require().NoError(err)
	s.Equal(domain.TierBronze, stored.Tier)
}

func (s *ServiceSuite) TestReverifyingOwnDocumentIsIdempotent() {
	identity, err := s.service.Register(context.Background())
	s.Require().NoError(err)

	_, err = s.service.VerifyDocument(context.Background(), identity.ID, "12.345.678-5")
	s.Require().NoError(err)
	again, err := s.service.VerifyDocument(context.Background(), identity.ID, "12.345.678-5")
	s.Require().NoError(err)
	s.Equal(domain.TierSilver, again.Tier)
}

func (s *ServiceSuite) TestUpdateProfileNudgesIntegrity() {
	identity, err := s.service.Register(context.Background())
	s.Require().NoError(err)

	updated, err := s.service.UpdateProfile(context.Background(), identity.ID, "Valparaiso", "V", "30-39")
	s.Require().NoError(err)
	s.InDelta(0.56, updated.IntegrityScore, 1e-9)
	s.Contains(s.auditor.actions(), audit.ActionProfileUpdated)
}

func (s *ServiceSuite) TestAdjustIntegrityCanShadowRestrict() {
	identity, err := s.service.Register(context.Background())
	s.Require().NoError(err)

	updated, err := s.service.AdjustIntegrity(context.Background(), identity.ID, -0.4, "ops@veritas")
	s.Require().NoError(err)
	s.True(updated.ShadowRestricted)
	s.Contains(s.auditor.actions(), audit.ActionShadowApplied)
}

func (s *ServiceSuite) TestDeactivate() {
	identity, err := s.service.Register(context.Background())
	s.Require().NoError(err)

	s.Require().NoError(s.service.Deactivate(context.Background(), identity.ID, "ops@veritas", "fraud review"))

	stored, err := s.store.Get(context.Background(), identity.ID)
	s.Require().NoError(err)
	s.False(stored.Active)
}

func (s *ServiceSuite) TestGetUnknownCitizen() {
	_, err := s.service.Get(context.Background(), domain.NewCitizenID())
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}
