package ballot

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veritas/internal/audit"
	"veritas/internal/platform/config"
	"veritas/internal/pulse"
	"veritas/internal/rank"
	"veritas/internal/ratelimit"
	"veritas/internal/reputation"
	"veritas/internal/scanner"
	"veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/requestcontext"
)

// fakeIdentities serves identities from a map.
type fakeIdentities struct {
	mu sync.RWMutex
	m  map[domain.CitizenID]rank.Identity
}

func newFakeIdentities() *fakeIdentities {
	return &fakeIdentities{m: make(map[domain.CitizenID]rank.Identity)}
}

func (f *fakeIdentities) Get(_ context.Context, id domain.CitizenID) (rank.Identity, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	identity, ok := f.m[id]
	if !ok {
		return rank.Identity{}, dErrors.New(dErrors.CodeNotFound, "citizen not found")
	}
	return identity, nil
}

func (f *fakeIdentities) add(tier domain.Tier) domain.CitizenID {
	id := domain.NewCitizenID()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[id] = rank.Identity{ID: id, Tier: tier, IntegrityScore: 0.75, Active: true}
	return id
}

func (f *fakeIdentities) set(identity rank.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[identity.ID] = identity
}

// capturingPulse records published updates.
type capturingPulse struct {
	mu      sync.Mutex
	updates []pulse.Update
}

func (p *capturingPulse) Publish(_ context.Context, _ domain.TargetID, u pulse.Update) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, u)
}

func (p *capturingPulse) last() (pulse.Update, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.updates) == 0 {
		return pulse.Update{}, false
	}
	return p.updates[len(p.updates)-1], true
}

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

	store      *InMemoryStore
	identities *fakeIdentities
	pulse      *capturingPulse
	auditor    *capturingAuditor
	tunables   *config.Store
	service    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.identities = newFakeIdentities()
	s.pulse = &capturingPulse{}
	s.auditor = &capturingAuditor{}
	s.tunables = config.NewStore(config.Defaults())
	s.service = NewService(
		s.store,
		s.identities,
		ratelimit.NewInMemory(time.Hour),
		reputation.NewEngine(s.tunables),
		s.tunables,
		s.pulse,
		s.auditor,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		nil,
	)
}

func (s *ServiceSuite) newTarget(targetType domain.TargetType, jurisdiction string) domain.TargetID {
	target, err := s.service.CreateTarget(context.Background(), targetType, "test target", jurisdiction)
	s.Require().NoError(err)
	return target.ID
}

func (s *ServiceSuite) TestFirstVoteMovesScoreOffThePrior() {
	targetID := s.newTarget(domain.TargetCompany, "")
	voterID := s.identities.add(domain.TierBronze)

	before, err := s.service.Score(context.Background(), targetID)
	s.Require().NoError(err)
	s.Zero(before.VoteCount)

	outcome, err := s.service.CastVote(context.Background(), voterID, targetID, 5)
	s.Require().NoError(err)

	s.False(outcome.Updated)
	s.True(outcome.Counted)
	s.InDelta(1.0, outcome.Weight, 1e-9)
	s.InDelta(95.0/31.0, outcome.Score.Reputation, 1e-9)
	s.Equal(1, outcome.Score.VoteCount)
	s.Contains(s.auditor.actions(), audit.ActionVoteAccepted)

	update, ok := s.pulse.last()
	s.Require().True(ok)
	s.InDelta(outcome.Score.Reputation, update.NewScore, 1e-9)
	s.False(update.IsTopTierVerdict)
}

func (s *ServiceSuite) TestRecastReplacesContribution() {
	targetID := s.newTarget(domain.TargetCompany, "")
	voterID := s.identities.add(domain.TierSilver)

	_, err := s.service.CastVote(context.Background(), voterID, targetID, 4)
	s.Require().NoError(err)
	first, err := s.store.Aggregate(context.Background(), targetID)
	s.Require().NoError(err)
	s.InDelta(6.0, first.WeightedSum, 1e-9)

	outcome, err := s.service.CastVote(context.Background(), voterID, targetID, 2)
	s.Require().NoError(err)
	s.True(outcome.Updated)

	agg, err := s.store.Aggregate(context.Background(), targetID)
	s.Require().NoError(err)
	s.Equal(1, agg.VoteCount)
	s.InDelta(3.0, agg.WeightedSum, 1e-9)
	s.InDelta(-3.0, agg.WeightedSum-first.WeightedSum, 1e-9)
	s.InDelta(1.5, agg.TotalWeight, 1e-9)

	ballots, err := s.store.BallotsByTarget(context.Background(), targetID)
	s.Require().NoError(err)
	s.Len(ballots, 1)
}

func (s *ServiceSuite) TestConcurrentDistinctVoters() {
	targetID := s.newTarget(domain.TargetCompany, "")

	const n = 60
	voters := make([]domain.CitizenID, n)
	tiers := []domain.Tier{domain.TierBronze, domain.TierSilver, domain.TierGold, domain.TierDiamond}
	wantSum := 0.0
	wantWeight := 0.0
	t := s.tunables.Load()
	for i := range voters {
		tier := tiers[i%len(tiers)]
		voters[i] = s.identities.add(tier)
		value := float64(i%5 + 1)
		wantSum += t.Weight(tier) * value
		wantWeight += t.Weight(tier)
	}

	var wg sync.WaitGroup
	for i, voterID := range voters {
		wg.Add(1)
		go func(i int, voterID domain.CitizenID) {
			defer wg.Done()
			_, err := s.service.CastVote(context.Background(), voterID, targetID, float64(i%5+1))
			s.NoError(err)
		}(i, voterID)
	}
	wg.Wait()

	agg, err := s.store.Aggregate(context.Background(), targetID)
	s.Require().NoError(err)
	s.Equal(n, agg.VoteCount)
	s.InDelta(wantSum, agg.WeightedSum, 1e-6)
	s.InDelta(wantWeight, agg.TotalWeight, 1e-6)
}

func (s *ServiceSuite) TestConcurrentCastsPublishFinalScore() {
	targetID := s.newTarget(domain.TargetCompany, "")

	const n = 40
	voters := make([]domain.CitizenID, n)
	for i := range voters {
		voters[i] = s.identities.add(domain.TierBronze)
	}

	var wg sync.WaitGroup
	for i, voterID := range voters {
		wg.Add(1)
		go func(i int, voterID domain.CitizenID) {
			defer wg.Done()
			_, err := s.service.CastVote(context.Background(), voterID, targetID, float64(i%5+1))
			s.NoError(err)
		}(i, voterID)
	}
	wg.Wait()

	// Publication happens inside the per-target critical section, so the
	// stored score must match a recompute over the final aggregate. A
	// publish outside the lock could leave a score reflecting n-1 votes.
	agg, err := s.store.Aggregate(context.Background(), targetID)
	s.Require().NoError(err)
	want := s.service.engine.Recompute(agg.VoteCount, agg.WeightedSum, agg.TotalWeight)

	published, err := s.service.Score(context.Background(), targetID)
	s.Require().NoError(err)
	s.Equal(n, published.VoteCount)
	s.InDelta(want.Reputation, published.Reputation, 1e-12)
	s.InDelta(want.Confidence, published.Confidence, 1e-12)
	s.InDelta(want.IntegrityIndex, published.IntegrityIndex, 1e-12)
}

func (s *ServiceSuite) TestAggregatesPartitionByTarget() {
	first := s.newTarget(domain.TargetCompany, "")
	second := s.newTarget(domain.TargetEvent, "")
	voterID := s.identities.add(domain.TierBronze)

	_, err := s.service.CastVote(context.Background(), voterID, first, 5)
	s.Require().NoError(err)
	_, err = s.service.CastVote(context.Background(), voterID, second, 1)
	s.Require().NoError(err)

	aggFirst, err := s.store.Aggregate(context.Background(), first)
	s.Require().NoError(err)
	aggSecond, err := s.store.Aggregate(context.Background(), second)
	s.Require().NoError(err)

	s.InDelta(5.0, aggFirst.WeightedSum, 1e-9)
	s.InDelta(1.0, aggSecond.WeightedSum, 1e-9)
}

func (s *ServiceSuite) TestTerritorialBonus() {
	targetID := s.newTarget(domain.TargetPerson, "Providencia")

	s.Run("local verified voter", func() {
		voterID := s.identities.add(domain.TierSilver)
		identity, _ := s.identities.Get(context.Background(), voterID)
		identity.Commune = "Providencia"
		s.identities.set(identity)

		outcome, err := s.service.CastVote(context.Background(), voterID, targetID, 4)
		s.Require().NoError(err)
		s.True(outcome.Local)
		s.InDelta(2.25, outcome.Weight, 1e-9)
	})

	s.Run("bronze never gets the bonus", func() {
		voterID := s.identities.add(domain.TierBronze)
		identity, _ := s.identities.Get(context.Background(), voterID)
		identity.Commune = "Providencia"
		s.identities.set(identity)

		outcome, err := s.service.CastVote(context.Background(), voterID, targetID, 4)
		s.Require().NoError(err)
		s.False(outcome.Local)
		s.InDelta(1.0, outcome.Weight, 1e-9)
	})

	s.Run("non-matching commune", func() {
		voterID := s.identities.add(domain.TierGold)
		outcome, err := s.service.CastVote(context.Background(), voterID, targetID, 4)
		s.Require().NoError(err)
		s.False(outcome.Local)
		s.InDelta(2.5, outcome.Weight, 1e-9)
	})

	s.Run("company targets have no jurisdiction", func() {
		companyID := s.newTarget(domain.TargetCompany, "")
		voterID := s.identities.add(domain.TierDiamond)
		identity, _ := s.identities.Get(context.Background(), voterID)
		identity.Commune = "Providencia"
		s.identities.set(identity)

		outcome, err := s.service.CastVote(context.Background(), voterID, companyID, 4)
		s.Require().NoError(err)
		s.False(outcome.Local)
		s.InDelta(5.0, outcome.Weight, 1e-9)
	})
}

func (s *ServiceSuite) TestShadowRestrictedVoterSeesSuccess() {
	targetID := s.newTarget(domain.TargetCompany, "")
	voterID := s.identities.add(domain.TierSilver)
	identity, _ := s.identities.Get(context.Background(), voterID)
	identity.ShadowRestricted = true
	s.identities.set(identity)

	outcome, err := s.service.CastVote(context.Background(), voterID, targetID, 5)
	s.Require().NoError(err)
	s.False(outcome.Counted)
	s.NotEmpty(outcome.BallotID.String())

	agg, err := s.store.Aggregate(context.Background(), targetID)
	s.Require().NoError(err)
	s.Zero(agg.VoteCount)
	s.Zero(agg.WeightedSum)

	ballots, err := s.store.BallotsByTarget(context.Background(), targetID)
	s.Require().NoError(err)
	s.Len(ballots, 1)
	s.Contains(s.auditor.actions(), audit.ActionVoteShadowed)
}

func (s *ServiceSuite) TestDisplacedClassificationIsStoredUncounted() {
	targetID := s.newTarget(domain.TargetCompany, "")
	voterID := s.identities.add(domain.TierGold)

	ctx := scanner.WithClassification(context.Background(), scanner.Classification{
		Score: 0,
		Class: scanner.ClassDisplaced,
	})

	outcome, err := s.service.CastVote(ctx, voterID, targetID, 5)
	s.Require().NoError(err)
	s.False(outcome.Counted)

	agg, err := s.store.Aggregate(context.Background(), targetID)
	s.Require().NoError(err)
	s.Zero(agg.VoteCount)
}

func (s *ServiceSuite) TestRateLimit() {
	targetID := s.newTarget(domain.TargetCompany, "")
	voterID := s.identities.add(domain.TierBronze)

	t := config.Defaults()
	t.MaxVotesPerHour = 2
	s.Require().NoError(s.tunables.Replace(t))

	_, err := s.service.CastVote(context.Background(), voterID, targetID, 3)
	s.Require().NoError(err)
	_, err = s.service.CastVote(context.Background(), voterID, targetID, 4)
	s.Require().NoError(err)

	_, err = s.service.CastVote(context.Background(), voterID, targetID, 5)
	s.Require().Error(err)
	s.Equal(dErrors.CodeRateLimited, dErrors.CodeOf(err))
	s.Contains(s.auditor.actions(), audit.ActionVoteRejected)
}

func (s *ServiceSuite) TestInactiveVoterGetsGenericRejection() {
	targetID := s.newTarget(domain.TargetCompany, "")
	voterID := s.identities.add(domain.TierSilver)
	identity, _ := s.identities.Get(context.Background(), voterID)
	identity.Active = false
	s.identities.set(identity)

	_, err := s.service.CastVote(context.Background(), voterID, targetID, 3)
	s.Require().Error(err)
	s.Equal(dErrors.CodeForbidden, dErrors.CodeOf(err))
	s.Contains(err.Error(), "vote declined")
}

func (s *ServiceSuite) TestUnknownTarget() {
	voterID := s.identities.add(domain.TierBronze)
	_, err := s.service.CastVote(context.Background(), voterID, domain.NewTargetID(), 3)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestValueOutOfRange() {
	targetID := s.newTarget(domain.TargetCompany, "")
	voterID := s.identities.add(domain.TierBronze)

	_, err := s.service.CastVote(context.Background(), voterID, targetID, 5.5)
	s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	_, err = s.service.CastVote(context.Background(), voterID, targetID, -1)
	s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestTopTierVerdictFlag() {
	targetID := s.newTarget(domain.TargetCompany, "")
	voterID := s.identities.add(domain.TierDiamond)

	_, err := s.service.CastVote(context.Background(), voterID, targetID, 5)
	s.Require().NoError(err)

	update, ok := s.pulse.last()
	s.Require().True(ok)
	s.True(update.IsTopTierVerdict)
	s.Equal("DIAMOND", update.VoterTier)
}

func (s *ServiceSuite) TestResweepDecaysPublishedScore() {
	targetID := s.newTarget(domain.TargetCompany, "")
	voterID := s.identities.add(domain.TierBronze)

	// Cast at a fixed instant well in the past.
	castTime := time.Now().UTC().Add(-90 * 24 * time.Hour)
	ctx := requestcontext.WithTime(context.Background(), castTime)
	outcome, err := s.service.CastVote(ctx, voterID, targetID, 5)
	s.Require().NoError(err)

	s.Require().NoError(s.service.ResweepAll(context.Background()))

	swept, err := s.service.Score(context.Background(), targetID)
	s.Require().NoError(err)
	// One half-life has passed: the contribution halved, pulling the
	// published score back toward the prior.
	s.Less(swept.Reputation, outcome.Score.Reputation)
	s.Greater(swept.Reputation, 3.0)
	s.Equal(1, swept.VoteCount)
}

func (s *ServiceSuite) TestCreateTargetValidation() {
	_, err := s.service.CreateTarget(context.Background(), domain.TargetCompany, "", "")
	s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))

	_, err = s.service.CreateTarget(context.Background(), domain.TargetEvent, "concert", "Providencia")
	s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
}
