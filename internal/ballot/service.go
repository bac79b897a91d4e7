package ballot

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veritas/internal/audit"
	"veritas/internal/ballot/metrics"
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

var tracer = otel.Tracer("veritas/ballot")

// IdentityReader is the slice of the identity service the ballot box needs.
type IdentityReader interface {
	Get(ctx context.Context, id domain.CitizenID) (rank.Identity, error)
}

// AuditPublisher is the slice of the audit publisher the ballot box needs.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service runs the cast path: policy checks, weight resolution, atomic
// upsert, synchronous recompute, then fire-and-forget publication.
type Service struct {
	store      Store
	identities IdentityReader
	limiter    ratelimit.Limiter
	engine     *reputation.Engine
	tunables   *config.Store
	pulse      pulse.Publisher
	auditor    AuditPublisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewService(
	store Store,
	identities IdentityReader,
	limiter ratelimit.Limiter,
	engine *reputation.Engine,
	tunables *config.Store,
	pulsePub pulse.Publisher,
	auditor AuditPublisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		store:      store,
		identities: identities,
		limiter:    limiter,
		engine:     engine,
		tunables:   tunables,
		pulse:      pulsePub,
		auditor:    auditor,
		logger:     logger,
		metrics:    m,
	}
}

// CastVote commits one ballot. The returned outcome reads the same whether
// the ballot counts publicly or not; exclusion happens at aggregation, not
// at ingestion.
func (s *Service) CastVote(ctx context.Context, voterID domain.CitizenID, targetID domain.TargetID, value float64) (*VoteOutcome, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "ballot.cast", trace.WithAttributes(
		attribute.String("target.id", targetID.String()),
	))
	defer span.End()

	outcome, err := s.cast(ctx, voterID, targetID, value)
	if s.metrics != nil {
		s.metrics.CastDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
		s.metrics.Casts.WithLabelValues(outcomeLabel(outcome, err)).Inc()
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return outcome, nil
}

func (s *Service) cast(ctx context.Context, voterID domain.CitizenID, targetID domain.TargetID, value float64) (*VoteOutcome, error) {
	if value < 0 || value > 5 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "value out of range")
	}
	t := s.tunables.Load()

	target, err := s.store.GetTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	voter, err := s.identities.Get(ctx, voterID)
	if err != nil {
		return nil, err
	}
	if !voter.Active {
		// Same generic rejection shape as any declined vote.
		return nil, dErrors.New(dErrors.CodeForbidden, "vote declined")
	}

	if d := s.limiter.Allow(ctx, voterID.String(), t.MaxVotesPerHour); !d.Allowed {
		s.auditEmit(ctx, audit.CategorySecurity, voterID, targetID, audit.ActionVoteRejected, map[string]string{
			"reason": "rate_limited",
		})
		return nil, dErrors.New(dErrors.CodeRateLimited, "vote declined")
	}

	weight := t.Weight(voter.Tier)
	local := s.isLocal(target, voter, t)
	if local {
		weight *= t.TerritorialBonus
	}

	counted := !voter.ShadowRestricted
	if c, ok := scanner.FromContext(ctx); ok && !c.Counted() {
		counted = false
	}

	// Recompute runs inside the store's per-target critical section:
	// the submitting client reads its own write, and concurrent casts
	// cannot publish scores out of commit order.
	now := requestcontext.Now(ctx)
	result, err := s.store.UpsertBallot(ctx, Ballot{
		ID:        domain.NewBallotID(),
		VoterID:   voterID,
		TargetID:  targetID,
		Value:     value,
		Weight:    weight,
		Counted:   counted,
		CastAt:    now,
		UpdatedAt: now,
	}, func(a Aggregate) reputation.Score {
		return s.engine.Recompute(a.VoteCount, a.WeightedSum, a.TotalWeight)
	})
	if err != nil {
		return nil, err
	}
	score := result.Score

	s.publishPulse(ctx, targetID, score, voter.Tier)
	s.auditCast(ctx, voterID, targetID, result, counted, weight)

	return &VoteOutcome{
		BallotID: result.Ballot.ID,
		TargetID: targetID,
		Updated:  result.Previous != nil,
		Counted:  counted,
		Weight:   weight,
		Local:    local,
		Score:    score,
	}, nil
}

// isLocal applies the territorial rule: person targets with a jurisdiction,
// voters at SILVER or above, and a matching locality.
func (s *Service) isLocal(target Target, voter rank.Identity, t *config.Tunables) bool {
	return target.Type.Jurisdictional() &&
		target.Jurisdiction != "" &&
		voter.Tier.AtLeast(domain.TierSilver) &&
		voter.Commune == target.Jurisdiction
}

// Score returns the published state of one target.
func (s *Service) Score(ctx context.Context, targetID domain.TargetID) (reputation.Score, error) {
	return s.store.PublishedScore(ctx, targetID)
}

// CreateTarget registers a new rateable target.
func (s *Service) CreateTarget(ctx context.Context, targetType domain.TargetType, name, jurisdiction string) (Target, error) {
	if name == "" {
		return Target{}, dErrors.New(dErrors.CodeInvalidInput, "target name required")
	}
	if jurisdiction != "" && !targetType.Jurisdictional() {
		return Target{}, dErrors.New(dErrors.CodeInvalidInput, "jurisdiction requires a person target")
	}

	target := Target{
		ID:           domain.NewTargetID(),
		Type:         targetType,
		Name:         name,
		Jurisdiction: jurisdiction,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.CreateTarget(ctx, target); err != nil {
		return Target{}, err
	}
	return target, nil
}

// ResweepAll re-derives every target's published score from decayed ballot
// contributions. Raw accumulators stay untouched; decay applies only to
// what is published.
func (s *Service) ResweepAll(ctx context.Context) error {
	ids, err := s.store.ListTargetIDs(ctx)
	if err != nil {
		return err
	}

	t := s.tunables.Load()
	now := time.Now().UTC()
	halfLife := t.DecayHalfLife.Seconds()

	for _, id := range ids {
		ballots, err := s.store.BallotsByTarget(ctx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "resweep skipped target", "target_id", id, "error", err)
			continue
		}

		var agg Aggregate
		for _, b := range ballots {
			if !b.Counted {
				continue
			}
			decayed := b.Weight * reputation.DecayFactor(now.Sub(b.UpdatedAt).Seconds(), halfLife)
			agg.VoteCount++
			agg.WeightedSum += decayed * b.Value
			agg.TotalWeight += decayed
		}

		score := s.engine.Recompute(agg.VoteCount, agg.WeightedSum, agg.TotalWeight)
		if err := s.store.PublishScore(ctx, id, score); err != nil {
			s.logger.WarnContext(ctx, "resweep publish failed", "target_id", id, "error", err)
			continue
		}
		s.publishPulse(ctx, id, score, "")
	}

	if s.metrics != nil {
		s.metrics.Resweeps.Inc()
	}
	return nil
}

// publishPulse is fire-and-forget: the commit already happened.
func (s *Service) publishPulse(ctx context.Context, targetID domain.TargetID, score reputation.Score, voterTier domain.Tier) {
	s.pulse.Publish(ctx, targetID, pulse.Update{
		TargetID:         targetID.String(),
		NewScore:         score.Reputation,
		TotalVotes:       score.VoteCount,
		IntegrityIndex:   score.IntegrityIndex,
		IsTopTierVerdict: voterTier.AtLeast(domain.TierGold),
		VoterTier:        voterTier.String(),
		Timestamp:        requestcontext.Now(ctx),
	})
}

func (s *Service) auditCast(ctx context.Context, voterID domain.CitizenID, targetID domain.TargetID, result UpsertResult, counted bool, weight float64) {
	action := audit.ActionVoteAccepted
	category := audit.CategoryOperations
	if !counted {
		action = audit.ActionVoteShadowed
		category = audit.CategorySecurity
	}
	s.auditEmit(ctx, category, voterID, targetID, action, map[string]string{
		"ballot_id": result.Ballot.ID.String(),
		"weight":    strconv.FormatFloat(weight, 'f', -1, 64),
		"updated":   strconv.FormatBool(result.Previous != nil),
	})
}

func (s *Service) auditEmit(ctx context.Context, category audit.Category, voterID domain.CitizenID, targetID domain.TargetID, action audit.Action, detail map[string]string) {
	s.auditor.Emit(ctx, audit.Event{
		Category:   category,
		Actor:      voterID.String(),
		Action:     action,
		EntityType: "TARGET",
		EntityID:   targetID.String(),
		Detail:     detail,
	})
}

func outcomeLabel(outcome *VoteOutcome, err error) string {
	switch {
	case err != nil:
		return "rejected"
	case !outcome.Counted:
		return "shadowed"
	default:
		return "accepted"
	}
}
