package ballot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"veritas/internal/reputation"
	"veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// PostgresStore persists ballots and targets. The ballot upsert and the
// accumulator adjustment run in one transaction; the row lock on the
// target serializes concurrent casts per target while leaving other
// targets untouched.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateTarget(ctx context.Context, t Target) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO targets (id, type, name, jurisdiction, created_at,
			vote_count, weighted_sum, total_weight,
			published_reputation, published_confidence, published_integrity)
		VALUES ($1, $2, $3, $4, $5, 0, 0, 0, 0, 0, 0.5)`,
		t.ID.String(), t.Type.String(), t.Name, t.Jurisdiction, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTarget(ctx context.Context, id domain.TargetID) (Target, error) {
	var (
		t     Target
		rawID string
		typ   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, type, name, jurisdiction, created_at
		FROM targets
		WHERE id = $1`,
		id.String(),
	).Scan(&rawID, &typ, &t.Name, &t.Jurisdiction, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Target{}, dErrors.New(dErrors.CodeNotFound, "target not found")
	}
	if err != nil {
		return Target{}, fmt.Errorf("get target: %w", err)
	}

	t.ID = id
	parsed, err := domain.ParseTargetType(typ)
	if err != nil {
		return Target{}, dErrors.Wrap(dErrors.CodeIntegrity, "stored target type", err)
	}
	t.Type = parsed
	return t, nil
}

func (s *PostgresStore) ListTargetIDs(ctx context.Context) ([]domain.TargetID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM targets`)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var out []domain.TargetID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan target id: %w", err)
		}
		id, err := domain.ParseTargetID(raw)
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeIntegrity, "stored target id", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertBallot(ctx context.Context, b Ballot, score ScoreFunc) (UpsertResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("begin cast: %w", err)
	}
	defer tx.Rollback()

	// Lock the target row first: this is the per-target serialization
	// point for the read-modify-write below.
	var exists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT true FROM targets WHERE id = $1 FOR UPDATE`,
		b.TargetID.String(),
	).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UpsertResult{}, dErrors.New(dErrors.CodeNotFound, "target not found")
		}
		return UpsertResult{}, fmt.Errorf("lock target: %w", err)
	}

	var prev *Ballot
	var prevBallot Ballot
	var prevID string
	err = tx.QueryRowContext(ctx, `
		SELECT id, value, weight, counted, cast_at
		FROM ballots
		WHERE voter_id = $1 AND target_id = $2`,
		b.VoterID.String(), b.TargetID.String(),
	).Scan(&prevID, &prevBallot.Value, &prevBallot.Weight, &prevBallot.Counted, &prevBallot.CastAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return UpsertResult{}, fmt.Errorf("load previous ballot: %w", err)
	default:
		ballotID, err := domain.ParseBallotID(prevID)
		if err != nil {
			return UpsertResult{}, dErrors.Wrap(dErrors.CodeIntegrity, "stored ballot id", err)
		}
		prevBallot.ID = ballotID
		prevBallot.VoterID = b.VoterID
		prevBallot.TargetID = b.TargetID
		prev = &prevBallot
		b.ID = prevBallot.ID
		b.CastAt = prevBallot.CastAt
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ballots (id, voter_id, target_id, value, weight, counted, cast_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (voter_id, target_id) DO UPDATE SET
			value = EXCLUDED.value,
			weight = EXCLUDED.weight,
			counted = EXCLUDED.counted,
			updated_at = EXCLUDED.updated_at`,
		b.ID.String(), b.VoterID.String(), b.TargetID.String(),
		b.Value, b.Weight, b.Counted, b.CastAt, b.UpdatedAt,
	); err != nil {
		return UpsertResult{}, fmt.Errorf("upsert ballot: %w", err)
	}

	dc, ds, dw := aggregateDelta(prev, b)
	var agg Aggregate
	if err := tx.QueryRowContext(ctx, `
		UPDATE targets SET
			vote_count = vote_count + $2,
			weighted_sum = weighted_sum + $3,
			total_weight = total_weight + $4
		WHERE id = $1
		RETURNING vote_count, weighted_sum, total_weight`,
		b.TargetID.String(), dc, ds, dw,
	).Scan(&agg.VoteCount, &agg.WeightedSum, &agg.TotalWeight); err != nil {
		return UpsertResult{}, fmt.Errorf("update aggregate: %w", err)
	}

	result := UpsertResult{Ballot: b, Previous: prev, Aggregate: agg}
	if score != nil {
		// Still inside the transaction holding the target row lock, so
		// publications land in commit order.
		result.Score = score(agg)
		if _, err := tx.ExecContext(ctx, `
			UPDATE targets SET
				published_reputation = $2,
				published_confidence = $3,
				published_integrity = $4
			WHERE id = $1`,
			b.TargetID.String(),
			result.Score.Reputation, result.Score.Confidence, result.Score.IntegrityIndex,
		); err != nil {
			return UpsertResult{}, fmt.Errorf("publish score: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("commit cast: %w", err)
	}
	return result, nil
}

func (s *PostgresStore) Aggregate(ctx context.Context, id domain.TargetID) (Aggregate, error) {
	var agg Aggregate
	err := s.db.QueryRowContext(ctx, `
		SELECT vote_count, weighted_sum, total_weight
		FROM targets
		WHERE id = $1`,
		id.String(),
	).Scan(&agg.VoteCount, &agg.WeightedSum, &agg.TotalWeight)
	if errors.Is(err, sql.ErrNoRows) {
		return Aggregate{}, dErrors.New(dErrors.CodeNotFound, "target not found")
	}
	if err != nil {
		return Aggregate{}, fmt.Errorf("read aggregate: %w", err)
	}
	return agg, nil
}

func (s *PostgresStore) BallotsByTarget(ctx context.Context, id domain.TargetID) ([]Ballot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, voter_id, value, weight, counted, cast_at, updated_at
		FROM ballots
		WHERE target_id = $1`,
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list ballots: %w", err)
	}
	defer rows.Close()

	var out []Ballot
	for rows.Next() {
		b := Ballot{TargetID: id}
		var rawID, rawVoter string
		if err := rows.Scan(&rawID, &rawVoter, &b.Value, &b.Weight, &b.Counted, &b.CastAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ballot: %w", err)
		}
		ballotID, err := domain.ParseBallotID(rawID)
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeIntegrity, "stored ballot id", err)
		}
		voterID, err := domain.ParseCitizenID(rawVoter)
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeIntegrity, "stored voter id", err)
		}
		b.ID = ballotID
		b.VoterID = voterID
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PublishScore(ctx context.Context, id domain.TargetID, score reputation.Score) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE targets SET
			published_reputation = $2,
			published_confidence = $3,
			published_integrity = $4
		WHERE id = $1`,
		id.String(), score.Reputation, score.Confidence, score.IntegrityIndex,
	)
	if err != nil {
		return fmt.Errorf("publish score: %w", err)
	}
	return nil
}

func (s *PostgresStore) PublishedScore(ctx context.Context, id domain.TargetID) (reputation.Score, error) {
	var score reputation.Score
	err := s.db.QueryRowContext(ctx, `
		SELECT vote_count, weighted_sum, total_weight,
			published_reputation, published_confidence, published_integrity
		FROM targets
		WHERE id = $1`,
		id.String(),
	).Scan(&score.VoteCount, &score.WeightedSum, &score.TotalWeight,
		&score.Reputation, &score.Confidence, &score.IntegrityIndex)
	if errors.Is(err, sql.ErrNoRows) {
		return reputation.Score{}, dErrors.New(dErrors.CodeNotFound, "target not found")
	}
	if err != nil {
		return reputation.Score{}, fmt.Errorf("read published score: %w", err)
	}
	return score, nil
}
