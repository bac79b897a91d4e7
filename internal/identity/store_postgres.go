package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"veritas/internal/rank"
	"veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// PostgresStore persists identities in the citizens table. The national ID
// itself never reaches this store; only its salted hash does, under a
// unique index that enforces one identity per document.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const identityColumns = `id, national_id_hash, verification_level, tier, integrity_score,
	active, shadow_restricted, commune, region, age_range, registered_at, verified_at`

func (s *PostgresStore) Get(ctx context.Context, id domain.CitizenID) (rank.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+identityColumns+`
		FROM citizens
		WHERE id = $1`,
		id.String(),
	)
	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rank.Identity{}, dErrors.New(dErrors.CodeNotFound, "citizen not found")
	}
	if err != nil {
		return rank.Identity{}, fmt.Errorf("get citizen: %w", err)
	}
	return identity, nil
}

func (s *PostgresStore) Save(ctx context.Context, identity rank.Identity) error {
	var verifiedAt sql.NullTime
	if !identity.VerifiedAt.IsZero() {
		verifiedAt = sql.NullTime{Time: identity.VerifiedAt, Valid: true}
	}
	var hash sql.NullString
	if identity.NationalIDHash != "" {
		hash = sql.NullString{String: identity.NationalIDHash, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO citizens (`+identityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			national_id_hash = EXCLUDED.national_id_hash,
			verification_level = EXCLUDED.verification_level,
			tier = EXCLUDED.tier,
			integrity_score = EXCLUDED.integrity_score,
			active = EXCLUDED.active,
			shadow_restricted = EXCLUDED.shadow_restricted,
			commune = EXCLUDED.commune,
			region = EXCLUDED.region,
			age_range = EXCLUDED.age_range,
			verified_at = EXCLUDED.verified_at`,
		identity.ID.String(), hash, int(identity.VerificationLevel), identity.Tier.String(),
		identity.IntegrityScore, identity.Active, identity.ShadowRestricted,
		identity.Commune, identity.Region, identity.AgeRange,
		identity.RegisteredAt, verifiedAt,
	)
	if err != nil {
		return fmt.Errorf("save citizen: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByNationalHash(ctx context.Context, hash string) (rank.Identity, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+identityColumns+`
		FROM citizens
		WHERE national_id_hash = $1`,
		hash,
	)
	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rank.Identity{}, false, nil
	}
	if err != nil {
		return rank.Identity{}, false, fmt.Errorf("find citizen by hash: %w", err)
	}
	return identity, true, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]rank.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+identityColumns+`
		FROM citizens
		ORDER BY registered_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list citizens: %w", err)
	}
	defer rows.Close()

	var out []rank.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan citizen: %w", err)
		}
		out = append(out, identity)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (rank.Identity, error) {
	var (
		identity   rank.Identity
		rawID      string
		rawTier    string
		level      int
		hash       sql.NullString
		verifiedAt sql.NullTime
	)
	if err := row.Scan(
		&rawID, &hash, &level, &rawTier, &identity.IntegrityScore,
		&identity.Active, &identity.ShadowRestricted,
		&identity.Commune, &identity.Region, &identity.AgeRange,
		&identity.RegisteredAt, &verifiedAt,
	); err != nil {
		return rank.Identity{}, err
	}

	id, err := domain.ParseCitizenID(rawID)
	if err != nil {
		return rank.Identity{}, dErrors.Wrap(dErrors.CodeIntegrity, "stored citizen id", err)
	}
	tier, err := domain.ParseTier(rawTier)
	if err != nil {
		return rank.Identity{}, dErrors.Wrap(dErrors.CodeIntegrity, "stored tier", err)
	}

	identity.ID = id
	identity.Tier = tier
	identity.VerificationLevel = domain.VerificationLevel(level)
	identity.NationalIDHash = hash.String
	if verifiedAt.Valid {
		identity.VerifiedAt = verifiedAt.Time
	}
	identity.RegisteredAt = identity.RegisteredAt.UTC()
	return identity, nil
}
