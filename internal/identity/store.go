// Package identity persists citizen records and coordinates rank
// transitions with the audit trail.
package identity

import (
	"context"

	"veritas/internal/rank"
	"veritas/pkg/domain"
)

// Store persists citizen identities.
//
// FindByNationalHash backs the one-person-one-identity guarantee: a second
// registration presenting an already-stored document hash must surface the
// existing record.
type Store interface {
	Get(ctx context.Context, id domain.CitizenID) (rank.Identity, error)
	Save(ctx context.Context, identity rank.Identity) error
	FindByNationalHash(ctx context.Context, hash string) (rank.Identity, bool, error)
	List(ctx context.Context) ([]rank.Identity, error)
}
