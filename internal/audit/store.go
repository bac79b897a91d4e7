package audit

import "context"

// Store persists audit events. Implementations expose Append and reads
// only; the absence of update and delete is the contract.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]Event, error)
}
