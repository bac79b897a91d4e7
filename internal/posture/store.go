package posture

import "context"

// Store is the shared posture value behind a narrow get/set contract.
// Implementations must keep both operations bounded; the controller treats
// any error as a degraded read, never as a request failure.
type Store interface {
	Get(ctx context.Context) (Posture, error)
	Set(ctx context.Context, p Posture) error
}
