package reputation

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"veritas/internal/platform/config"
)

// Resweeper re-derives published scores from decayed ballot contributions.
// The ballot box implements it; the sweeper only provides cadence.
type Resweeper interface {
	ResweepAll(ctx context.Context) error
}

// Sweeper periodically applies time decay so scores drift back toward the
// prior without new votes. The injected clock keeps tests instant.
type Sweeper struct {
	clock    clockwork.Clock
	tunables *config.Store
	target   Resweeper
	logger   *slog.Logger
}

func NewSweeper(clock clockwork.Clock, tunables *config.Store, target Resweeper, logger *slog.Logger) *Sweeper {
	return &Sweeper{clock: clock, tunables: tunables, target: target, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping once per configured interval.
// A failed sweep is logged and retried at the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.tunables.Load().SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			if err := s.target.ResweepAll(ctx); err != nil {
				s.logger.WarnContext(ctx, "decay sweep failed", "error", err)
			}
		}
	}
}
