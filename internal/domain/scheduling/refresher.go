package scheduling

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Refresher keeps every doctor's slot horizon filled. It runs once on start
// and then on each tick until ctx is cancelled.
type Refresher struct {
	svc      *Service
	interval time.Duration
	logger   zerolog.Logger
}

func NewRefresher(svc *Service, interval time.Duration, logger zerolog.Logger) *Refresher {
	return &Refresher{
		svc:      svc,
		interval: interval,
		logger:   logger.With().Str("component", "slot-refresher").Logger(),
	}
}

func (r *Refresher) Run(ctx context.Context) error {
	if r.interval <= 0 {
		r.logger.Info().Msg("slot refresher disabled")
		return nil
	}
	r.logger.Info().Dur("interval", r.interval).Int("horizon_days", r.svc.HorizonDays()).Msg("slot refresher started")

	r.refresh(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("slot refresher stopped")
			return nil
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	start := time.Now()
	n, err := r.svc.RegenerateAll(ctx, r.svc.HorizonDays())
	if err != nil && ctx.Err() == nil {
		r.logger.Error().Err(err).Int("inserted", n).Msg("slot refresh finished with errors")
		return
	}
	r.logger.Info().Int("inserted", n).Dur("took", time.Since(start)).Msg("slot refresh completed")
}
