// Package worker runs the periodic background jobs of the service.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"irrad-data/internal/metrics"
	"irrad-data/internal/service"
)

// Refresher is the part of IrradiationService the SEC job needs.
type Refresher interface {
	RefreshInBeam(ctx context.Context) ([]service.BeamData, error)
}

// SecRefresher keeps the SEC and estimated fluence of irradiations in beam current
// between operator refreshes.
type SecRefresher struct {
	irradiations Refresher
	interval     time.Duration
	logger       *zap.Logger
}

func NewSecRefresher(irradiations Refresher, interval time.Duration, logger *zap.Logger) *SecRefresher {
	return &SecRefresher{irradiations: irradiations, interval: interval, logger: logger}
}

// Run refreshes once at start and then on every tick until ctx is done.
func (r *SecRefresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Starting SEC refresh", zap.Duration("interval", r.interval))
	r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single refresh pass; failures are logged and counted.
func (r *SecRefresher) RunOnce(ctx context.Context) int {
	beam, err := r.irradiations.RefreshInBeam(ctx)
	if err != nil {
		metrics.SecRefreshes.WithLabelValues("failed").Inc()
		r.logger.Error("SEC refresh failed", zap.Int("refreshed", len(beam)), zap.Error(err))
		return len(beam)
	}
	metrics.SecRefreshes.WithLabelValues("ok").Inc()
	if len(beam) > 0 {
		r.logger.Debug("SEC refreshed", zap.Int("irradiations", len(beam)))
	}
	return len(beam)
}
