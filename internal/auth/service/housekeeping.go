package service

import (
	"context"
	"time"

	"github.com/moimlab/moim/internal/metrics"
	"github.com/moimlab/moim/pkg/slogx"
)

// DefaultSweepInterval is how often expired refresh tokens are swept when
// the deployment does not configure its own cadence.
const DefaultSweepInterval = time.Hour

// DefaultSweepRetention keeps expired records around briefly for audit
// before the sweep removes them.
const DefaultSweepRetention = 24 * time.Hour

// Housekeeper periodically deletes expired refresh tokens. One instance
// runs per process.
type Housekeeper struct {
	Tokens    *RefreshTokenService
	Metrics   *metrics.Collector
	Interval  time.Duration
	Retention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// Start launches the sweep loop. The first sweep runs immediately so a
// restart never delays cleanup by a full interval.
func (h *Housekeeper) Start(ctx context.Context) {
	if h.Interval <= 0 {
		h.Interval = DefaultSweepInterval
	}
	if h.Retention <= 0 {
		h.Retention = DefaultSweepRetention
	}

	h.stopCh = make(chan struct{})
	h.doneCh = make(chan struct{})

	go h.run(ctx)
}

// Stop signals the loop to exit and waits for the in-flight sweep, if any,
// to finish.
func (h *Housekeeper) Stop() {
	if h.stopCh == nil {
		return
	}
	close(h.stopCh)
	<-h.doneCh
}

func (h *Housekeeper) run(ctx context.Context) {
	defer close(h.doneCh)

	log := slogx.FromContext(ctx)
	log.Info("refresh token sweep started",
		"interval", h.Interval, "retention", h.Retention)

	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	h.sweep(ctx)
	for {
		select {
		case <-ticker.C:
			h.sweep(ctx)
		case <-h.stopCh:
			log.Info("refresh token sweep stopped")
			return
		case <-ctx.Done():
			log.Info("refresh token sweep stopped", "err", ctx.Err())
			return
		}
	}
}

func (h *Housekeeper) sweep(ctx context.Context) {
	deleted, err := h.Tokens.SweepExpired(ctx, h.Retention)
	if err != nil {
		slogx.FromContext(ctx).Error("refresh token sweep failed", "err", err)
		return
	}

	h.Metrics.RecordSweep(deleted)
	if deleted > 0 {
		slogx.FromContext(ctx).Info("swept expired refresh tokens", "deleted", deleted)
	}
}
