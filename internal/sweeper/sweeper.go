// Package sweeper runs the reservation expiry sweep in the background.
// Expiry is never checked inline on reads: the sweep is the only place
// ACTIVE reservations past their deadline are moved to EXPIRED, using
// the same conditional-update discipline as manual approve/reject, so
// running it concurrently with user actions is safe.
package sweeper

import (
	"context"
	"time"

	"stonemarket/internal/service"

	"go.uber.org/zap"
)

type Sweeper struct {
	reservations service.ReservationService
	interval     time.Duration
	log          *zap.Logger
	stopCh       chan struct{}
}

func New(reservations service.ReservationService, interval time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		reservations: reservations,
		interval:     interval,
		log:          log,
		stopCh:       make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.log.Info("starting reservation expiry sweeper", zap.Duration("interval", s.interval))
	go s.run(ctx)
}

func (s *Sweeper) Stop() {
	s.log.Info("stopping reservation expiry sweeper")
	close(s.stopCh)
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// first sweep at startup, not after one full interval
	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopCh:
			s.log.Info("expiry sweeper stopped")
			return
		case <-ctx.Done():
			s.log.Info("expiry sweeper cancelled")
			return
		}
	}
}

// sweep failures are logged and retried on the next cycle, never
// surfaced to a user.
func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.reservations.ExpireDue(ctx)
	if err != nil {
		s.log.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.log.Info("expired reservations", zap.Int("count", expired))
	}
}

// RunOnceNow runs a single sweep cycle; used by the one-shot binary.
func (s *Sweeper) RunOnceNow(ctx context.Context) (int, error) {
	return s.reservations.ExpireDue(ctx)
}
