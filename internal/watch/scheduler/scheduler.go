package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Renewer renews every stored watch subscription that is close to expiry.
type Renewer interface {
	RenewAll(ctx context.Context) (renewed, failed int, err error)
}

// Housekeeper is extra periodic maintenance run after each renewal pass.
type Housekeeper interface {
	Housekeep(ctx context.Context) error
}

// RenewalScheduler periodically re-registers expiring push watches.
type RenewalScheduler struct {
	renewer  Renewer
	keepers  []Housekeeper
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewRenewalScheduler(renewer Renewer, interval time.Duration, logger *zap.Logger) *RenewalScheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &RenewalScheduler{
		renewer:  renewer,
		interval: interval,
		logger:   logger.Named("watch_scheduler"),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// AddHousekeeper registers h to run on every tick. Call before Start.
func (s *RenewalScheduler) AddHousekeeper(h Housekeeper) {
	s.keepers = append(s.keepers, h)
}

// Start begins the scheduler loop
func (s *RenewalScheduler) Start() {
	s.logger.Info("starting watch renewal scheduler", zap.Duration("interval", s.interval))

	go func() {
		defer close(s.done)

		// Run immediately on start
		s.renew()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.renew()
			case <-s.stopChan:
				s.logger.Info("watch renewal scheduler stopped")
				return
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (s *RenewalScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

func (s *RenewalScheduler) renew() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	renewed, failed, err := s.renewer.RenewAll(ctx)
	switch {
	case err != nil:
		s.logger.Error("renewal pass failed", zap.Error(err))
	case renewed > 0 || failed > 0:
		s.logger.Info("renewal pass done", zap.Int("renewed", renewed), zap.Int("failed", failed))
	}

	for _, h := range s.keepers {
		if err := h.Housekeep(ctx); err != nil {
			s.logger.Warn("housekeeping failed", zap.Error(err))
		}
	}
}
