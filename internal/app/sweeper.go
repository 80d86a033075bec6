package app

import (
	"context"
	"time"

	"github.com/projectdefense/scheduler/internal/service"
	"go.uber.org/zap"
)

// Sweeper runs the periodic hygiene pass: expired ban records are deleted so
// the bans table holds only current state. Ban checks never depend on the
// sweeper; an expired ban is already inactive.
type Sweeper struct {
	enforcement *service.EnforcementService
	interval    time.Duration
	logger      *zap.Logger
	stopChan    chan struct{}
}

func NewSweeper(enforcement *service.EnforcementService, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		enforcement: enforcement,
		interval:    interval,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}
}

// Start launches the sweep loop in the background.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting ban sweeper", zap.Duration("interval", s.interval))

	go s.run(ctx)
}

// Stop ends the sweep loop.
func (s *Sweeper) Stop() {
	s.logger.Info("Stopping ban sweeper")
	close(s.stopChan)
}

func (s *Sweeper) run(ctx context.Context) {
	// First pass right at startup.
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			s.logger.Info("Ban sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Ban sweeper cancelled")
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.enforcement.DeleteExpiredBans(ctx); err != nil {
		s.logger.Error("Failed to sweep expired bans", zap.Error(err))
	}
}
