package revocation

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically purges expired revocation records so stores without
// native TTLs don't grow without bound. Gateways that don't implement
// Purger make the sweep a no-op.
type Sweeper struct {
	Gateway  Gateway
	Logger   *slog.Logger
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSweeper creates a sweeper with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewSweeper(gw Gateway, logger *slog.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &Sweeper{
		Gateway:  gw,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *Sweeper) Start() {
	go s.run()
	s.Logger.Info("revocation sweeper started", "interval", s.Interval)
}

// Stop gracefully shuts down the worker, blocking until any in-progress
// sweep finishes.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("revocation sweeper stopped")
}

func (s *Sweeper) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep immediately on startup
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Sweeper) sweep() {
	purger, ok := s.Gateway.(Purger)
	if !ok {
		return
	}

	if err := purger.DeleteExpired(context.Background(), time.Now().UTC()); err != nil {
		s.Logger.Error("failed to purge expired revocation records", "error", err)
		return
	}
	s.Logger.Debug("purged expired revocation records")
}
