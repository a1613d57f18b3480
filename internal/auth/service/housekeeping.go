package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/relooptech/reloop/internal/auth/store"
)

// HousekeepingService periodically deletes expired login challenges so
// the challenges table does not grow without bound. Expired challenges
// are already invisible to reads; this is purely garbage collection.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the service. A non-positive interval
// defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; call Stop to
// shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", slog.Duration("interval", s.Interval))
}

// Stop shuts the worker down and waits for any in-progress sweep.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

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

func (s *HousekeepingService) sweep() {
	if err := s.Store.Challenges().DeleteExpiredChallenges(context.Background()); err != nil {
		s.Logger.Error("failed to delete expired challenges", slog.Any("error", err))
		return
	}
	s.Logger.Debug("expired challenges swept")
}
