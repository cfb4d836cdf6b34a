// Package scheduler runs the periodic unread-count refresh. Every tick it
// recomputes the counters for users with a live websocket connection and
// pushes them down; clients without a connection keep polling over HTTP.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/opsdesk/opsdesk/internal/metrics"
	"github.com/opsdesk/opsdesk/internal/realtime"
	"github.com/opsdesk/opsdesk/internal/service"
)

type Scheduler struct {
	cron   *cron.Cron
	unread *service.UnreadService
	hub    *realtime.Hub
	logger *log.Logger
}

func New(unread *service.UnreadService, hub *realtime.Hub, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		cron:   cron.New(),
		unread: unread,
		hub:    hub,
		logger: logger,
	}
}

// Start schedules the refresh at the given interval and begins running.
func (s *Scheduler) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", interval)
	}
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	s.cron.Start()
	s.logger.Printf("scheduler: unread refresh every %s", interval)
	return nil
}

// RunOnce performs a single refresh pass over every connected user. A
// failure for one user is logged and skipped; the pass continues.
func (s *Scheduler) RunOnce() {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	for _, userID := range s.hub.UserIDs() {
		counts, err := s.unread.Counts(ctx, userID)
		if err != nil {
			s.logger.Printf("scheduler: refresh counts for %s: %v", userID, err)
			continue
		}
		s.hub.SendToUser(userID, realtime.Event{
			Event:   realtime.EventUnreadCounts,
			Payload: counts,
		})
	}

	m := metrics.Get()
	m.RefreshRuns.Inc()
	m.RefreshDuration.Observe(time.Since(start).Seconds())
}

// Stop halts the cron loop and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
