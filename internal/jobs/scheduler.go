package jobs

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"github.com/pingkeep/pingkeep/internal/scheduler"
	"github.com/pingkeep/pingkeep/internal/storage"
)

// checkRetention is how long check history is kept before cleanup.
const checkRetention = 90 * 24 * time.Hour

// Scheduler is the time-based trigger source: it asks the coordinator to
// run due probes once a minute and prunes old check history daily.
type Scheduler struct {
	cron        *cron.Cron
	coordinator *scheduler.Coordinator
	store       storage.Store
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewScheduler creates a job scheduler driving the given coordinator.
func NewScheduler(coordinator *scheduler.Coordinator, store storage.Store) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:        cron.New(),
		coordinator: coordinator,
		store:       store,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start registers the cron entries and begins ticking.
func (s *Scheduler) Start() {
	// Evaluate due URLs every minute
	s.cron.AddFunc("* * * * *", func() {
		dispatched, err := s.coordinator.RunDue(s.ctx)
		if err != nil {
			log.Error("due evaluation failed", "error", err)
			return
		}
		if dispatched > 0 {
			log.Debug("dispatched scheduled probes", "count", dispatched)
		}
	})

	// Cleanup old checks daily at 3:14 AM
	s.cron.AddFunc("14 3 * * *", func() {
		s.cleanupOldChecks()
	})

	s.cron.Start()
	log.Info("job scheduler started")
}

// Stop halts the cron loop, cancels in-flight probes at the timeout
// boundary, and waits for them to drain. Cancelled probes are never
// recorded.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.cancel()
	s.coordinator.Stop()
	log.Info("job scheduler stopped")
}

// cleanupOldChecks removes check records older than the retention window.
func (s *Scheduler) cleanupOldChecks() {
	cutoff := time.Now().Add(-checkRetention)
	removed, err := s.store.DeleteChecksBefore(s.ctx, cutoff)
	if err != nil {
		log.Error("failed to cleanup old checks", "error", err)
		return
	}
	log.Info("cleaned up old checks", "removed", removed)
}
