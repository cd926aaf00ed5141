package stats

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/pingkeep/pingkeep/internal/models"
	"github.com/pingkeep/pingkeep/internal/storage"
)

// ErrInvalidWindow is returned when the requested window is not positive.
var ErrInvalidWindow = errors.New("window must be a positive number of hours")

// Snapshot holds derived statistics for one URL over a trailing window.
// It is recomputed from the raw check history on every call; nothing here
// is persisted or cached.
type Snapshot struct {
	WindowHours      int                  `json:"window_hours"`
	TotalChecks      int                  `json:"total_checks"`
	SuccessfulChecks int                  `json:"successful_checks"`
	UptimePercent    float64              `json:"uptime"`
	AvgResponseTime  int                  `json:"avg_response_time_ms"`
	Checks           []models.CheckRecord `json:"checks"`
}

// Calculator computes uptime statistics from the check history.
type Calculator struct {
	store storage.Store
	now   func() time.Time
}

// New creates a Calculator on the given store.
func New(store storage.Store) *Calculator {
	return &Calculator{store: store, now: time.Now}
}

// Compute derives a Snapshot for urlID over the trailing windowHours.
// The returned checks are ordered most recent first, ties broken by id
// ascending. A window with no checks yields all-zero statistics.
func (c *Calculator) Compute(ctx context.Context, urlID int, windowHours int) (*Snapshot, error) {
	if windowHours <= 0 {
		return nil, ErrInvalidWindow
	}

	since := c.now().Add(-time.Duration(windowHours) * time.Hour)
	checks, err := c.store.ListChecksSince(ctx, urlID, since)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		WindowHours: windowHours,
		TotalChecks: len(checks),
		Checks:      checks,
	}
	if len(checks) == 0 {
		return snapshot, nil
	}

	var totalResponseTime int
	for _, check := range checks {
		if check.Success {
			snapshot.SuccessfulChecks++
		}
		totalResponseTime += check.ResponseTimeMs
	}

	uptime := float64(snapshot.SuccessfulChecks) / float64(snapshot.TotalChecks) * 100
	snapshot.UptimePercent = math.Round(uptime*100) / 100
	snapshot.AvgResponseTime = int(math.Round(float64(totalResponseTime) / float64(snapshot.TotalChecks)))

	return snapshot, nil
}
