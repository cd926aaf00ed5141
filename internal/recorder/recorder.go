package recorder

import (
	"context"
	"time"

	"github.com/pingkeep/pingkeep/internal/models"
	"github.com/pingkeep/pingkeep/internal/prober"
	"github.com/pingkeep/pingkeep/internal/storage"
)

// Recorder turns probe results into durable check records. Every call
// appends a new record; there is no deduplication. Storage failures are
// returned to the caller, never swallowed.
type Recorder struct {
	store storage.Store
}

// New creates a Recorder on the given store.
func New(store storage.Store) *Recorder {
	return &Recorder{store: store}
}

// Record persists one probe outcome for urlID and returns the stored record.
func (r *Recorder) Record(ctx context.Context, urlID int, result prober.Result) (*models.CheckRecord, error) {
	check := &models.CheckRecord{
		URLID:          urlID,
		StatusCode:     result.StatusCode,
		ResponseTimeMs: result.ResponseTimeMs,
		Success:        result.Success,
		CheckedAt:      time.Now(),
	}
	if result.ErrorMessage != "" {
		msg := result.ErrorMessage
		check.ErrorMessage = &msg
	}

	if err := r.store.InsertCheck(ctx, check); err != nil {
		return nil, err
	}
	return check, nil
}
