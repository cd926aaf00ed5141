package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pingkeep/pingkeep/internal/models"
	"github.com/pingkeep/pingkeep/internal/prober"
	"github.com/pingkeep/pingkeep/internal/recorder"
	"github.com/pingkeep/pingkeep/internal/storage"
)

// ErrProbeInFlight is returned when a probe for the URL is already running.
var ErrProbeInFlight = errors.New("a probe for this url is already in flight")

// Prober runs one probe against a target URL.
type Prober interface {
	Probe(ctx context.Context, target string) prober.Result
}

// Broadcaster pushes recorded checks to live subscribers.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Coordinator decides which URLs are due for a probe and runs them. A URL
// is due when it has never been checked or its interval has elapsed since
// the last stored check. Per URL at most one probe runs at a time; probes
// for distinct URLs proceed concurrently. The last-checked time is derived
// from the stored history, so a failed write leaves the URL due on the
// next evaluation instead of being silently skipped.
type Coordinator struct {
	store       storage.Store
	prober      Prober
	recorder    *recorder.Recorder
	broadcaster Broadcaster
	inflight    *inflightSet
	now         func() time.Time
	wg          sync.WaitGroup
}

// New creates a Coordinator. broadcaster may be nil.
func New(store storage.Store, p Prober, rec *recorder.Recorder, broadcaster Broadcaster) *Coordinator {
	return &Coordinator{
		store:       store,
		prober:      p,
		recorder:    rec,
		broadcaster: broadcaster,
		inflight:    newInflightSet(),
		now:         time.Now,
	}
}

// RunDue evaluates every active URL and dispatches one probe goroutine per
// due URL. URLs whose probe is still in flight are skipped. It returns the
// number of probes dispatched.
func (c *Coordinator) RunDue(ctx context.Context) (int, error) {
	urls, err := c.store.ListActiveURLs(ctx)
	if err != nil {
		return 0, err
	}
	if len(urls) == 0 {
		return 0, nil
	}

	latest, err := c.store.LatestCheckTimes(ctx)
	if err != nil {
		return 0, err
	}

	now := c.now()
	dispatched := 0
	for _, u := range urls {
		last, checked := latest[u.ID]
		if !due(u, last, checked, now) {
			continue
		}
		if !c.inflight.Acquire(u.ID) {
			log.Debug("probe still in flight, skipping", "url_id", u.ID)
			continue
		}

		dispatched++
		c.wg.Add(1)
		go func(u models.MonitoredURL) {
			defer c.wg.Done()
			defer c.inflight.Release(u.ID)

			if _, err := c.probeAndRecord(ctx, u); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("scheduled check failed", "url_id", u.ID, "target", u.Target, "error", err)
			}
		}(u)
	}

	return dispatched, nil
}

// CheckNow probes u immediately, bypassing the due computation. A manual
// check while a probe is in flight is rejected with ErrProbeInFlight, not
// queued.
func (c *Coordinator) CheckNow(ctx context.Context, u *models.MonitoredURL) (*models.CheckRecord, prober.Result, error) {
	if !c.inflight.Acquire(u.ID) {
		return nil, prober.Result{}, ErrProbeInFlight
	}
	defer c.inflight.Release(u.ID)

	result := c.prober.Probe(ctx, u.Target)

	check, err := c.record(ctx, *u, result)
	if err != nil {
		return nil, result, err
	}
	return check, result, nil
}

// Stop waits for all in-flight probes to finish or abandon.
func (c *Coordinator) Stop() {
	c.wg.Wait()
}

func (c *Coordinator) probeAndRecord(ctx context.Context, u models.MonitoredURL) (*models.CheckRecord, error) {
	result := c.prober.Probe(ctx, u.Target)
	return c.record(ctx, u, result)
}

// record persists the probe outcome. A cancelled probe is abandoned whole:
// no partial record is ever written.
func (c *Coordinator) record(ctx context.Context, u models.MonitoredURL, result prober.Result) (*models.CheckRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	check, err := c.recorder.Record(ctx, u.ID, result)
	if err != nil {
		return nil, err
	}

	log.Info("check recorded",
		"url_id", u.ID,
		"target", u.Target,
		"success", check.Success,
		"response_time_ms", check.ResponseTimeMs,
	)

	if c.broadcaster != nil {
		if err := c.broadcaster.Broadcast("check", check); err != nil {
			log.Warn("failed to broadcast check", "url_id", u.ID, "error", err)
		}
	}
	return check, nil
}

// due reports whether u should be probed at now. A URL that has never been
// checked is immediately due.
func due(u models.MonitoredURL, last time.Time, checked bool, now time.Time) bool {
	if !checked {
		return true
	}
	return now.Sub(last) >= time.Duration(u.IntervalMinutes)*time.Minute
}
