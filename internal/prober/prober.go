package prober

import (
	"context"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single probe attempt end to end.
const DefaultTimeout = 10 * time.Second

// Result is the outcome of one probe. StatusCode is nil when no response
// was obtained (DNS, connect, TLS or timeout failure); ErrorMessage is set
// only in that case. ResponseTimeMs covers the whole attempt regardless of
// outcome.
type Result struct {
	Success        bool   `json:"success"`
	StatusCode     *int   `json:"status_code,omitempty"`
	ResponseTimeMs int    `json:"response_time_ms"`
	ErrorMessage   string `json:"error,omitempty"`
}

// Prober issues lightweight HTTP probes. It prefers HEAD and falls back to
// GET when the endpoint rejects HEAD (405/501). A probe classifies as
// success only when a response was obtained and its status is in 200-399;
// any received status is recorded either way.
type Prober struct {
	client  *http.Client
	timeout time.Duration
}

// New creates a Prober with the given per-probe timeout. A zero timeout
// uses DefaultTimeout.
func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Probe checks target once. Failures are returned as data, never as an
// error: the result always carries the elapsed time and a classification.
func (p *Prober) Probe(ctx context.Context, target string) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()

	resp, err := p.do(ctx, http.MethodHead, target)
	if err == nil && headRejected(resp.StatusCode) {
		resp.Body.Close()
		resp, err = p.do(ctx, http.MethodGet, target)
	}

	elapsed := int(time.Since(start).Milliseconds())

	if err != nil {
		return Result{
			Success:        false,
			ResponseTimeMs: elapsed,
			ErrorMessage:   err.Error(),
		}
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	return Result{
		Success:        code >= 200 && code < 400,
		StatusCode:     &code,
		ResponseTimeMs: elapsed,
	}
}

func (p *Prober) do(ctx context.Context, method, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	return p.client.Do(req)
}

func headRejected(code int) bool {
	return code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented
}
