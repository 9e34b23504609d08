package monitoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"
)

const defaultProbeTimeout = 2 * time.Second

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component  string      `json:"component"`
	Status     ProbeStatus `json:"status"`
	Details    string      `json:"details,omitempty"`
	DurationMS int64       `json:"durationMs"`
}

// Report aggregates probe results. Status is down when any critical probe failed
// and degraded when only optional probes failed.
type Report struct {
	Status ProbeStatus   `json:"status"`
	Checks []ProbeResult `json:"checks"`
}

// Healthy reports whether the service can take traffic.
func (r Report) Healthy() bool {
	return r.Status != StatusDown
}

// Check encapsulates a single dependency probe. Probe returns nil when healthy.
// A failing non-critical check degrades the report instead of failing it.
type Check struct {
	Name     string
	Critical bool
	Probe    func(ctx context.Context) error
}

// Health runs registered checks concurrently, each under its own timeout.
type Health struct {
	checks  []Check
	timeout time.Duration
}

// NewHealth constructs an empty registry. A non-positive timeout uses two seconds.
func NewHealth(timeout time.Duration) *Health {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &Health{timeout: timeout}
}

// Register appends a check. Checks without a name or probe are ignored.
func (h *Health) Register(check Check) {
	if check.Name == "" || check.Probe == nil {
		return
	}
	h.checks = append(h.checks, check)
}

// Evaluate runs every check and folds the results into a report.
func (h *Health) Evaluate(ctx context.Context) Report {
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]ProbeResult, len(h.checks))
	var wg conc.WaitGroup
	for i, check := range h.checks {
		i, check := i, check
		wg.Go(func() {
			results[i] = h.run(ctx, check)
		})
	}
	wg.Wait()

	report := Report{Status: StatusUp, Checks: results}
	for _, result := range results {
		switch result.Status {
		case StatusDown:
			report.Status = StatusDown
		case StatusDegraded:
			if report.Status != StatusDown {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

func (h *Health) run(ctx context.Context, check Check) (result ProbeResult) {
	start := time.Now()
	probeCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			result = failed(check, fmt.Errorf("panic: %v", rec), start)
		}
	}()

	if err := check.Probe(probeCtx); err != nil {
		return failed(check, err, start)
	}
	return ProbeResult{
		Component:  check.Name,
		Status:     StatusUp,
		DurationMS: time.Since(start).Milliseconds(),
	}
}

func failed(check Check, err error, start time.Time) ProbeResult {
	status := StatusDegraded
	if check.Critical {
		status = StatusDown
	}
	details := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		details = "timed out"
	}
	return ProbeResult{
		Component:  check.Name,
		Status:     status,
		Details:    details,
		DurationMS: time.Since(start).Milliseconds(),
	}
}
