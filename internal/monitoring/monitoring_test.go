package monitoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	testutil "github.com/insyd/insyd/internal/database/testutil"
	"github.com/insyd/insyd/internal/monitoring"
	"github.com/insyd/insyd/internal/monitoring/checks"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealthAllUp(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	h := monitoring.NewHealth(time.Second)
	h.Register(checks.Database(db))
	h.Register(checks.Redis(pinger{}))

	report := h.Evaluate(context.Background())
	require.True(t, report.Healthy())
	require.Equal(t, monitoring.StatusUp, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "database", report.Checks[0].Component)
	require.Equal(t, "redis", report.Checks[1].Component)
}

func TestHealthOptionalFailureDegrades(t *testing.T) {
	h := monitoring.NewHealth(time.Second)
	h.Register(monitoring.Check{Name: "database", Critical: true, Probe: func(context.Context) error { return nil }})
	h.Register(checks.Redis(pinger{err: errors.New("connection refused")}))

	report := h.Evaluate(context.Background())
	require.True(t, report.Healthy())
	require.Equal(t, monitoring.StatusDegraded, report.Status)
	require.Equal(t, "connection refused", report.Checks[1].Details)
}

func TestHealthCriticalFailureIsDown(t *testing.T) {
	h := monitoring.NewHealth(time.Second)
	h.Register(checks.Database(nil))
	h.Register(checks.Redis(pinger{err: errors.New("down")}))

	report := h.Evaluate(context.Background())
	require.False(t, report.Healthy())
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Equal(t, "database not configured", report.Checks[0].Details)
}

func TestHealthTimeoutAndPanic(t *testing.T) {
	h := monitoring.NewHealth(10 * time.Millisecond)
	h.Register(monitoring.Check{Name: "slow", Probe: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	h.Register(monitoring.Check{Name: "broken", Critical: true, Probe: func(context.Context) error {
		panic("boom")
	}})
	h.Register(monitoring.Check{Name: "ignored"})

	report := h.Evaluate(context.Background())
	require.Len(t, report.Checks, 2)
	require.Equal(t, monitoring.StatusDegraded, report.Checks[0].Status)
	require.Equal(t, "timed out", report.Checks[0].Details)
	require.Equal(t, monitoring.StatusDown, report.Checks[1].Status)
	require.Contains(t, report.Checks[1].Details, "boom")
	require.Equal(t, monitoring.StatusDown, report.Status)
}

func TestHealthEmpty(t *testing.T) {
	report := monitoring.NewHealth(0).Evaluate(context.Background())
	require.Equal(t, monitoring.StatusUp, report.Status)
	require.Empty(t, report.Checks)
}
