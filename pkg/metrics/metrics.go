package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsWritten counts notification rows persisted by fan-out, by type and result (ok|error).
	NotificationsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insyd_notifications_written_total",
			Help: "Total number of notification rows written by fan-out",
		},
		[]string{"type", "result"},
	)

	// FanoutAudience observes the audience size computed for each event type.
	FanoutAudience = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insyd_fanout_audience_size",
			Help:    "Number of recipients computed per fan-out event",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		},
		[]string{"type"},
	)

	// EmailDeliveries counts outbound email attempts by result (sent|failed|dropped|disabled).
	EmailDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insyd_email_deliveries_total",
			Help: "Total number of outbound email attempts",
		},
		[]string{"result"},
	)

	// EmailQueueDepth tracks messages waiting in the in-memory email queue.
	EmailQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "insyd_email_queue_depth",
			Help: "Number of email messages waiting for delivery",
		},
	)

	// MaintenanceRuns counts maintenance job executions by job and result.
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insyd_maintenance_runs_total",
			Help: "Total number of maintenance job executions",
		},
		[]string{"job", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insyd_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPInFlight tracks requests currently being served.
	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "insyd_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)
