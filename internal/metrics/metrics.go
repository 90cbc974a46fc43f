package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	syncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gys",
			Name:      "sync_runs_total",
			Help:      "Sync passes by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	syncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gys",
			Name:      "sync_duration_seconds",
			Help:      "Duration of sync passes by mode.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"mode"},
	)

	recordsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gys",
			Name:      "records_written_total",
			Help:      "Booking records created or merged by the sync engine.",
		},
	)

	recordsDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gys",
			Name:      "records_deleted_total",
			Help:      "Booking records deleted by the sync engine.",
		},
	)

	webhookNotifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gys",
			Name:      "webhook_notifications_total",
			Help:      "Push notifications by validation result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gys",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			syncRuns,
			syncDuration,
			recordsWritten,
			recordsDeleted,
			webhookNotifications,
			httpRequests,
		)
	})
}

func IncSync(mode, outcome string) {
	syncRuns.WithLabelValues(mode, outcome).Inc()
}

func ObserveSyncDuration(mode string, d time.Duration) {
	syncDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func AddRecordsWritten(n int) {
	recordsWritten.Add(float64(n))
}

func AddRecordsDeleted(n int) {
	recordsDeleted.Add(float64(n))
}

func IncWebhook(result string) {
	webhookNotifications.WithLabelValues(result).Inc()
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
