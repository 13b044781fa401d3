package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "devtracker_reconcile_duration_seconds",
			Help:    "Time taken by one reconciliation pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconcilePassesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "devtracker_reconcile_passes_total",
			Help: "Total number of reconciliation passes",
		},
	)

	DevicesFlaggedOverdue = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "devtracker_devices_flagged_overdue_total",
			Help: "Total number of in_use -> overdue transitions",
		},
	)

	ReconcileErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devtracker_reconcile_errors_total",
			Help: "Per-device reconciliation failures by kind",
		},
		[]string{"kind"},
	)

	CheckoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devtracker_checkouts_total",
			Help: "Checkout operations by result (recorded, suppressed, failed)",
		},
		[]string{"result"},
	)

	ReturnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devtracker_returns_total",
			Help: "Return operations by result (recorded, suppressed, failed)",
		},
		[]string{"result"},
	)

	ScheduleCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devtracker_schedule_cache_lookups_total",
			Help: "Schedule cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	DevicesByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "devtracker_devices",
			Help: "Devices by status as of the last listing",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		ReconcileDuration,
		ReconcilePassesTotal,
		DevicesFlaggedOverdue,
		ReconcileErrorsTotal,
		CheckoutsTotal,
		ReturnsTotal,
		ScheduleCacheLookups,
		DevicesByStatus,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures the duration of an operation.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}
