package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cyphera/sdd-notifier/internal/types/business"
)

// Metrics provides observability for notification batches.
type Metrics struct {
	// Per-record outcomes by status and error kind
	Notifications *prometheus.CounterVec

	// Records left out because the payee did not opt in
	Excluded prometheus.Counter

	// Wall time of a whole batch
	BatchDuration prometheus.Histogram
}

// New registers the batch metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sdd_notifications_total",
			Help: "Total notification records by status and error kind",
		}, []string{"status", "kind"}), // kind is empty unless status is FAILED

		Excluded: factory.NewCounter(prometheus.CounterOpts{
			Name: "sdd_notifications_excluded_total",
			Help: "Records skipped because the payee is not notifiable",
		}),

		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sdd_batch_duration_seconds",
			Help:    "Duration of a full notification batch",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
}

// ObserveBatch records every result of outcome and the batch duration.
func (m *Metrics) ObserveBatch(outcome *business.BatchOutcome) {
	if m == nil || outcome == nil {
		return
	}
	for _, r := range outcome.Results {
		m.Notifications.WithLabelValues(string(r.Status), r.ErrorKind).Inc()
	}
	m.Excluded.Add(float64(outcome.Excluded))
	m.ObserveBatchDuration(outcome.CompletedAt.Sub(outcome.StartedAt))
}

// ObserveBatchDuration records the duration of one batch.
func (m *Metrics) ObserveBatchDuration(d time.Duration) {
	if m != nil && d >= 0 {
		m.BatchDuration.Observe(d.Seconds())
	}
}
