package outbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Pending         prometheus.Gauge
	Published       prometheus.Counter
	PublishFailures prometheus.Counter
	PublishDuration prometheus.Histogram
	Purged          prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Pending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "hearth_audit_outbox_pending",
			Help: "Audit entries waiting to be published",
		}),
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hearth_audit_outbox_published_total",
			Help: "Audit entries published to Kafka",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hearth_audit_outbox_publish_failures_total",
			Help: "Failed fetch, publish or mark attempts",
		}),
		PublishDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "hearth_audit_outbox_publish_duration_seconds",
			Help:    "Time to publish one audit entry",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		Purged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hearth_audit_outbox_purged_total",
			Help: "Published records removed after the retention window",
		}),
	}
}

func (m *Metrics) setPending(n int64) {
	if m == nil {
		return
	}
	m.Pending.Set(float64(n))
}

func (m *Metrics) observePublished(seconds float64) {
	if m == nil {
		return
	}
	m.Published.Inc()
	m.PublishDuration.Observe(seconds)
}

func (m *Metrics) incFailure() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}

func (m *Metrics) addPurged(n int64) {
	if m == nil {
		return
	}
	m.Purged.Add(float64(n))
}
