package guard

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions *prometheus.CounterVec
	Latency   prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_guard_decisions_total",
			Help: "Authorization decisions by operation and outcome (allow or denial reason)",
		}, []string{"operation", "outcome"}),
		Latency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "hearth_guard_decision_duration_seconds",
			Help:    "Time spent authorizing a request, including the live status lookup",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

func (m *Metrics) observeDecision(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(operation, outcome).Inc()
	m.Latency.Observe(d.Seconds())
}
