package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Recorded *prometheus.CounterVec
	Failures prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Recorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_audit_entries_total",
			Help: "Audit entries appended, by action",
		}, []string{"action"}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hearth_audit_write_failures_total",
			Help: "Audit appends that failed and aborted their operation",
		}),
	}
}

func (m *Metrics) incRecorded(action Action) {
	if m == nil {
		return
	}
	m.Recorded.WithLabelValues(string(action)).Inc()
}

func (m *Metrics) incFailure() {
	if m == nil {
		return
	}
	m.Failures.Inc()
}
