package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Denials *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Denials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_quota_denials_total",
			Help: "Quota checks that denied a write, by resource kind and reason",
		}, []string{"resource", "reason"}),
	}
}

func (m *Metrics) IncDenial(resource, reason string) {
	if m == nil {
		return
	}
	m.Denials.WithLabelValues(resource, reason).Inc()
}
