package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Transitions *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_household_transitions_total",
			Help: "Household lifecycle transitions by kind (suspend, unsuspend, plan_change)",
		}, []string{"transition"}),
	}
}

func (m *Metrics) IncTransition(kind string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(kind).Inc()
}
