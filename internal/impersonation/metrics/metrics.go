package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Started       prometheus.Counter
	Ended         *prometheus.CounterVec
	Actions       prometheus.Counter
	ActionFailure prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Started: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hearth_impersonation_sessions_started_total",
			Help: "Impersonation sessions started",
		}),
		Ended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_impersonation_sessions_ended_total",
			Help: "Impersonation end requests by outcome (ended, already_ended)",
		}, []string{"outcome"}),
		Actions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hearth_impersonation_actions_total",
			Help: "Write requests performed under impersonation",
		}),
		ActionFailure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hearth_impersonation_action_log_failures_total",
			Help: "Impersonation action counts that could not be recorded",
		}),
	}
}

func (m *Metrics) IncStarted() {
	if m == nil {
		return
	}
	m.Started.Inc()
}

func (m *Metrics) IncEnded(outcome string) {
	if m == nil {
		return
	}
	m.Ended.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncAction(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.Actions.Inc()
		return
	}
	m.ActionFailure.Inc()
}
