package request

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyLabels = []string{"method", "route", "status_class"}

type Metrics struct {
	Latency *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hearth_http_request_duration_seconds",
			Help:    "HTTP latency by method, route pattern and status class",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, latencyLabels),
	}
}

// Observe records one request. Status is reduced to its class, e.g. "4xx".
func (m *Metrics) Observe(method, route string, status int, d time.Duration) {
	m.Latency.WithLabelValues(method, route, strconv.Itoa(status/100)+"xx").Observe(d.Seconds())
}
