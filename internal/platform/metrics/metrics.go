// Package metrics exposes the process-wide Prometheus registry.
package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var buildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "hearth_build_info",
	Help: "Build metadata, always 1",
}, []string{"version"})

func RecordBuildInfo(version string) {
	buildInfo.WithLabelValues(version).Set(1)
}

// Handler serves every metric registered with the default registerer,
// including the per-module promauto collectors.
func Handler() http.Handler {
	return promhttp.Handler()
}

func Register(r chi.Router) {
	r.Method(http.MethodGet, "/metrics", Handler())
}
