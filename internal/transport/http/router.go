package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"hearth/internal/guard"
	"hearth/internal/platform/health"
	"hearth/internal/platform/metrics"
	"hearth/pkg/platform/httputil"
	"hearth/pkg/platform/middleware/metadata"
	"hearth/pkg/platform/middleware/request"
)

const (
	requestTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

// Registrar mounts a module's routes behind the guard.
type Registrar interface {
	Register(r chi.Router, g guard.Requirer)
}

type Deps struct {
	Logger   *slog.Logger
	Guard    guard.Requirer
	Health   *health.Handler
	Latency  *request.Metrics
	Metadata *metadata.Middleware
	Modules  []Registrar
}

// NewRouter wires the middleware stack and every module's routes. Probes and
// /metrics are mounted outside the guard.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(request.RequestTime)
	if d.Metadata != nil {
		r.Use(d.Metadata.Handler)
	}
	r.Use(request.Logger(d.Logger))
	r.Use(request.LatencyMiddleware(d.Latency))
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(request.BodyLimit(maxBodyBytes))
	r.Use(request.ContentTypeJSON)

	if d.Health != nil {
		d.Health.Register(r)
	}
	metrics.Register(r)

	for _, m := range d.Modules {
		m.Register(r, d.Guard)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "not_found", Description: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{Error: "method_not_allowed", Description: "method not allowed"})
	})
	return r
}
