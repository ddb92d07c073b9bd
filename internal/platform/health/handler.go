// Package health serves liveness, readiness and status probes. Probes are
// mounted outside the guard.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"hearth/pkg/platform/httputil"
)

const checkTimeout = 2 * time.Second

// Version is set at build time via ldflags.
var Version = "dev"

// CheckFunc reports a dependency as healthy by returning nil.
type CheckFunc func(ctx context.Context) error

type namedCheck struct {
	name  string
	check CheckFunc
}

type Handler struct {
	started     time.Time
	environment string

	mu     sync.RWMutex
	checks []namedCheck
}

func New(environment string) *Handler {
	return &Handler{started: time.Now(), environment: environment}
}

// RegisterCheck adds a readiness dependency. Registering a name twice
// replaces the earlier check.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.checks {
		if h.checks[i].name == name {
			h.checks[i].check = check
			return
		}
	}
	h.checks = append(h.checks, namedCheck{name: name, check: check})
	sort.Slice(h.checks, func(i, j int) bool { return h.checks[i].name < h.checks[j].name })
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness runs every check in parallel under one deadline and
// answers 503 when any of them fails.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := append([]namedCheck(nil), h.checks...)
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	results := make([]error, len(checks))
	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.check(ctx)
		}()
	}
	wg.Wait()

	resp := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(checks))}
	for i, c := range checks {
		if err := results[i]; err != nil {
			resp.Checks[c.name] = "down: " + err.Error()
			resp.Status = "not_ready"
			continue
		}
		resp.Checks[c.name] = "up"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}

type StatusResponse struct {
	Status        string    `json:"status"`
	Version       string    `json:"version"`
	Environment   string    `json:"environment"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Timestamp     time.Time `json:"timestamp"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	now := time.Now().UTC()
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(now.Sub(h.started).Seconds()),
		Timestamp:     now,
	})
}
