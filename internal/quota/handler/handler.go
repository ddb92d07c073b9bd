package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hearth/internal/guard"
	"hearth/internal/quota"
	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/platform/httputil"
	"hearth/pkg/requestcontext"
)

var (
	OpCheck = guard.Operation{Name: "household.quota.check", Method: http.MethodGet}
	OpUsage = guard.Operation{Name: "household.quota.usage", Method: http.MethodGet}
)

type Service interface {
	CheckQuota(ctx context.Context, tenantID domain.TenantID, kind quota.ResourceKind) (bool, error)
	Usage(ctx context.Context, tenantID domain.TenantID) (*quota.Usage, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router, g guard.Requirer) {
	r.With(g.Require(OpCheck)).Get("/households/{tenantId}/quota/{kind}", h.HandleCheck)
	r.With(g.Require(OpUsage)).Get("/households/{tenantId}/usage", h.HandleUsage)
}

type CheckResponse struct {
	HouseholdID string `json:"household_id"`
	Resource    string `json:"resource"`
	Allowed     bool   `json:"allowed"`
}

func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind, ok := quota.ParseResourceKind(chi.URLParam(r, "kind"))
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown resource kind"))
		return
	}
	tenantID := requestcontext.TenantID(ctx)

	allowed, err := h.service.CheckQuota(ctx, tenantID, kind)
	if err != nil {
		h.logger.ErrorContext(ctx, "quota check failed",
			"error", err,
			"household_id", tenantID.String(),
			"resource", string(kind),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &CheckResponse{
		HouseholdID: tenantID.String(),
		Resource:    string(kind),
		Allowed:     allowed,
	})
}

type ResourceUsageResponse struct {
	Resource  string `json:"resource"`
	Current   int    `json:"current"`
	Max       int    `json:"max"`
	Unlimited bool   `json:"unlimited"`
	Available bool   `json:"available"`
}

type UsageResponse struct {
	HouseholdID string                  `json:"household_id"`
	Plan        string                  `json:"plan"`
	Resources   []ResourceUsageResponse `json:"resources"`
	Features    map[string]bool         `json:"features"`
}

func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := requestcontext.TenantID(ctx)

	usage, err := h.service.Usage(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "usage lookup failed",
			"error", err,
			"household_id", tenantID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ToUsageResponse(tenantID, usage))
}

// ToUsageResponse is shared with the admin overview.
func ToUsageResponse(tenantID domain.TenantID, u *quota.Usage) *UsageResponse {
	out := &UsageResponse{
		HouseholdID: tenantID.String(),
		Plan:        u.Plan.String(),
		Resources:   make([]ResourceUsageResponse, 0, len(u.Resources)),
		Features:    make(map[string]bool, len(u.Features)),
	}
	for _, r := range u.Resources {
		out.Resources = append(out.Resources, ResourceUsageResponse{
			Resource:  string(r.Kind),
			Current:   r.Current,
			Max:       r.Max,
			Unlimited: r.Unlimited,
			Available: r.Available,
		})
	}
	for f, on := range u.Features {
		out.Features[string(f)] = on
	}
	return out
}
