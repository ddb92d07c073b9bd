package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	audithandler "hearth/internal/audit/handler"
	"hearth/internal/guard"
	householdhandler "hearth/internal/household/handler"
	quotahandler "hearth/internal/quota/handler"
	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/platform/httputil"
	"hearth/pkg/requestcontext"
)

var OpOverview = guard.Operation{Name: "admin.household.overview", SuperAdminOnly: true, Method: http.MethodGet}

type OverviewService interface {
	Overview(ctx context.Context, id domain.TenantID) (*Overview, error)
}

// Handler serves admin monitoring endpoints.
type Handler struct {
	service OverviewService
	logger  *slog.Logger
}

func New(service OverviewService, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) Register(r chi.Router, g guard.Requirer) {
	r.With(g.Require(OpOverview)).Get("/admin/households/{tenantId}/overview", h.HandleOverview)
}

type OverviewResponse struct {
	Household            *householdhandler.HouseholdResponse `json:"household"`
	Usage                *quotahandler.UsageResponse         `json:"usage"`
	ActiveImpersonations int                                 `json:"active_impersonations"`
	RecentActivity       []*audithandler.EntryResponse       `json:"recent_activity"`
}

func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParseTenantID(chi.URLParam(r, "tenantId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid household id"))
		return
	}

	overview, err := h.service.Overview(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load household overview",
			"error", err,
			"household_id", id.String(),
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "household overview retrieved",
		"household_id", id.String(),
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, toOverviewResponse(id, overview))
}

func toOverviewResponse(id domain.TenantID, o *Overview) *OverviewResponse {
	out := &OverviewResponse{
		Household:            householdhandler.ToHouseholdResponse(o.Household),
		ActiveImpersonations: o.ActiveImpersonations,
		RecentActivity:       make([]*audithandler.EntryResponse, 0, len(o.RecentActivity)),
	}
	if o.Usage != nil {
		out.Usage = quotahandler.ToUsageResponse(id, o.Usage)
	}
	for _, e := range o.RecentActivity {
		out.RecentActivity = append(out.RecentActivity, audithandler.ToEntryResponse(e))
	}
	return out
}
