package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hearth/internal/guard"
	"hearth/internal/household/models"
	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/platform/httputil"
	"hearth/pkg/requestcontext"
)

// Admin operations on households. All of them are reserved to super admins.
var (
	OpGet        = guard.Operation{Name: "admin.household.get", SuperAdminOnly: true, Method: http.MethodGet}
	OpList       = guard.Operation{Name: "admin.household.list", SuperAdminOnly: true, Method: http.MethodGet}
	OpSuspend    = guard.Operation{Name: "admin.household.suspend", SuperAdminOnly: true, Method: http.MethodPost}
	OpUnsuspend  = guard.Operation{Name: "admin.household.unsuspend", SuperAdminOnly: true, Method: http.MethodPost}
	OpChangePlan = guard.Operation{Name: "admin.household.change_plan", SuperAdminOnly: true, Method: http.MethodPut}
)

type Service interface {
	Get(ctx context.Context, id domain.TenantID) (*models.Household, error)
	List(ctx context.Context, filter models.ListFilter, page domain.Page) (domain.PageResult[*models.Household], error)
	Suspend(ctx context.Context, actor *domain.Principal, id domain.TenantID, reason string) (*models.Household, error)
	Unsuspend(ctx context.Context, actor *domain.Principal, id domain.TenantID) (*models.Household, error)
	ChangePlan(ctx context.Context, actor *domain.Principal, id domain.TenantID, plan domain.Plan) (*models.Household, error)
}

type Handler struct {
	service  Service
	logger   *slog.Logger
	throttle func(http.Handler) http.Handler
}

// New builds the handler. throttle, when non-nil, wraps the state-changing routes.
func New(service Service, logger *slog.Logger, throttle func(http.Handler) http.Handler) *Handler {
	if throttle == nil {
		throttle = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{service: service, logger: logger, throttle: throttle}
}

func (h *Handler) Register(r chi.Router, g guard.Requirer) {
	r.With(g.Require(OpList)).Get("/admin/households", h.HandleList)
	r.With(g.Require(OpGet)).Get("/admin/households/{tenantId}", h.HandleGet)
	r.With(g.Require(OpSuspend), h.throttle).Post("/admin/households/{tenantId}/suspend", h.HandleSuspend)
	r.With(g.Require(OpUnsuspend), h.throttle).Post("/admin/households/{tenantId}/unsuspend", h.HandleUnsuspend)
	r.With(g.Require(OpChangePlan), h.throttle).Put("/admin/households/{tenantId}/plan", h.HandleChangePlan)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	household, err := h.service.Get(ctx, requestcontext.TenantID(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "get household failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ToHouseholdResponse(household))
}

// HandleList supports status, plan and search filters with limit/offset paging.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := httputil.ParsePage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter, err := parseListFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.List(ctx, filter, page)
	if err != nil {
		h.logger.ErrorContext(ctx, "list households failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(res))
}

func (h *Handler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SuspendRequest](w, r, h.logger)
	if !ok {
		return
	}

	household, err := h.service.Suspend(ctx, actor, requestcontext.TenantID(ctx), req.Reason)
	h.writeTransition(w, r, "suspend", household, err)
}

func (h *Handler) HandleUnsuspend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	household, err := h.service.Unsuspend(ctx, actor, requestcontext.TenantID(ctx))
	h.writeTransition(w, r, "unsuspend", household, err)
}

func (h *Handler) HandleChangePlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ChangePlanRequest](w, r, h.logger)
	if !ok {
		return
	}

	household, err := h.service.ChangePlan(ctx, actor, requestcontext.TenantID(ctx), domain.Plan(req.Plan))
	h.writeTransition(w, r, "change plan", household, err)
}

func (h *Handler) writeTransition(w http.ResponseWriter, r *http.Request, action string, household *models.Household, err error) {
	if err != nil {
		ctx := r.Context()
		h.logger.WarnContext(ctx, action+" household failed",
			"error", err,
			"household_id", chi.URLParam(r, "tenantId"),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ToHouseholdResponse(household))
}

func parseListFilter(r *http.Request) (models.ListFilter, error) {
	q := r.URL.Query()
	filter := models.ListFilter{Search: q.Get("search")}
	if raw := q.Get("status"); raw != "" {
		status := domain.TenantStatus(raw)
		if !status.IsValid() {
			return models.ListFilter{}, dErrors.New(dErrors.CodeBadRequest, "unknown status")
		}
		filter.Status = status
	}
	if raw := q.Get("plan"); raw != "" {
		plan, ok := domain.ParsePlan(raw)
		if !ok {
			return models.ListFilter{}, dErrors.New(dErrors.CodeBadRequest, "unknown plan")
		}
		filter.Plan = plan
	}
	return filter, nil
}
