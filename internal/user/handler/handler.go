package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hearth/internal/guard"
	"hearth/internal/user/models"
	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/platform/httputil"
	"hearth/pkg/requestcontext"
	"hearth/pkg/validation"
)

var (
	OpResetPassword = guard.Operation{Name: "admin.user.reset_password", SuperAdminOnly: true, Method: http.MethodPost}
	// OpChangeRole is open to household admins; the service narrows them to
	// their own household.
	OpChangeRole = guard.Operation{Name: "user.change_role", RequiredRoles: []domain.Role{domain.RoleAdmin}, Method: http.MethodPut}
)

type Service interface {
	ResetPassword(ctx context.Context, actor *domain.Principal, id domain.UserID) (string, error)
	ChangeRole(ctx context.Context, actor *domain.Principal, id domain.UserID, role domain.Role) (*models.User, error)
}

type Handler struct {
	service  Service
	logger   *slog.Logger
	throttle func(http.Handler) http.Handler
}

func New(service Service, logger *slog.Logger, throttle func(http.Handler) http.Handler) *Handler {
	if throttle == nil {
		throttle = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{service: service, logger: logger, throttle: throttle}
}

func (h *Handler) Register(r chi.Router, g guard.Requirer) {
	r.With(g.Require(OpResetPassword), h.throttle).Post("/admin/users/{userId}/reset-password", h.HandleResetPassword)
	r.With(g.Require(OpChangeRole)).Put("/admin/users/{userId}/role", h.HandleChangeRole)
}

type ResetPasswordResponse struct {
	UserID            string `json:"user_id"`
	TemporaryPassword string `json:"temporary_password"`
}

// HandleResetPassword returns the temporary password in the response body.
// It is not stored anywhere in clear and cannot be retrieved again.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := userIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	password, err := h.service.ResetPassword(ctx, actor, id)
	if err != nil {
		h.logger.WarnContext(ctx, "reset password failed",
			"error", err,
			"user_id", id.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, &ResetPasswordResponse{UserID: id.String(), TemporaryPassword: password})
}

type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

func (r *ChangeRoleRequest) Normalize() {
	r.Role = strings.ToUpper(strings.TrimSpace(r.Role))
}

func (r *ChangeRoleRequest) Validate() error {
	return validation.Validate(r)
}

type UserResponse struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"household_id,omitempty"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h *Handler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := userIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ChangeRoleRequest](w, r, h.logger)
	if !ok {
		return
	}

	u, err := h.service.ChangeRole(ctx, actor, id, domain.Role(req.Role))
	if err != nil {
		h.logger.WarnContext(ctx, "change role failed",
			"error", err,
			"user_id", id.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	resp := &UserResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		UpdatedAt:   u.UpdatedAt,
	}
	if !u.TenantID.IsNil() {
		resp.HouseholdID = u.TenantID.String()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func userIDParam(r *http.Request) (domain.UserID, error) {
	id, err := domain.ParseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		return domain.UserID{}, dErrors.New(dErrors.CodeBadRequest, "invalid user id")
	}
	return id, nil
}
