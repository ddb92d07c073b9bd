package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hearth/internal/guard"
	"hearth/internal/impersonation"
	"hearth/internal/impersonation/models"
	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/platform/httputil"
	"hearth/pkg/requestcontext"
)

var (
	OpStart   = guard.Operation{Name: "admin.impersonation.start", SuperAdminOnly: true, Method: http.MethodPost}
	OpEnd     = guard.Operation{Name: "admin.impersonation.end", SuperAdminOnly: true, Method: http.MethodPost}
	OpActive  = guard.Operation{Name: "admin.impersonation.active", SuperAdminOnly: true, Method: http.MethodGet}
	OpHistory = guard.Operation{Name: "admin.impersonation.history", SuperAdminOnly: true, Method: http.MethodGet}
)

type Service interface {
	Start(ctx context.Context, actor *domain.Principal, targetID domain.UserID) (*impersonation.StartResult, error)
	End(ctx context.Context, sessionID domain.SessionID, callerID domain.UserID) (*impersonation.EndResult, error)
	ListActive(ctx context.Context, actorID domain.UserID) ([]*models.Session, error)
	History(ctx context.Context, filter models.HistoryFilter, page domain.Page) (domain.PageResult[*models.Session], error)
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

// Register mounts the routes. {id} is the target user for start and the
// session for end.
func (h *Handler) Register(r chi.Router, g guard.Requirer) {
	r.With(g.Require(OpActive)).Get("/admin/impersonate/active", h.HandleListActive)
	r.With(g.Require(OpHistory)).Get("/admin/impersonate/history", h.HandleHistory)
	r.With(g.Require(OpStart), h.throttle).Post("/admin/impersonate/{id}", h.HandleStart)
	r.With(g.Require(OpEnd)).Post("/admin/impersonate/{id}/end", h.HandleEnd)
}

type TargetResponse struct {
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	HouseholdID string `json:"household_id,omitempty"`
}

type StartResponse struct {
	SessionID string         `json:"session_id"`
	Token     string         `json:"token"`
	ExpiresIn int            `json:"expires_in"`
	ExpiresAt time.Time      `json:"expires_at"`
	Target    TargetResponse `json:"target"`
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	targetID, err := domain.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	res, err := h.service.Start(ctx, actor, targetID)
	if err != nil {
		h.logger.WarnContext(ctx, "start impersonation failed",
			"error", err,
			"target_user_id", targetID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	target := TargetResponse{UserID: res.Target.SubjectID.String(), Role: string(res.Target.Role)}
	if res.Target.HasTenant() {
		target.HouseholdID = res.Target.TenantID.String()
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusCreated, &StartResponse{
		SessionID: res.SessionID.String(),
		Token:     res.Token,
		ExpiresIn: int(res.ExpiresIn.Seconds()),
		ExpiresAt: res.ExpiresAt,
		Target:    target,
	})
}

type EndResponse struct {
	Session      *SessionResponse `json:"session"`
	AlreadyEnded bool             `json:"already_ended"`
}

func (h *Handler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sessionID, err := domain.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid session id"))
		return
	}

	res, err := h.service.End(ctx, sessionID, actor.SubjectID)
	if err != nil {
		h.logger.WarnContext(ctx, "end impersonation failed",
			"error", err,
			"session_id", sessionID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &EndResponse{
		Session:      toSessionResponse(res.Session, requestcontext.Now(ctx)),
		AlreadyEnded: res.AlreadyEnded,
	})
}

type SessionResponse struct {
	ID             string     `json:"id"`
	ActorID        string     `json:"actor_id"`
	TargetID       string     `json:"target_id"`
	TargetTenantID string     `json:"target_household_id"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	ExpiresAt      time.Time  `json:"expires_at"`
	Active         bool       `json:"active"`
	DurationSecs   *int64     `json:"duration_seconds,omitempty"`
	ActionCount    int        `json:"action_count"`
}

type SessionListResponse struct {
	Sessions []*SessionResponse `json:"sessions"`
	Limit    int                `json:"limit,omitempty"`
	Offset   int                `json:"offset,omitempty"`
	HasMore  bool               `json:"has_more"`
}

func (h *Handler) HandleListActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sessions, err := h.service.ListActive(ctx, actor.SubjectID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list active impersonations failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	now := requestcontext.Now(ctx)
	out := &SessionListResponse{Sessions: make([]*SessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		out.Sessions = append(out.Sessions, toSessionResponse(s, now))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleHistory supports actorId, targetId, from, to, limit and offset.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := parseHistoryFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := httputil.ParsePage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.History(ctx, filter, page)
	if err != nil {
		h.logger.ErrorContext(ctx, "impersonation history failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	now := requestcontext.Now(ctx)
	out := &SessionListResponse{
		Sessions: make([]*SessionResponse, 0, len(res.Items)),
		Limit:    res.Limit,
		Offset:   res.Offset,
		HasMore:  res.HasMore,
	}
	for _, s := range res.Items {
		out.Sessions = append(out.Sessions, toSessionResponse(s, now))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func parseHistoryFilter(r *http.Request) (models.HistoryFilter, error) {
	q := r.URL.Query()
	var f models.HistoryFilter
	if raw := q.Get("actorId"); raw != "" {
		id, err := domain.ParseUserID(raw)
		if err != nil {
			return models.HistoryFilter{}, dErrors.New(dErrors.CodeBadRequest, "invalid actorId")
		}
		f.ActorID = id
	}
	if raw := q.Get("targetId"); raw != "" {
		id, err := domain.ParseUserID(raw)
		if err != nil {
			return models.HistoryFilter{}, dErrors.New(dErrors.CodeBadRequest, "invalid targetId")
		}
		f.TargetID = id
	}
	var err error
	if f.From, err = httputil.ParseTime(r, "from"); err != nil {
		return models.HistoryFilter{}, err
	}
	if f.To, err = httputil.ParseTime(r, "to"); err != nil {
		return models.HistoryFilter{}, err
	}
	return f, nil
}

func toSessionResponse(s *models.Session, now time.Time) *SessionResponse {
	out := &SessionResponse{
		ID:             s.ID.String(),
		ActorID:        s.ActorID.String(),
		TargetID:       s.TargetID.String(),
		TargetTenantID: s.TargetTenantID.String(),
		StartedAt:      s.StartedAt,
		EndedAt:        s.EndedAt,
		ExpiresAt:      s.ExpiresAt(),
		Active:         s.IsActive(now),
		ActionCount:    s.ActionCount,
	}
	if d := s.Duration(); d != nil {
		secs := int64(d.Seconds())
		out.DurationSecs = &secs
	}
	return out
}
