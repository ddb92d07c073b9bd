package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hearth/internal/audit"
	"hearth/internal/guard"
	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/platform/httputil"
	"hearth/pkg/requestcontext"
)

// OpQuery reads the audit trail. Only super admins may see it.
var OpQuery = guard.Operation{Name: "admin.audit.query", SuperAdminOnly: true, Method: http.MethodGet}

// Service is the read side of the audit trail.
type Service interface {
	Query(ctx context.Context, filter audit.Filter, page domain.Page) (domain.PageResult[*audit.Entry], error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router, g guard.Requirer) {
	r.With(g.Require(OpQuery)).Get("/admin/audit-logs", h.HandleQuery)
}

// HandleQuery lists entries newest first.
// Query params: actorId, action, resourceKind, resourceId, from, to, limit, offset.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := httputil.ParsePage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Query(ctx, filter, page)
	if err != nil {
		h.logger.ErrorContext(ctx, "query audit log failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toListResponse(res))
}

func parseFilter(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	f := audit.Filter{
		Action:       audit.Action(q.Get("action")),
		ResourceKind: q.Get("resourceKind"),
		ResourceID:   q.Get("resourceId"),
	}
	if raw := q.Get("actorId"); raw != "" {
		actorID, err := domain.ParseUserID(raw)
		if err != nil {
			return audit.Filter{}, dErrors.New(dErrors.CodeBadRequest, "invalid actorId")
		}
		f.ActorID = actorID
	}

	var err error
	if f.From, err = httputil.ParseTime(r, "from"); err != nil {
		return audit.Filter{}, err
	}
	if f.To, err = httputil.ParseTime(r, "to"); err != nil {
		return audit.Filter{}, err
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return audit.Filter{}, dErrors.New(dErrors.CodeBadRequest, "from must be before to")
	}
	return f, nil
}

type EntryResponse struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id"`
	ActorLabel   string         `json:"actor_label,omitempty"`
	Action       string         `json:"action"`
	ResourceKind string         `json:"resource_kind"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type ListResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
	HasMore bool             `json:"has_more"`
}

func toListResponse(res domain.PageResult[*audit.Entry]) *ListResponse {
	out := &ListResponse{
		Entries: make([]*EntryResponse, 0, len(res.Items)),
		Limit:   res.Limit,
		Offset:  res.Offset,
		HasMore: res.HasMore,
	}
	for _, e := range res.Items {
		out.Entries = append(out.Entries, ToEntryResponse(e))
	}
	return out
}

func ToEntryResponse(e *audit.Entry) *EntryResponse {
	return &EntryResponse{
		ID:           e.ID,
		ActorID:      e.ActorID.String(),
		ActorLabel:   e.ActorLabel,
		Action:       string(e.Action),
		ResourceKind: e.ResourceKind,
		ResourceID:   e.ResourceID,
		Details:      e.Details,
		RequestID:    e.RequestID,
		CreatedAt:    e.CreatedAt,
	}
}
