package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/requestcontext"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding error cannot change the status.
	_ = json.NewEncoder(w).Encode(response)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error       string         `json:"error"`
	Description string         `json:"error_description,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// WriteError centralizes domain error translation to HTTP responses.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), ErrorResponse{
			Error:       string(domainErr.Code),
			Description: domainErr.Message,
			Details:     domainErr.Details,
		})
		return
	}

	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: string(dErrors.CodeInternal)})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeConflict, dErrors.CodeInvariantViolation:
		return http.StatusConflict
	case dErrors.CodeUnauthenticated:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden, dErrors.CodeNoTenant, dErrors.CodeForbiddenRole,
		dErrors.CodeTenantSuspended, dErrors.CodeFeatureUnavailable:
		return http.StatusForbidden
	case dErrors.CodeQuotaExceeded:
		return http.StatusPaymentRequired
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RequirePrincipal returns the authorized caller placed in ctx by the guard
// middleware. A missing principal means a route was wired without the guard.
func RequirePrincipal(ctx context.Context, logger *slog.Logger) (*domain.Principal, error) {
	p := requestcontext.Principal(ctx)
	if p == nil {
		if logger != nil {
			logger.ErrorContext(ctx, "principal missing from context despite guard middleware",
				"request_id", requestcontext.RequestID(ctx))
		}
		return nil, dErrors.New(dErrors.CodeInternal, "authorization context error")
	}
	return p, nil
}

// ParsePage reads limit and offset query parameters.
func ParsePage(r *http.Request) (domain.Page, error) {
	q := r.URL.Query()
	var page domain.Page
	for key, dst := range map[string]*int{"limit": &page.Limit, "offset": &page.Offset} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return domain.Page{}, dErrors.New(dErrors.CodeBadRequest, key+" must be a non-negative integer")
		}
		*dst = n
	}
	return page.Normalized(), nil
}

// ParseTime reads an optional RFC 3339 query parameter.
func ParseTime(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, key+" must be an RFC 3339 timestamp")
	}
	return t, nil
}
