package guard

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	jwttoken "hearth/internal/jwt_token"
	"hearth/pkg/platform/httputil"
	"hearth/pkg/requestcontext"
)

// Tenant parameter names read by the HTTP adapter.
const (
	TenantQueryParam = "tenantId"
	TenantPathParam  = "tenantId"
)

// Authorizer is satisfied by *Pipeline.
type Authorizer interface {
	Authorize(ctx context.Context, token string, op Operation, params Params) (*Decision, error)
}

// Requirer is what route registration depends on. *Middleware satisfies it.
type Requirer interface {
	Require(op Operation) func(http.Handler) http.Handler
}

// AllowHook runs after a request is authorized and before the handler.
// Hooks must not block.
type AllowHook func(ctx context.Context, d *Decision)

// Middleware adapts an Authorizer to chi routes.
type Middleware struct {
	authorizer Authorizer
	hooks      []AllowHook
}

// NewMiddleware wires an authorizer. Denials are logged by the authorizer.
func NewMiddleware(authorizer Authorizer, hooks ...AllowHook) *Middleware {
	return &Middleware{authorizer: authorizer, hooks: hooks}
}

// Require protects a route with op. The request method fills op.Method when
// the operation does not declare one.
func (m *Middleware) Require(op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			effective := op
			if effective.Method == "" {
				effective.Method = r.Method
			}

			token, _ := jwttoken.ExtractBearer(r.Header.Get("Authorization"))
			params := Params{
				QueryTenantID: r.URL.Query().Get(TenantQueryParam),
				PathTenantID:  chi.URLParam(r, TenantPathParam),
			}

			decision, err := m.authorizer.Authorize(ctx, token, effective, params)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithPrincipal(ctx, decision.Principal, decision.TenantID)
			for _, hook := range m.hooks {
				hook(ctx, decision)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
