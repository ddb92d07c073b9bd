// Package guardtest provides stand-ins for the guard middleware in handler tests.
package guardtest

import (
	"net/http"
	"sync"

	"hearth/internal/guard"
	"hearth/pkg/domain"
	"hearth/pkg/platform/httputil"
	"hearth/pkg/requestcontext"
)

// Guard authorizes every request as Principal scoped to TenantID. When Deny
// is set every request fails with it instead.
type Guard struct {
	Principal *domain.Principal
	TenantID  domain.TenantID
	Deny      error

	mu  sync.Mutex
	ops []string
}

// As returns a guard that authorizes requests as p within p's own household.
func As(p *domain.Principal) *Guard {
	return &Guard{Principal: p, TenantID: p.TenantID}
}

func (g *Guard) Require(op guard.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.mu.Lock()
			g.ops = append(g.ops, op.Name)
			g.mu.Unlock()

			if g.Deny != nil {
				httputil.WriteError(w, g.Deny)
				return
			}
			ctx := requestcontext.WithPrincipal(r.Context(), g.Principal, g.TenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Operations returns the names of the operations requests were checked against.
func (g *Guard) Operations() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.ops...)
}
