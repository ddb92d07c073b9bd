package guard

import (
	"net/http"
	"slices"

	"hearth/pkg/domain"
)

// Operation declares what a protected call requires. It replaces per-route
// annotations with an explicit value passed to Authorize.
type Operation struct {
	// Name identifies the operation in logs, metrics and spans.
	Name string
	// RequiredRoles is the allow-list. Empty means any authenticated role.
	RequiredRoles []domain.Role
	// SuperAdminOnly removes the implicit super admin exemption for everyone else.
	SuperAdminOnly bool
	// AllowWhenSuspended opts a write into running for suspended households.
	AllowWhenSuspended bool
	// Method is the HTTP method or equivalent verb. Only GET, HEAD and OPTIONS
	// are reads; anything else, including empty, is treated as a write.
	Method string
}

// IsRead reports whether the operation is a pure read.
func (o Operation) IsRead() bool {
	switch o.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func (o Operation) allows(role domain.Role) bool {
	return len(o.RequiredRoles) == 0 || slices.Contains(o.RequiredRoles, role)
}

// Params carries tenant ids a caller supplied explicitly on the request.
// Only super admins may use them to address a household.
type Params struct {
	QueryTenantID string
	PathTenantID  string
}

// Decision is the result of a successful authorization.
type Decision struct {
	Principal *domain.Principal
	// TenantID is the household the request is scoped to. It is nil only for
	// super admins that did not address a household.
	TenantID  domain.TenantID
	Operation Operation
}
