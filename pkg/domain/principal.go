package domain

import "slices"

// Role is the caller's authority level.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleParent     Role = "PARENT"
	RoleMember     Role = "MEMBER"
	RoleStaff      Role = "STAFF"
)

var allRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleParent, RoleMember, RoleStaff}

// ParseRole accepts the canonical upper-case role names only.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, slices.Contains(allRoles, r)
}

func (r Role) IsValid() bool      { return slices.Contains(allRoles, r) }
func (r Role) IsSuperAdmin() bool { return r == RoleSuperAdmin }
func (r Role) String() string     { return string(r) }

// TenantStatus is the lifecycle state of a household.
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "ACTIVE"
	TenantStatusSuspended TenantStatus = "SUSPENDED"
	TenantStatusInactive  TenantStatus = "INACTIVE"
)

func (s TenantStatus) IsValid() bool {
	switch s {
	case TenantStatusActive, TenantStatusSuspended, TenantStatusInactive:
		return true
	}
	return false
}

func (s TenantStatus) String() string { return string(s) }

// Impersonation marks a principal acting on behalf of a super admin.
type Impersonation struct {
	SessionID      SessionID
	ImpersonatedBy UserID
}

// Principal is the verified caller for one request. It is built from token
// claims and never persisted.
type Principal struct {
	SubjectID UserID
	Role      Role
	// TenantID is nil only for super admins.
	TenantID TenantID
	// TenantStatus is the snapshot taken when the token was issued and may be stale.
	TenantStatus  TenantStatus
	Impersonation *Impersonation
}

func (p *Principal) HasTenant() bool { return !p.TenantID.IsNil() }

func (p *Principal) IsImpersonating() bool { return p.Impersonation != nil }
