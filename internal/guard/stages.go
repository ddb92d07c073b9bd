package guard

import (
	"context"

	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

// TokenVerifier turns a bearer token into a principal.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*domain.Principal, error)
}

// TenantStatusReader returns the live status of a household from storage.
type TenantStatusReader interface {
	TenantStatus(ctx context.Context, tenantID domain.TenantID) (domain.TenantStatus, error)
}

// State is threaded through the stages. Stages never mutate their input;
// they return an augmented copy.
type State struct {
	Token     string
	Operation Operation
	Params    Params
	Principal *domain.Principal
	TenantID  domain.TenantID
}

// Stage is one step of the pipeline. A non-nil error is a denial and stops
// the remaining stages.
type Stage struct {
	Name string
	Run  func(ctx context.Context, st State) (State, error)
}

const (
	StageAuthenticate    = "authenticate"
	StageResolveTenant   = "resolve_tenant"
	StageAuthorizeRole   = "authorize_role"
	StageEnforceScope    = "enforce_scope"
	StageCheckSuspension = "check_suspension"
)

// Authenticate denies unauthenticated when the token is absent or fails verification.
func Authenticate(verifier TokenVerifier) Stage {
	return Stage{Name: StageAuthenticate, Run: func(ctx context.Context, st State) (State, error) {
		if st.Token == "" {
			return st, dErrors.New(dErrors.CodeUnauthenticated, "missing bearer token")
		}
		p, err := verifier.Verify(ctx, st.Token)
		if err != nil {
			return st, &dErrors.Error{Code: dErrors.CodeUnauthenticated, Message: "invalid or expired token", Err: err}
		}
		st.Principal = p
		return st, nil
	}}
}

// ResolveTenant picks the household the request acts on. Super admins may
// name one explicitly (query first, then path) and fall back to their own.
// Everyone else is pinned to the household in their token; a mismatch with
// the named household is left to EnforceScope.
func ResolveTenant() Stage {
	return Stage{Name: StageResolveTenant, Run: func(_ context.Context, st State) (State, error) {
		p := st.Principal
		explicit := st.Params.QueryTenantID
		if explicit == "" {
			explicit = st.Params.PathTenantID
		}

		if p.Role.IsSuperAdmin() {
			if explicit == "" {
				st.TenantID = p.TenantID
				return st, nil
			}
			id, err := domain.ParseTenantID(explicit)
			if err != nil {
				return st, dErrors.New(dErrors.CodeBadRequest, "invalid household id")
			}
			st.TenantID = id
			return st, nil
		}

		if !p.HasTenant() {
			return st, dErrors.New(dErrors.CodeNoTenant, "caller does not belong to a household")
		}
		st.TenantID = p.TenantID
		return st, nil
	}}
}

// AuthorizeRole checks the operation allow-list. Super admins pass unless the
// operation is super admin only, in which case only they pass.
func AuthorizeRole() Stage {
	return Stage{Name: StageAuthorizeRole, Run: func(_ context.Context, st State) (State, error) {
		role := st.Principal.Role
		op := st.Operation
		switch {
		case op.SuperAdminOnly && !role.IsSuperAdmin():
			return st, dErrors.New(dErrors.CodeForbiddenRole, "operation requires SUPER_ADMIN")
		case role.IsSuperAdmin():
			return st, nil
		case !op.allows(role):
			return st, dErrors.New(dErrors.CodeForbiddenRole, "role "+string(role)+" may not perform "+op.Name)
		}
		return st, nil
	}}
}

// EnforceScope denies a household caller naming a household other than their
// own. It runs after role authorization so a disallowed role is reported as
// forbidden_role whatever household the request names.
func EnforceScope() Stage {
	return Stage{Name: StageEnforceScope, Run: func(_ context.Context, st State) (State, error) {
		if st.Principal.Role.IsSuperAdmin() {
			return st, nil
		}
		for _, named := range []string{st.Params.QueryTenantID, st.Params.PathTenantID} {
			if named != "" && named != st.TenantID.String() {
				return st, dErrors.New(dErrors.CodeForbidden, "household is outside the caller's scope")
			}
		}
		return st, nil
	}}
}

// CheckSuspension blocks writes to suspended households using the live status,
// never the token snapshot. A storage failure denies; a household that no
// longer exists has nothing to suspend.
func CheckSuspension(statuses TenantStatusReader) Stage {
	return Stage{Name: StageCheckSuspension, Run: func(ctx context.Context, st State) (State, error) {
		switch {
		case st.Principal.Role.IsSuperAdmin():
			return st, nil
		case st.Operation.IsRead():
			return st, nil
		case st.Operation.AllowWhenSuspended:
			return st, nil
		case st.TenantID.IsNil():
			return st, nil
		}

		status, err := statuses.TenantStatus(ctx, st.TenantID)
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return st, nil
		}
		if err != nil {
			return st, &dErrors.Error{Code: dErrors.CodeUnavailable, Message: "household status unavailable", Err: err}
		}
		if status == domain.TenantStatusSuspended {
			return st, dErrors.New(dErrors.CodeTenantSuspended, "household is suspended and read-only")
		}
		return st, nil
	}}
}
