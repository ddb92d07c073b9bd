package models

import (
	"strings"
	"time"

	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

// User is an account. Household members carry a TenantID; super admins don't.
type User struct {
	ID                 domain.UserID
	TenantID           domain.TenantID
	Email              string
	DisplayName        string
	Role               domain.Role
	PasswordHash       string
	MustChangePassword bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func NewUser(id domain.UserID, tenantID domain.TenantID, email, displayName string, role domain.Role, now time.Time) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown role")
	}
	if role.IsSuperAdmin() != tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "only super admins exist outside a household")
	}
	return &User{
		ID:          id,
		TenantID:    tenantID,
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SetTemporaryPassword replaces the credential and forces a change on next login.
func (u *User) SetTemporaryPassword(hash string, now time.Time) {
	u.PasswordHash = hash
	u.MustChangePassword = true
	u.UpdatedAt = now
}

// ChangeRole moves a household user between household roles. SUPER_ADMIN is
// never granted or revoked this way.
func (u *User) ChangeRole(role domain.Role, now time.Time) (domain.Role, error) {
	switch {
	case !role.IsValid():
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	case role.IsSuperAdmin() || u.Role.IsSuperAdmin():
		return "", dErrors.New(dErrors.CodeForbidden, "SUPER_ADMIN cannot be granted or revoked")
	case role == u.Role:
		return "", dErrors.New(dErrors.CodeInvariantViolation, "user already has role "+string(role))
	}
	previous := u.Role
	u.Role = role
	u.UpdatedAt = now
	return previous, nil
}
