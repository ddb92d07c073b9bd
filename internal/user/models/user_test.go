package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

var now = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestNewUser(t *testing.T) {
	tenant := domain.NewTenantID()

	u, err := NewUser(domain.NewUserID(), tenant, " Ann@Example.com ", "Ann", domain.RoleParent, now)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)

	_, err = NewUser(domain.NewUserID(), domain.TenantID{}, "a@b.c", "", domain.RoleMember, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation), "members need a household")

	_, err = NewUser(domain.NewUserID(), tenant, "a@b.c", "", domain.RoleSuperAdmin, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation), "super admins have no household")

	_, err = NewUser(domain.NewUserID(), tenant, "", "", domain.RoleMember, now)
	assert.Error(t, err)
}

func TestChangeRole(t *testing.T) {
	u, err := NewUser(domain.NewUserID(), domain.NewTenantID(), "a@b.c", "", domain.RoleMember, now)
	require.NoError(t, err)

	previous, err := u.ChangeRole(domain.RoleAdmin, now)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, previous)

	_, err = u.ChangeRole(domain.RoleAdmin, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = u.ChangeRole(domain.RoleSuperAdmin, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = u.ChangeRole("OWNER", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestSetTemporaryPassword(t *testing.T) {
	u := &User{}
	u.SetTemporaryPassword("hash", now)
	assert.True(t, u.MustChangePassword)
	assert.Equal(t, "hash", u.PasswordHash)
}
