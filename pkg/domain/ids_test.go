package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "hearth/pkg/domain-errors"
)

func TestParseIDs(t *testing.T) {
	rejected := map[string]struct {
		input string
		msg   string
		parse func(string) error
	}{
		"empty user":       {"", "user ID cannot be empty", func(s string) error { _, err := ParseUserID(s); return err }},
		"malformed tenant": {"not-a-uuid", "invalid household ID format", func(s string) error { _, err := ParseTenantID(s); return err }},
		"nil session":      {uuid.Nil.String(), "session ID cannot be nil", func(s string) error { _, err := ParseSessionID(s); return err }},
	}
	for name, tc := range rejected {
		t.Run(name, func(t *testing.T) {
			err := tc.parse(tc.input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			assert.Equal(t, tc.msg, err.Error())
		})
	}

	t.Run("round trips a valid uuid", func(t *testing.T) {
		raw := uuid.New()
		id, err := ParseTenantID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, TenantID(raw), id)
		assert.Equal(t, raw.String(), id.String())
		assert.False(t, id.IsNil())
		assert.True(t, UserID{}.IsNil())
	})
}

func TestParseRole(t *testing.T) {
	for _, r := range []string{"SUPER_ADMIN", "ADMIN", "PARENT", "MEMBER", "STAFF"} {
		role, ok := ParseRole(r)
		assert.True(t, ok, r)
		assert.Equal(t, Role(r), role)
	}

	_, ok := ParseRole("admin")
	assert.False(t, ok, "role names are case sensitive")
	_, ok = ParseRole("")
	assert.False(t, ok)
}

func TestPrincipal(t *testing.T) {
	p := &Principal{SubjectID: NewUserID(), Role: RoleSuperAdmin}
	assert.False(t, p.HasTenant())
	assert.False(t, p.IsImpersonating())

	p.TenantID = NewTenantID()
	p.Impersonation = &Impersonation{SessionID: NewSessionID(), ImpersonatedBy: NewUserID()}
	assert.True(t, p.HasTenant())
	assert.True(t, p.IsImpersonating())
}
