package impersonation_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"hearth/internal/audit"
	auditstore "hearth/internal/audit/store"
	"hearth/internal/guard"
	householdservice "hearth/internal/household/service"
	householdstore "hearth/internal/household/store"
	"hearth/internal/impersonation"
	"hearth/internal/impersonation/store"
	jwttoken "hearth/internal/jwt_token"
	userservice "hearth/internal/user/service"
	userstore "hearth/internal/user/store"
	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/requestcontext"
	"hearth/pkg/secrets"
	"hearth/pkg/testutil"
)

// An impersonation token is authorized exactly as the target would be, and
// loses its power once the 30 minute window has passed.
func TestImpersonationTokenActsAsTarget(t *testing.T) {
	ctx := requestcontext.WithTime(context.Background(), testutil.FixedTime)
	trail, err := audit.NewService(auditstore.NewInMemory())
	require.NoError(t, err)

	households, err := householdservice.New(householdstore.NewInMemory(), trail)
	require.NoError(t, err)
	home, err := households.Create(ctx, "The Parkers")
	require.NoError(t, err)

	users, err := userservice.New(userstore.NewInMemory(), households, trail,
		userservice.WithHasher(secrets.NewHasher(bcrypt.MinCost)))
	require.NoError(t, err)
	parent, err := users.Create(ctx, home.ID, "may@example.com", "May", domain.RoleParent)
	require.NoError(t, err)

	tokens := jwttoken.NewJWTService("flow-signing-key", "hearth", "hearth-api", 15*time.Minute)
	sessions, err := impersonation.New(store.NewInMemory(), tokens, users, trail)
	require.NoError(t, err)
	pipeline, err := guard.New(tokens, households)
	require.NoError(t, err)

	started, err := sessions.Start(ctx, testutil.SuperAdmin(), parent.ID)
	require.NoError(t, err)
	assert.Equal(t, impersonation.SessionDuration, started.ExpiresIn)

	parentsOnly := guard.Operation{Name: "household.task.create", RequiredRoles: []domain.Role{domain.RoleParent}, Method: http.MethodPost}
	superOnly := guard.Operation{Name: "admin.household.suspend", SuperAdminOnly: true, Method: http.MethodPost}

	decision, err := pipeline.Authorize(ctx, started.Token, parentsOnly, guard.Params{})
	require.NoError(t, err)
	assert.Equal(t, parent.ID, decision.Principal.SubjectID)
	assert.Equal(t, home.ID, decision.TenantID)
	require.True(t, decision.Principal.IsImpersonating())
	assert.Equal(t, started.SessionID, decision.Principal.Impersonation.SessionID)

	_, err = pipeline.Authorize(ctx, started.Token, superOnly, guard.Params{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbiddenRole), "impersonation never carries super admin power")

	expired := requestcontext.WithTime(ctx, testutil.FixedTime.Add(impersonation.SessionDuration))
	_, err = pipeline.Authorize(expired, started.Token, parentsOnly, guard.Params{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))

	_, err = households.Suspend(ctx, testutil.SuperAdmin(), home.ID, "chargeback")
	require.NoError(t, err)
	_, err = pipeline.Authorize(ctx, started.Token, parentsOnly, guard.Params{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTenantSuspended), "live status applies to impersonated writes")
}
