package seeder_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/internal/audit"
	auditstore "hearth/internal/audit/store"
	householdservice "hearth/internal/household/service"
	householdstore "hearth/internal/household/store"
	"hearth/internal/quota"
	quotastore "hearth/internal/quota/store"
	"hearth/internal/seeder"
	userservice "hearth/internal/user/service"
	userstore "hearth/internal/user/store"
	"hearth/pkg/domain"
)

func TestSeedAll(t *testing.T) {
	ctx := context.Background()
	trail, err := audit.NewService(auditstore.NewInMemory())
	require.NoError(t, err)
	households, err := householdservice.New(householdstore.NewInMemory(), trail)
	require.NoError(t, err)
	userStore := userstore.NewInMemory()
	users, err := userservice.New(userStore, households, trail)
	require.NoError(t, err)
	counts := quotastore.NewInMemory(userStore)
	resolver, err := quota.New(households, counts, quota.DefaultPlanLimits())
	require.NoError(t, err)

	summary, err := seeder.New(households, users, counts, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))).SeedAll(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Households, 2)

	admin, err := users.FindPrincipal(ctx, summary.SuperAdminID)
	require.NoError(t, err)
	assert.True(t, admin.Role.IsSuperAdmin())
	assert.False(t, admin.HasTenant())

	free := summary.Households[0]
	usage, err := resolver.Usage(ctx, free.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanFree, usage.Plan)
	for _, r := range usage.Resources {
		switch r.Kind {
		case quota.ResourceMembers:
			assert.Equal(t, 3, r.Current, "members are counted from the user store")
		case quota.ResourceTasks:
			assert.Equal(t, 48, r.Current)
		}
	}
	assert.Error(t, resolver.RequireCanAddMember(ctx, free.ID), "FREE household is at its member ceiling")

	family := summary.Households[1]
	sub, err := households.Subscription(ctx, family.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanFamily, sub.EffectivePlan())
	assert.NoError(t, resolver.RequireCanAddEmployee(ctx, family.ID))

	res, err := trail.Query(ctx, audit.Filter{Action: audit.ActionPlanChange}, domain.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, summary.SuperAdminID, res.Items[0].ActorID)
}
