package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

var now = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func newActive(t *testing.T) *Household {
	t.Helper()
	h, err := NewHousehold(domain.NewTenantID(), "Smiths", now)
	require.NoError(t, err)
	return h
}

func TestNewHousehold(t *testing.T) {
	_, err := NewHousehold(domain.NewTenantID(), strings.Repeat("x", 129), now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	h := newActive(t)
	assert.Equal(t, domain.TenantStatusActive, h.Status)
	assert.False(t, h.IsSuspended())
}

func TestSuspensionTransitions(t *testing.T) {
	h := newActive(t)
	later := now.Add(time.Hour)

	require.NoError(t, h.Suspend("unpaid", later))
	assert.True(t, h.IsSuspended())
	assert.Equal(t, later, h.UpdatedAt)

	err := h.Suspend("unpaid", later)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	require.NoError(t, h.Unsuspend(later))
	assert.Empty(t, h.SuspendReason)
	assert.Nil(t, h.SuspendedAt)

	h.Status = domain.TenantStatusInactive
	assert.Error(t, h.Suspend("", later))
	assert.Error(t, h.Unsuspend(later))
}

func TestChangePlan(t *testing.T) {
	h := newActive(t)

	previous, err := h.ChangePlan(domain.PlanFamily, now)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanFree, previous)

	_, err = h.ChangePlan(domain.PlanFamily, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	h.Subscription.Status = domain.SubscriptionPastDue
	previous, err = h.ChangePlan(domain.PlanFamily, now)
	require.NoError(t, err, "reactivating a lapsed subscription is a change")
	assert.Equal(t, domain.PlanFree, previous)
}

func TestListFilter(t *testing.T) {
	h := newActive(t)
	assert.True(t, ListFilter{}.Matches(h))
	assert.True(t, ListFilter{Search: "SMI", Plan: domain.PlanFree}.Matches(h))
	assert.False(t, ListFilter{Status: domain.TenantStatusSuspended}.Matches(h))

	h.Subscription = nil
	assert.False(t, ListFilter{Plan: domain.PlanFree}.Matches(h))
}
