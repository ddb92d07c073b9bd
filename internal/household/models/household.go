package models

import (
	"strings"
	"time"

	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

const maxNameLength = 128

// Household is a tenant. Status is the only source of truth for suspension;
// the snapshot carried in tokens is advisory.
type Household struct {
	ID            domain.TenantID
	Name          string
	Status        domain.TenantStatus
	Subscription  *domain.Subscription
	SuspendedAt   *time.Time
	SuspendReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewHousehold(id domain.TenantID, name string, now time.Time) (*Household, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "household name cannot be empty")
	}
	if len(name) > maxNameLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "household name must be 128 characters or less")
	}
	return &Household{
		ID:           id,
		Name:         name,
		Status:       domain.TenantStatusActive,
		Subscription: &domain.Subscription{Plan: domain.PlanFree, Status: domain.SubscriptionActive},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (h *Household) IsSuspended() bool {
	return h.Status == domain.TenantStatusSuspended
}

// Suspend makes the household read-only. Only active households can be suspended.
func (h *Household) Suspend(reason string, now time.Time) error {
	switch h.Status {
	case domain.TenantStatusSuspended:
		return dErrors.New(dErrors.CodeInvariantViolation, "household is already suspended")
	case domain.TenantStatusInactive:
		return dErrors.New(dErrors.CodeInvariantViolation, "inactive households cannot be suspended")
	}
	h.Status = domain.TenantStatusSuspended
	h.SuspendedAt = &now
	h.SuspendReason = strings.TrimSpace(reason)
	h.UpdatedAt = now
	return nil
}

// Unsuspend restores write access.
func (h *Household) Unsuspend(now time.Time) error {
	if h.Status != domain.TenantStatusSuspended {
		return dErrors.New(dErrors.CodeInvariantViolation, "household is not suspended")
	}
	h.Status = domain.TenantStatusActive
	h.SuspendedAt = nil
	h.SuspendReason = ""
	h.UpdatedAt = now
	return nil
}

// ChangePlan moves the subscription to plan and marks it active. The
// previous plan is returned for the audit trail.
func (h *Household) ChangePlan(plan domain.Plan, now time.Time) (domain.Plan, error) {
	if _, ok := domain.ParsePlan(string(plan)); !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown plan")
	}
	previous := h.Subscription.EffectivePlan()
	if h.Subscription != nil && h.Subscription.Plan == plan && h.Subscription.Status == domain.SubscriptionActive {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "household is already on plan "+string(plan))
	}
	h.Subscription = &domain.Subscription{Plan: plan, Status: domain.SubscriptionActive}
	h.UpdatedAt = now
	return previous, nil
}

// ListFilter narrows household listings. Zero values match everything.
type ListFilter struct {
	Status domain.TenantStatus
	Plan   domain.Plan
	// Search matches a case-insensitive substring of the name.
	Search string
}

func (f ListFilter) Matches(h *Household) bool {
	switch {
	case f.Status != "" && h.Status != f.Status:
		return false
	case f.Plan != "" && (h.Subscription == nil || h.Subscription.Plan != f.Plan):
		return false
	case f.Search != "" && !strings.Contains(strings.ToLower(h.Name), strings.ToLower(f.Search)):
		return false
	}
	return true
}
