package audit

import (
	"maps"
	"time"

	"hearth/pkg/domain"
)

// Action names a sensitive administrative transition.
type Action string

const (
	ActionHouseholdSuspend   Action = "HOUSEHOLD_SUSPEND"
	ActionHouseholdUnsuspend Action = "HOUSEHOLD_UNSUSPEND"
	ActionPlanChange         Action = "PLAN_CHANGE"
	ActionPasswordReset      Action = "PASSWORD_RESET"
	ActionRoleChange         Action = "ROLE_CHANGE"
	ActionImpersonationStart Action = "IMPERSONATION_START"
	ActionImpersonationEnd   Action = "IMPERSONATION_END"
)

// Resource kinds referenced by audit entries.
const (
	ResourceHousehold     = "household"
	ResourceUser          = "user"
	ResourceImpersonation = "impersonation_session"
)

// Entry is one append-only audit record.
type Entry struct {
	ID           string
	ActorID      domain.UserID
	ActorLabel   string
	Action       Action
	ResourceKind string
	ResourceID   string
	Details      map[string]any
	RequestID    string
	CreatedAt    time.Time
}

// Filter narrows Query. Zero values match everything.
type Filter struct {
	ActorID      domain.UserID
	Action       Action
	ResourceKind string
	ResourceID   string
	From         time.Time
	To           time.Time
}

// Matches reports whether e passes every set field of f. From is inclusive,
// To is exclusive.
func (f Filter) Matches(e *Entry) bool {
	switch {
	case !f.ActorID.IsNil() && e.ActorID != f.ActorID:
		return false
	case f.Action != "" && e.Action != f.Action:
		return false
	case f.ResourceKind != "" && e.ResourceKind != f.ResourceKind:
		return false
	case f.ResourceID != "" && e.ResourceID != f.ResourceID:
		return false
	case !f.From.IsZero() && e.CreatedAt.Before(f.From):
		return false
	case !f.To.IsZero() && !e.CreatedAt.Before(f.To):
		return false
	}
	return true
}

// NewerFirst orders entries by creation time, then by id, both descending.
func NewerFirst(a, b *Entry) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	}
	return 0
}

// For builds an entry attributed to p. Impersonated callers are recorded as
// the target with the initiating super admin in the details.
func For(p *domain.Principal, action Action, resourceKind, resourceID string, details map[string]any) Entry {
	e := Entry{
		ActorID:      p.SubjectID,
		ActorLabel:   string(p.Role),
		Action:       action,
		ResourceKind: resourceKind,
		ResourceID:   resourceID,
		Details:      details,
	}
	if p.IsImpersonating() {
		e.Details = maps.Clone(details)
		if e.Details == nil {
			e.Details = map[string]any{}
		}
		e.Details["impersonated_by"] = p.Impersonation.ImpersonatedBy.String()
		e.Details["impersonation_session_id"] = p.Impersonation.SessionID.String()
	}
	return e
}
