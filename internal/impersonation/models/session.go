package models

import (
	"time"

	"hearth/pkg/domain"
)

// SessionDuration is the absolute lifetime of an impersonation session and
// of the token minted for it.
const SessionDuration = 30 * time.Minute

// Session is one super admin acting as one household user. Expiry is derived
// from StartedAt and never stored.
type Session struct {
	ID             domain.SessionID
	ActorID        domain.UserID
	TargetID       domain.UserID
	TargetTenantID domain.TenantID
	StartedAt      time.Time
	EndedAt        *time.Time
	ActionCount    int
}

func (s *Session) ExpiresAt() time.Time { return s.StartedAt.Add(SessionDuration) }

func (s *Session) IsExpired(now time.Time) bool {
	return now.Sub(s.StartedAt) >= SessionDuration
}

// IsActive reports whether the session is neither ended nor expired at now.
func (s *Session) IsActive(now time.Time) bool {
	return s.EndedAt == nil && !s.IsExpired(now)
}

// Duration is the time between start and end. It is nil until the session ends.
func (s *Session) Duration() *time.Duration {
	if s.EndedAt == nil {
		return nil
	}
	d := s.EndedAt.Sub(s.StartedAt)
	return &d
}

// HistoryFilter narrows a history listing. Zero fields match everything; the
// range applies to StartedAt and is half-open [From, To).
type HistoryFilter struct {
	ActorID  domain.UserID
	TargetID domain.UserID
	From     time.Time
	To       time.Time
}

func (f HistoryFilter) Matches(s *Session) bool {
	switch {
	case !f.ActorID.IsNil() && s.ActorID != f.ActorID:
		return false
	case !f.TargetID.IsNil() && s.TargetID != f.TargetID:
		return false
	case !f.From.IsZero() && s.StartedAt.Before(f.From):
		return false
	case !f.To.IsZero() && !s.StartedAt.Before(f.To):
		return false
	}
	return true
}
